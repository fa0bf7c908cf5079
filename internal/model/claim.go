package model

// Claim is a billing record as served by the claims service.
// Only ID, PatientID, CPTCode and Status are always present; every other
// field may be null on the wire and is a pointer here.
type Claim struct {
	ID        int64  `json:"id" yaml:"id"`
	PatientID string `json:"patient_id" yaml:"patient_id"`

	// Clinical context
	Description      *string `json:"description,omitempty" yaml:"description,omitempty"`           // The doctor note
	MedicalSpecialty *string `json:"medical_specialty,omitempty" yaml:"medical_specialty,omitempty"`
	Transcription    *string `json:"transcription,omitempty" yaml:"transcription,omitempty"`

	// Coding
	CPTCode        string  `json:"cpt_code" yaml:"cpt_code"`
	CPTModifier    *string `json:"cpt_modifier,omitempty" yaml:"cpt_modifier,omitempty"`
	CPTDescription *string `json:"cpt_description,omitempty" yaml:"cpt_description,omitempty"`
	ICDCode        *string `json:"icd_code,omitempty" yaml:"icd_code,omitempty"`
	ICDDescription *string `json:"icd_description,omitempty" yaml:"icd_description,omitempty"`

	// Payer and financial context
	PayerName        *string  `json:"payer_name,omitempty" yaml:"payer_name,omitempty"`
	PlanType         *string  `json:"plan_type,omitempty" yaml:"plan_type,omitempty"`
	PolicyID         *string  `json:"policy_id,omitempty" yaml:"policy_id,omitempty"`
	MemberID         *string  `json:"member_id,omitempty" yaml:"member_id,omitempty"`
	ClaimNumber      *string  `json:"claim_number,omitempty" yaml:"claim_number,omitempty"`
	ClaimAmount      *float64 `json:"claim_amount,omitempty" yaml:"claim_amount,omitempty"`
	DateOfService    *string  `json:"date_of_service,omitempty" yaml:"date_of_service,omitempty"`
	DateOfSubmission *string  `json:"date_of_submission,omitempty" yaml:"date_of_submission,omitempty"`
	DateOfDenial     *string  `json:"date_of_denial,omitempty" yaml:"date_of_denial,omitempty"`

	// Outcome
	Status          string  `json:"status" yaml:"status"`
	DenialCode      *string `json:"denial_code,omitempty" yaml:"denial_code,omitempty"`
	DenialReason    *string `json:"denial_reason,omitempty" yaml:"denial_reason,omitempty"`
	PriorAuthNumber *string `json:"prior_auth_number,omitempty" yaml:"prior_auth_number,omitempty"`

	// Facility, provider and patient
	FacilityName      *string `json:"facility_name,omitempty" yaml:"facility_name,omitempty"`
	PlaceOfService    *string `json:"place_of_service,omitempty" yaml:"place_of_service,omitempty"`
	ProviderNPI       *string `json:"provider_npi,omitempty" yaml:"provider_npi,omitempty"`
	ProviderSpecialty *string `json:"provider_specialty,omitempty" yaml:"provider_specialty,omitempty"`
	PatientDOB        *string `json:"patient_dob,omitempty" yaml:"patient_dob,omitempty"`
	PatientGender     *string `json:"patient_gender,omitempty" yaml:"patient_gender,omitempty"`
}

// WorklistEntry is the reduced projection of a claim shown in the worklist.
type WorklistEntry struct {
	ID            int64    `json:"id" yaml:"id"`
	PatientID     string   `json:"patient_id" yaml:"patient_id"`
	PayerName     *string  `json:"payer_name,omitempty" yaml:"payer_name,omitempty"`
	DateOfService *string  `json:"date_of_service,omitempty" yaml:"date_of_service,omitempty"`
	ClaimAmount   *float64 `json:"claim_amount,omitempty" yaml:"claim_amount,omitempty"`
	Status        string   `json:"status" yaml:"status"`
}

// Entry derives the worklist projection of the claim
func (c Claim) Entry() WorklistEntry {
	return WorklistEntry{
		ID:            c.ID,
		PatientID:     c.PatientID,
		PayerName:     c.PayerName,
		DateOfService: c.DateOfService,
		ClaimAmount:   c.ClaimAmount,
		Status:        c.Status,
	}
}

// Entries projects a claim list onto worklist entries, preserving order
func Entries(claims []Claim) []WorklistEntry {
	entries := make([]WorklistEntry, len(claims))
	for i, c := range claims {
		entries[i] = c.Entry()
	}
	return entries
}

// Field is a labelled claim attribute used by the detail views.
type Field struct {
	Label string
	Value string
}

// DetailFields returns the present optional fields of the claim in display
// order. Absent (null or blank) fields are skipped.
func (c Claim) DetailFields() []Field {
	var fields []Field
	add := func(label string, v *string) {
		if v != nil && *v != "" {
			fields = append(fields, Field{Label: label, Value: *v})
		}
	}

	add("Payer", c.PayerName)
	add("Plan type", c.PlanType)
	add("Policy ID", c.PolicyID)
	add("Member ID", c.MemberID)
	add("Claim number", c.ClaimNumber)
	if c.ClaimAmount != nil {
		fields = append(fields, Field{Label: "Amount", Value: FormatAmount(*c.ClaimAmount)})
	}
	add("Date of service", c.DateOfService)
	add("Date of submission", c.DateOfSubmission)
	add("Date of denial", c.DateOfDenial)
	add("CPT modifier", c.CPTModifier)
	add("CPT description", c.CPTDescription)
	add("ICD code", c.ICDCode)
	add("ICD description", c.ICDDescription)
	add("Denial code", c.DenialCode)
	add("Denial reason", c.DenialReason)
	add("Prior auth", c.PriorAuthNumber)
	add("Facility", c.FacilityName)
	add("Place of service", c.PlaceOfService)
	add("Provider NPI", c.ProviderNPI)
	add("Provider specialty", c.ProviderSpecialty)
	add("Specialty", c.MedicalSpecialty)
	add("Patient DOB", c.PatientDOB)
	add("Patient gender", c.PatientGender)

	return fields
}

// Deref returns the pointed-to string or the fallback for nil
func Deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
