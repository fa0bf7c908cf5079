package view

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/model"
)

// ErrClaimNotLoaded is returned when an audit is triggered before the open
// claim finished loading
var ErrClaimNotLoaded = errors.New("claim not loaded")

// LoadTicket identifies one claim detail load
type LoadTicket struct {
	ClaimID int64
	seq     uint64
}

// DetailSnapshot is a consistent copy of the detail view
type DetailSnapshot struct {
	Open    bool
	ClaimID int64
	State   LoadState
	Err     error
	Claim   *model.Claim
	Audit   audit.State
}

// Detail is the claim detail screen: the load of one claim and its
// verification panel.
type Detail struct {
	mu      sync.Mutex
	open    bool
	claimID int64
	seq     uint64
	state   LoadState
	err     error
	claim   *model.Claim
	panel   *audit.Panel
	logger  *logrus.Logger
}

// NewDetail creates a closed detail view
func NewDetail(logger *logrus.Logger) *Detail {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Detail{panel: audit.NewPanel(), logger: logger}
}

// Open navigates to a claim. Opening another claim starts a new load and
// resets the panel; reopening the claim already shown keeps everything.
// needLoad is false when the claim is already loaded or loading.
func (d *Detail) Open(id int64) (t LoadTicket, needLoad bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open && d.claimID == id && d.state != Failed {
		return LoadTicket{ClaimID: id, seq: d.seq}, false
	}

	d.open = true
	d.claimID = id
	d.seq++
	d.state = Loading
	d.err = nil
	d.claim = nil
	d.panel.Open(id)
	return LoadTicket{ClaimID: id, seq: d.seq}, true
}

// CompleteLoad applies a finished claim load, dropping it when the view
// moved on in the meantime
func (d *Detail) CompleteLoad(t LoadTicket, claim *model.Claim, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open || t.seq != d.seq || t.ClaimID != d.claimID {
		d.logger.WithField("claim_id", t.ClaimID).Debug("Discarding stale claim load")
		return false
	}
	if err != nil {
		d.state = Failed
		d.err = err
		return true
	}
	d.state = Ready
	d.claim = claim
	return true
}

// Load opens the claim and fetches it from svc when needed
func (d *Detail) Load(ctx context.Context, svc ClaimService, id int64) error {
	t, needLoad := d.Open(id)
	if !needLoad {
		return nil
	}
	claim, err := svc.GetClaim(ctx, id)
	d.CompleteLoad(t, claim, err)
	return err
}

// Close leaves the detail view; the claim and any audit result are dropped
func (d *Detail) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.open = false
	d.claimID = 0
	d.seq++
	d.state = Loading
	d.err = nil
	d.claim = nil
	d.panel.Close()
}

// TriggerAudit puts the panel in Running for the open, loaded claim
func (d *Detail) TriggerAudit() (audit.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return audit.Ticket{}, audit.ErrNoClaim
	}
	if d.state != Ready {
		return audit.Ticket{}, ErrClaimNotLoaded
	}
	return d.panel.Trigger()
}

// ResolveAudit applies an audit response. Late responses for a claim that
// is no longer shown are dropped.
func (d *Detail) ResolveAudit(t audit.Ticket, payload audit.Payload, err error) bool {
	applied := d.panel.Resolve(t, payload, err)
	if !applied {
		d.logger.WithField("claim_id", t.ClaimID).Debug("Discarding stale audit response")
	}
	return applied
}

// RunAudit triggers an audit and waits for it, returning the state the
// panel ended in
func (d *Detail) RunAudit(ctx context.Context, svc ClaimService) (audit.State, error) {
	t, err := d.TriggerAudit()
	if err != nil {
		return nil, err
	}
	payload, err := svc.Verify(ctx, t.ClaimID)
	d.ResolveAudit(t, payload, err)
	return d.panel.State(), nil
}

// Snapshot returns the view as it should be drawn now
func (d *Detail) Snapshot() DetailSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	return DetailSnapshot{
		Open:    d.open,
		ClaimID: d.claimID,
		State:   d.state,
		Err:     d.err,
		Claim:   d.claim,
		Audit:   d.panel.State(),
	}
}
