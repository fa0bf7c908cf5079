package server

import (
	"embed"
	"html/template"
	"strings"

	"github.com/ppiankov/claimaudit/internal/model"
	"github.com/ppiankov/claimaudit/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page carries what the shared layout needs
type Page struct {
	Title          string
	RefreshSeconds int // non-zero while an audit is running
}

type worklistPage struct {
	Page
	Query string
	Rows  []model.WorklistEntry
	Total int
}

type detailPage struct {
	Page
	Claim         *model.Claim
	Fields        []model.Field
	Description   string
	Transcription string
	Audit         render.Document
	Running       bool
}

type loadingPage struct {
	Page
	ClaimID int64
}

type errorPage struct {
	Page
	Heading   string
	Message   string
	BackURL   string
	BackLabel string
}

var templateFuncs = template.FuncMap{
	"deref": model.Deref,
	"lower": strings.ToLower,
	"amount": func(v *float64) string {
		if v == nil {
			return "-"
		}
		return model.FormatAmount(*v)
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}
