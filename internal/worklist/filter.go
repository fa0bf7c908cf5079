// Package worklist keeps the claim list view and its free-text filter consistent.
package worklist

import (
	"slices"
	"strings"
	"sync"

	"github.com/ppiankov/claimaudit/internal/model"
)

// Filter returns the claims whose patient_id or payer_name contains query
// as a case-insensitive substring, in source order. The query is trimmed
// and lowercased first; an empty query returns a copy of claims.
// The result never shares storage with the source.
func Filter(claims []model.Claim, query string) []model.Claim {
	q := normalize(query)
	if q == "" {
		return slices.Clone(claims)
	}

	matched := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		if Matches(c, q) {
			matched = append(matched, c)
		}
	}
	return matched
}

// Matches reports whether c matches an already normalized query.
// Only patient_id and payer_name participate.
func Matches(c model.Claim, normalized string) bool {
	if strings.Contains(strings.ToLower(c.PatientID), normalized) {
		return true
	}
	return c.PayerName != nil && strings.Contains(strings.ToLower(*c.PayerName), normalized)
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Engine holds the full claim list and the live query, and recomputes the
// visible subset on every query change.
type Engine struct {
	mu      sync.RWMutex
	all     []model.Claim
	query   string
	visible []model.Claim
}

// NewEngine creates an engine over the list loaded from the claims service.
// The engine keeps its own copy, so later changes to claims are not seen.
func NewEngine(claims []model.Claim) *Engine {
	all := slices.Clone(claims)
	return &Engine{
		all:     all,
		visible: slices.Clone(all),
	}
}

// SetQuery updates the query and returns a copy of the recomputed rows
func (e *Engine) SetQuery(query string) []model.Claim {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.query = query
	e.visible = Filter(e.all, query)
	return slices.Clone(e.visible)
}

// Query returns the query as typed, before normalization
func (e *Engine) Query() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query
}

// Visible returns a copy of the rows matching the current query
func (e *Engine) Visible() []model.Claim {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.visible)
}

// All returns a copy of the full list as loaded
func (e *Engine) All() []model.Claim {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.all)
}

// Len returns the size of the full list
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.all)
}
