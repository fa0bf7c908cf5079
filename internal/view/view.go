// Package view holds the two screens of the claim viewer, the worklist and
// the claim detail, as state machines independent of how they are drawn.
// Each view owns its state behind its own mutex; responses from the claims
// service are applied only while they still match what the view shows.
package view

import (
	"context"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/model"
)

// ClaimService is the claims/verification service as the views see it
type ClaimService interface {
	ListClaims(ctx context.Context) ([]model.Claim, error)
	GetClaim(ctx context.Context, id int64) (*model.Claim, error)
	Verify(ctx context.Context, id int64) (audit.Payload, error)
}

// LoadState is the progress of a claim list or claim detail load
type LoadState int

const (
	Loading LoadState = iota
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}
