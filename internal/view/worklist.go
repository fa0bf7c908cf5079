package view

import (
	"context"
	"sync"

	"github.com/ppiankov/claimaudit/internal/model"
	"github.com/ppiankov/claimaudit/internal/worklist"
)

// WorklistSnapshot is a consistent copy of the worklist view
type WorklistSnapshot struct {
	State LoadState
	Err   error
	Query string
	Rows  []model.WorklistEntry
	Total int
}

// Worklist is the claim list screen: the load of the list plus the
// filter over it. A failed load replaces the screen with the error.
type Worklist struct {
	mu     sync.Mutex
	seq    uint64
	state  LoadState
	err    error
	query  string
	engine *worklist.Engine
}

// NewWorklist creates a worklist that has not loaded yet
func NewWorklist() *Worklist {
	return &Worklist{state: Loading, engine: worklist.NewEngine(nil)}
}

// BeginLoad starts a (re)load. Only the most recent load may complete.
func (w *Worklist) BeginLoad() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	w.state = Loading
	w.err = nil
	return w.seq
}

// CompleteLoad applies a finished load. The typed query survives a reload.
// It returns false when a newer load superseded this one.
func (w *Worklist) CompleteLoad(seq uint64, claims []model.Claim, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.seq {
		return false
	}
	if err != nil {
		w.state = Failed
		w.err = err
		return true
	}

	w.state = Ready
	w.engine = worklist.NewEngine(claims)
	w.engine.SetQuery(w.query)
	return true
}

// Load fetches the list from svc and applies it
func (w *Worklist) Load(ctx context.Context, svc ClaimService) error {
	seq := w.BeginLoad()
	claims, err := svc.ListClaims(ctx)
	w.CompleteLoad(seq, claims, err)
	return err
}

// SetQuery changes the filter and returns the rows now visible
func (w *Worklist) SetQuery(query string) []model.WorklistEntry {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.query = query
	return model.Entries(w.engine.SetQuery(query))
}

// Visible returns the claims matching the current query
func (w *Worklist) Visible() []model.Claim {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Visible()
}

// Snapshot returns the view as it should be drawn now
func (w *Worklist) Snapshot() WorklistSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := WorklistSnapshot{
		State: w.state,
		Err:   w.err,
		Query: w.query,
	}
	if w.state == Ready {
		s.Rows = model.Entries(w.engine.Visible())
		s.Total = w.engine.Len()
	}
	return s
}
