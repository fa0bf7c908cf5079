package audit

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoClaim is returned when an audit is triggered with no claim open
	ErrNoClaim = errors.New("no claim open")
	// ErrAuditInFlight is returned when an audit is triggered while one is
	// already running for the open claim
	ErrAuditInFlight = errors.New("audit already running for this claim")
)

// Ticket identifies one audit invocation. A response is applied only while
// its ticket is still the panel's current one.
type Ticket struct {
	ClaimID int64
	seq     uint64
}

// Panel is the verification panel of the detail view. It holds the state
// for the open claim only; switching claims or closing the view
// invalidates every outstanding ticket.
type Panel struct {
	mu      sync.Mutex
	claimID int64
	open    bool
	seq     uint64
	state   State
	now     func() time.Time
}

// NewPanel creates a closed panel
func NewPanel() *Panel {
	return &Panel{state: Idle{}, now: time.Now}
}

// Open shows the panel for a claim. Opening a different claim resets to
// Idle; reopening the claim already shown keeps its state.
func (p *Panel) Open(claimID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open && p.claimID == claimID {
		return
	}
	p.claimID = claimID
	p.open = true
	p.seq++
	p.state = Idle{}
}

// Close discards the result and any in-flight audit of the open claim
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.open = false
	p.claimID = 0
	p.seq++
	p.state = Idle{}
}

// Trigger starts an audit of the open claim: the previous result or error
// is cleared and the panel enters Running before any request is sent.
// A second trigger while Running is refused.
func (p *Panel) Trigger() (Ticket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return Ticket{}, ErrNoClaim
	}
	if _, running := p.state.(Running); running {
		return Ticket{}, ErrAuditInFlight
	}

	p.seq++
	p.state = Running{StartedAt: p.now()}
	return Ticket{ClaimID: p.claimID, seq: p.seq}, nil
}

// Resolve applies the outcome of the audit identified by t. It returns
// false, leaving the panel untouched, when the ticket is stale: the view
// moved to another claim, was closed, or a newer audit started.
func (p *Panel) Resolve(t Ticket, payload Payload, err error) bool {
	state := Outcome(payload, err)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open || t.seq != p.seq || t.ClaimID != p.claimID {
		return false
	}
	p.state = state
	return true
}

// State returns the current presentation state
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ClaimID returns the open claim, ok is false when the panel is closed
func (p *Panel) ClaimID() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.claimID, p.open
}

// IsRunning reports whether an audit is in flight for the open claim
func (p *Panel) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, running := p.state.(Running)
	return running
}
