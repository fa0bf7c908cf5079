package audit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanel_StartsIdleAndClosed(t *testing.T) {
	p := NewPanel()

	assert.IsType(t, Idle{}, p.State())
	_, open := p.ClaimID()
	assert.False(t, open)

	_, err := p.Trigger()
	assert.ErrorIs(t, err, ErrNoClaim)
}

func TestPanel_TriggerClearsPriorResult(t *testing.T) {
	p := NewPanel()
	p.Open(7)

	ticket, err := p.Trigger()
	require.NoError(t, err)
	require.True(t, p.Resolve(ticket, Payload{"verdict": "DENIED"}, nil))
	require.IsType(t, Verdict{}, p.State())

	_, err = p.Trigger()
	require.NoError(t, err)

	assert.IsType(t, Running{}, p.State(), "stale verdict must not survive a new trigger")
	assert.True(t, p.IsRunning())
}

func TestPanel_TriggerClearsPriorError(t *testing.T) {
	p := NewPanel()
	p.Open(7)

	ticket, _ := p.Trigger()
	p.Resolve(ticket, nil, errors.New("connection refused"))
	require.IsType(t, TransportFailed{}, p.State())

	_, err := p.Trigger()
	require.NoError(t, err)
	assert.IsType(t, Running{}, p.State())
}

func TestPanel_TriggerWhileRunningIsRefused(t *testing.T) {
	p := NewPanel()
	p.Open(1)

	first, err := p.Trigger()
	require.NoError(t, err)

	_, err = p.Trigger()
	assert.ErrorIs(t, err, ErrAuditInFlight)

	// The first request still resolves normally
	assert.True(t, p.Resolve(first, Payload{"raw_output": "x"}, nil))
	assert.IsType(t, RawFallback{}, p.State())
}

func TestPanel_RunningRecordsStart(t *testing.T) {
	p := NewPanel()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	p.Open(1)

	_, err := p.Trigger()
	require.NoError(t, err)

	running, ok := p.State().(Running)
	require.True(t, ok)
	assert.Equal(t, fixed, running.StartedAt)
}

func TestPanel_LateResponseForOtherClaimIsDiscarded(t *testing.T) {
	p := NewPanel()
	p.Open(1) // claim A

	ticketA, err := p.Trigger()
	require.NoError(t, err)

	p.Open(2) // navigate to claim B while A is in flight
	assert.IsType(t, Idle{}, p.State())

	applied := p.Resolve(ticketA, Payload{"verdict": "APPROVED"}, nil)

	assert.False(t, applied)
	assert.IsType(t, Idle{}, p.State(), "A's response must never show under B")
	id, open := p.ClaimID()
	assert.True(t, open)
	assert.Equal(t, int64(2), id)
}

func TestPanel_LateResponseAfterReturningToSameClaimIsDiscarded(t *testing.T) {
	p := NewPanel()
	p.Open(1)
	ticket, _ := p.Trigger()

	p.Open(2)
	p.Open(1) // back to A: a fresh visit

	assert.False(t, p.Resolve(ticket, Payload{"verdict": "APPROVED"}, nil))
	assert.IsType(t, Idle{}, p.State())
}

func TestPanel_LateResponseAfterCloseIsDiscarded(t *testing.T) {
	p := NewPanel()
	p.Open(3)
	ticket, _ := p.Trigger()

	p.Close()

	assert.False(t, p.Resolve(ticket, nil, errors.New("boom")))
	assert.IsType(t, Idle{}, p.State())
}

func TestPanel_ReopenSameClaimKeepsState(t *testing.T) {
	p := NewPanel()
	p.Open(5)
	ticket, _ := p.Trigger()

	p.Open(5) // page reload while running

	assert.IsType(t, Running{}, p.State())
	assert.True(t, p.Resolve(ticket, Payload{"status": "error", "message": "x"}, nil))
	assert.IsType(t, PipelineFailure{}, p.State())
}

func TestPanel_TransportFailure(t *testing.T) {
	p := NewPanel()
	p.Open(9)
	ticket, _ := p.Trigger()

	require.True(t, p.Resolve(ticket, Payload{"verdict": "APPROVED"}, errors.New("verification service returned 502 Bad Gateway")))

	failed, ok := p.State().(TransportFailed)
	require.True(t, ok)
	assert.Contains(t, failed.Reason, "502")
}

func TestPanel_ConcurrentResolveAndNavigate(t *testing.T) {
	p := NewPanel()
	p.Open(1)
	ticket, _ := p.Trigger()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.Resolve(ticket, Payload{"verdict": "APPROVED"}, nil)
	}()
	go func() {
		defer wg.Done()
		p.Open(2)
	}()
	wg.Wait()

	// Whatever the interleaving, claim 2 never shows claim 1's verdict
	id, _ := p.ClaimID()
	require.Equal(t, int64(2), id)
	assert.IsType(t, Idle{}, p.State())
}
