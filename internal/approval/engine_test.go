package approval

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumline/gatekeeper/internal/apperr"
)

func newTestEngine() *Engine {
	return NewEngine(5000, nil, zerolog.Nop())
}

func TestEngine_Submit(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Dell Laptop Computers", "Dell Inc.", 1200, "user123")
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Contains(t, order.ID, "PO-")
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, "user123", order.RequestedBy)
	assert.False(t, order.RequestedAt.IsZero())
	assert.False(t, order.RequiresApproval)
	assert.Equal(t, 1, e.Count())
}

func TestEngine_Submit_ThresholdBoundary(t *testing.T) {
	e := newTestEngine()

	atThreshold, err := e.Submit("Office Furniture Set", "IKEA Business", 5000, "user123")
	require.NoError(t, err)
	assert.False(t, atThreshold.RequiresApproval)

	aboveThreshold, err := e.Submit("Enterprise Software License", "Microsoft Corp", 5000.01, "user123")
	require.NoError(t, err)
	assert.True(t, aboveThreshold.RequiresApproval)
}

func TestEngine_Submit_InvalidAmount(t *testing.T) {
	e := newTestEngine()

	for _, amount := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := e.Submit("Item", "Vendor", amount, "user123")
		require.Error(t, err, "amount %v", amount)
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	}
	assert.Equal(t, 0, e.Count())
}

func TestEngine_Submit_ZeroAmount(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Free Sample", "Vendor", 0, "user123")
	require.NoError(t, err)
	assert.False(t, order.RequiresApproval)
}

func TestEngine_Submit_BlankFields(t *testing.T) {
	e := newTestEngine()

	_, err := e.Submit("", "Vendor", 100, "user123")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = e.Submit("Item", "  ", 100, "user123")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestEngine_Approve(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Cloud Infrastructure Annual Plan", "AWS", 48000, "user789")
	require.NoError(t, err)

	approved, err := e.Approve(order.ID, "mgr1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "mgr1", approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)
}

func TestEngine_Approve_BelowThresholdStillAllowed(t *testing.T) {
	e := newTestEngine()

	// RequiresApproval signals mandatory review, not forbidden review.
	order, err := e.Submit("Office Furniture Set", "IKEA Business", 3200, "user456")
	require.NoError(t, err)
	require.False(t, order.RequiresApproval)

	approved, err := e.Approve(order.ID, "mgr1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
}

func TestEngine_Reject(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Enterprise Software License", "Microsoft Corp", 12500, "user123")
	require.NoError(t, err)

	rejected, err := e.Reject(order.ID, "mgr1", "over budget")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "over budget", rejected.RejectionReason)
}

func TestEngine_Transition_NotFound(t *testing.T) {
	e := newTestEngine()

	_, err := e.Approve("PO-missing", "mgr1")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestEngine_Terminality(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Enterprise Software License", "Microsoft Corp", 12500, "user123")
	require.NoError(t, err)

	_, err = e.Approve(order.ID, "mgr1")
	require.NoError(t, err)

	// A terminal order never transitions again, and the failed attempt
	// never mutates it.
	_, err = e.Reject(order.ID, "mgr2", "changed my mind")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))

	current, err := e.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, current.Status)
	assert.Equal(t, "mgr1", current.DecidedBy)
	assert.Empty(t, current.RejectionReason)

	_, err = e.Approve(order.ID, "mgr3")
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}

func TestEngine_ConcurrentApprove_OneWinner(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Enterprise Software License", "Microsoft Corp", 12500, "user123")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = e.Approve(order.ID, "mgr1")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
		}
	}
	assert.Equal(t, 1, successes)
}

func TestEngine_PendingApprovals_OldestFirst(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	e := NewEngine(5000, func() time.Time {
		now = now.Add(time.Minute)
		return now
	}, zerolog.Nop())

	first, err := e.Submit("Enterprise Software License", "Microsoft Corp", 12500, "user123")
	require.NoError(t, err)
	_, err = e.Submit("Office Furniture Set", "IKEA Business", 3200, "user456")
	require.NoError(t, err)
	second, err := e.Submit("Cloud Infrastructure Annual Plan", "AWS", 48000, "user789")
	require.NoError(t, err)

	pending := e.PendingApprovals()
	require.Len(t, pending, 2) // the low-value order needs no review
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestEngine_PendingApprovals_DropsDecidedOrders(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Cloud Infrastructure Annual Plan", "AWS", 48000, "user789")
	require.NoError(t, err)
	require.True(t, order.RequiresApproval)
	require.Len(t, e.PendingApprovals(), 1)

	approved, err := e.Approve(order.ID, "mgr1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	assert.Empty(t, e.PendingApprovals())
}

func TestEngine_List_StatusFilter(t *testing.T) {
	e := newTestEngine()

	a, err := e.Submit("Item A", "Vendor", 100, "user123")
	require.NoError(t, err)
	_, err = e.Submit("Item B", "Vendor", 200, "user123")
	require.NoError(t, err)

	_, err = e.Approve(a.ID, "mgr1")
	require.NoError(t, err)

	all := e.List("")
	assert.Len(t, all, 2)

	approved := e.List(StatusApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, a.ID, approved[0].ID)

	pending := e.List(StatusPending)
	assert.Len(t, pending, 1)
}

func TestEngine_Get_ReturnsCopy(t *testing.T) {
	e := newTestEngine()

	order, err := e.Submit("Item", "Vendor", 100, "user123")
	require.NoError(t, err)

	snap, err := e.Get(order.ID)
	require.NoError(t, err)
	snap.Status = StatusRejected

	current, err := e.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, current.Status)
}
