// Package approval implements the purchase-order approval workflow: a state
// machine driven by a monetary-threshold rule at submission and manual
// approve/reject transitions thereafter.
package approval

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plumline/gatekeeper/internal/apperr"
)

// Status is the lifecycle state of a purchase order.
// Pending is the only non-terminal state.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// PurchaseOrder is a procurement request. RequiresApproval is computed once
// at submission from the amount threshold and never recomputed; it captures
// intent at request time.
type PurchaseOrder struct {
	ID               string     `json:"id"`
	ItemName         string     `json:"item_name"`
	Vendor           string     `json:"vendor"`
	Amount           float64    `json:"amount"`
	Status           Status     `json:"status"`
	RequestedBy      string     `json:"requested_by"`
	RequestedAt      time.Time  `json:"requested_at"`
	RequiresApproval bool       `json:"requires_approval"`
	DecidedBy        string     `json:"decided_by,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
}

// Engine manages purchase-order lifecycle. The single lock covers each
// status read-modify-write, so two concurrent transitions on one order yield
// exactly one success and one invalid-transition error.
type Engine struct {
	mu        sync.RWMutex
	orders    map[string]*PurchaseOrder
	orderList []string // IDs in submission order
	threshold float64
	now       func() time.Time
	logger    zerolog.Logger
}

// NewEngine creates a workflow engine with the given approval threshold.
// now may be nil to use time.Now.
func NewEngine(threshold float64, now func() time.Time, logger zerolog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		orders:    make(map[string]*PurchaseOrder),
		threshold: threshold,
		now:       now,
		logger:    logger.With().Str("component", "approval").Logger(),
	}
}

// Threshold returns the configured approval threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Submit creates a Pending order. The amount must be a finite non-negative
// number; RequiresApproval is frozen here as amount > threshold.
func (e *Engine) Submit(itemName, vendor string, amount float64, requestedBy string) (*PurchaseOrder, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, apperr.InvalidAmount(amount)
	}
	if strings.TrimSpace(itemName) == "" {
		return nil, apperr.BlankField("item name")
	}
	if strings.TrimSpace(vendor) == "" {
		return nil, apperr.BlankField("vendor")
	}

	order := &PurchaseOrder{
		ID:               "PO-" + uuid.New().String(),
		ItemName:         itemName,
		Vendor:           vendor,
		Amount:           amount,
		Status:           StatusPending,
		RequestedBy:      requestedBy,
		RequestedAt:      e.now(),
		RequiresApproval: amount > e.threshold,
	}

	e.mu.Lock()
	e.orders[order.ID] = order
	e.orderList = append(e.orderList, order.ID)
	e.mu.Unlock()

	e.logger.Info().
		Str("order_id", order.ID).
		Str("item", itemName).
		Str("vendor", vendor).
		Float64("amount", amount).
		Bool("requires_approval", order.RequiresApproval).
		Str("requested_by", requestedBy).
		Msg("purchase order submitted")

	snap := *order
	return &snap, nil
}

// Approve transitions a Pending order to Approved. Orders below the
// threshold may still be explicitly approved: RequiresApproval signals that
// review is mandatory, not that review is forbidden.
func (e *Engine) Approve(orderID, approverID string) (*PurchaseOrder, error) {
	return e.transition(orderID, approverID, StatusApproved, "")
}

// Reject transitions a Pending order to Rejected, retaining the reason for
// audit.
func (e *Engine) Reject(orderID, approverID, reason string) (*PurchaseOrder, error) {
	return e.transition(orderID, approverID, StatusRejected, reason)
}

func (e *Engine) transition(orderID, actorID string, to Status, reason string) (*PurchaseOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("purchase order", orderID)
	}

	// Terminal states are one-way; a failed attempt never mutates the order.
	if order.Status != StatusPending {
		return nil, apperr.InvalidTransition(orderID, string(order.Status), string(to))
	}

	now := e.now()
	order.Status = to
	order.DecidedBy = actorID
	order.DecidedAt = &now
	order.RejectionReason = reason

	e.logger.Info().
		Str("order_id", orderID).
		Str("status", string(to)).
		Str("actor_id", actorID).
		Msg("purchase order transitioned")

	snap := *order
	return &snap, nil
}

// Get returns a copy of an order.
func (e *Engine) Get(orderID string) (*PurchaseOrder, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("purchase order", orderID)
	}
	snap := *order
	return &snap, nil
}

// PendingApprovals returns orders that are Pending and flagged for review,
// oldest first, so older high-value requests surface first in the queue.
func (e *Engine) PendingApprovals() []*PurchaseOrder {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var result []*PurchaseOrder
	for _, id := range e.orderList {
		order := e.orders[id]
		if order != nil && order.Status == StatusPending && order.RequiresApproval {
			snap := *order
			result = append(result, &snap)
		}
	}
	return result
}

// List returns orders in submission order, optionally filtered by status.
func (e *Engine) List(status Status) []*PurchaseOrder {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var result []*PurchaseOrder
	for _, id := range e.orderList {
		order := e.orders[id]
		if order == nil {
			continue
		}
		if status != "" && order.Status != status {
			continue
		}
		snap := *order
		result = append(result, &snap)
	}
	return result
}

// Count returns the total number of orders.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.orderList)
}
