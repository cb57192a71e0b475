package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/plumline/gatekeeper/internal/apperr"
	"github.com/plumline/gatekeeper/internal/approval"
	"github.com/plumline/gatekeeper/internal/authz"
	"github.com/plumline/gatekeeper/internal/directory"
	"github.com/plumline/gatekeeper/internal/health"
	"github.com/plumline/gatekeeper/internal/metrics"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	dir       *directory.Directory
	resolver  *directory.Resolver
	grants    *authz.GrantStore
	pdp       *authz.PDP
	clock     *authz.ContextProvider
	approvals *approval.Engine
	checker   *health.Checker
	metrics   *metrics.Metrics
	cfgView   ConfigResponse
	logger    zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	dir *directory.Directory,
	grants *authz.GrantStore,
	pdp *authz.PDP,
	clock *authz.ContextProvider,
	approvals *approval.Engine,
	checker *health.Checker,
	m *metrics.Metrics,
	cfgView ConfigResponse,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		dir:       dir,
		resolver:  directory.NewResolver(dir),
		grants:    grants,
		pdp:       pdp,
		clock:     clock,
		approvals: approvals,
		checker:   checker,
		metrics:   m,
		cfgView:   cfgView,
		logger:    logger.With().Str("component", "handlers").Logger(),
	}
}

// engineError maps the engine's error taxonomy onto problem responses.
func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, apperr.ErrInvalidTransition):
		return problemResponse(c, fiber.StatusConflict,
			"invalid_transition", "Conflict", err.Error())
	case errors.Is(err, apperr.ErrInvalidInput):
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", err.Error())
	default:
		return problemResponse(c, fiber.StatusInternalServerError,
			"internal_error", "Internal Server Error", err.Error())
	}
}

// --- Decisions ---

// Decide handles POST /api/v1/decisions. A denial is a successful
// evaluation: the response is 200 with allow=false.
func (h *Handlers) Decide(c *fiber.Ctx) error {
	var req DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	action := authz.Action(req.Action)
	if !action.Valid() {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_action", "Bad Request",
			"Unknown action: "+req.Action)
	}

	attrs, err := h.resolver.Resolve(req.SubjectID, req.ResourceID)
	if err != nil {
		return engineError(c, err)
	}

	evalCtx := h.clock.Current(req.AfterHours)
	decision := h.pdp.Decide(attrs.Subject, attrs.Resource, action, evalCtx)
	h.metrics.RecordDecision(string(action), string(decision.Reason))

	return c.JSON(DecisionResponse{
		Allow:   decision.Allow,
		Reason:  decision.Reason,
		Context: evalCtx,
	})
}

// --- Grants ---

// CreateGrant handles POST /api/v1/grants.
func (h *Handlers) CreateGrant(c *fiber.Ctx) error {
	var req GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	perm, err := authz.ParsePermission(req.Permission)
	if err != nil {
		return engineError(c, err)
	}

	// The grant target resource must exist.
	if _, err := h.dir.Resource(req.ResourceID); err != nil {
		return engineError(c, err)
	}

	actorID := req.ActorID
	if actorID == "" {
		actorID = CallerID(c)
	}

	entry, err := h.grants.Grant(req.ResourceID, req.SubjectID, perm, actorID)
	if err != nil {
		return engineError(c, err)
	}

	h.metrics.RecordGrant(entry.Action)
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// AuditLog handles GET /api/v1/grants/:resourceID/audit.
func (h *Handlers) AuditLog(c *fiber.Ctx) error {
	resourceID := c.Params("resourceID")

	entries := []authz.AuditEntry{}
	for entry := range h.grants.AuditLog(resourceID) {
		entries = append(entries, entry)
	}

	return c.JSON(AuditLogResponse{
		ResourceID: resourceID,
		Entries:    entries,
	})
}

// --- Purchase orders ---

// SubmitOrder handles POST /api/v1/purchase-orders.
func (h *Handlers) SubmitOrder(c *fiber.Ctx) error {
	var req SubmitOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	requestedBy := req.RequestedBy
	if requestedBy == "" {
		requestedBy = CallerID(c)
	}

	order, err := h.approvals.Submit(req.ItemName, req.Vendor, req.Amount, requestedBy)
	if err != nil {
		return engineError(c, err)
	}

	h.metrics.RecordOrder()
	return c.Status(fiber.StatusCreated).JSON(order)
}

// ApproveOrder handles POST /api/v1/purchase-orders/:id/approve.
func (h *Handlers) ApproveOrder(c *fiber.Ctx) error {
	return h.transitionOrder(c, approval.StatusApproved)
}

// RejectOrder handles POST /api/v1/purchase-orders/:id/reject.
func (h *Handlers) RejectOrder(c *fiber.Ctx) error {
	return h.transitionOrder(c, approval.StatusRejected)
}

func (h *Handlers) transitionOrder(c *fiber.Ctx, to approval.Status) error {
	id := c.Params("id")

	var req TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_body", "Bad Request",
				"Invalid request body: "+err.Error())
		}
	}

	approverID := req.ApproverID
	if approverID == "" {
		approverID = CallerID(c)
	}

	var (
		order *approval.PurchaseOrder
		err   error
	)
	if to == approval.StatusApproved {
		order, err = h.approvals.Approve(id, approverID)
	} else {
		order, err = h.approvals.Reject(id, approverID, req.Reason)
	}
	if err != nil {
		h.metrics.RecordTransition(string(to), "error")
		return engineError(c, err)
	}

	h.metrics.RecordTransition(string(to), "ok")
	return c.JSON(order)
}

// PendingOrders handles GET /api/v1/purchase-orders/pending.
func (h *Handlers) PendingOrders(c *fiber.Ctx) error {
	orders := h.approvals.PendingApprovals()
	if orders == nil {
		orders = []*approval.PurchaseOrder{}
	}
	return c.JSON(orders)
}

// ListOrders handles GET /api/v1/purchase-orders.
func (h *Handlers) ListOrders(c *fiber.Ctx) error {
	status := approval.Status(c.Query("status"))
	orders := h.approvals.List(status)
	if orders == nil {
		orders = []*approval.PurchaseOrder{}
	}
	return c.JSON(orders)
}

// GetOrder handles GET /api/v1/purchase-orders/:id.
func (h *Handlers) GetOrder(c *fiber.Ctx) error {
	order, err := h.approvals.Get(c.Params("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(order)
}

// --- Directory ---

// CreateSubject handles POST /api/v1/subjects.
func (h *Handlers) CreateSubject(c *fiber.Ctx) error {
	var subject authz.Subject
	if err := c.BodyParser(&subject); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if err := h.dir.PutSubject(subject); err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(subject)
}

// CreateResource handles POST /api/v1/resources.
func (h *Handlers) CreateResource(c *fiber.Ctx) error {
	var resource authz.Resource
	if err := c.BodyParser(&resource); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if resource.ID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_input", "Bad Request", "Resource ID is required")
	}

	if err := h.dir.PutResource(resource); err != nil {
		return engineError(c, err)
	}

	stored, err := h.dir.Resource(resource.ID)
	if err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

// ListResources handles GET /api/v1/resources with an optional department
// filter.
func (h *Handlers) ListResources(c *fiber.Ctx) error {
	department := authz.Department(c.Query("department"))
	return c.JSON(ResourceListResponse{
		Resources: h.dir.ListResources(department),
	})
}

// RenameResource handles PATCH /api/v1/resources/:id. The rename is routed
// through the decision point as a write action.
func (h *Handlers) RenameResource(c *fiber.Ctx) error {
	id := c.Params("id")

	var req RenameResourceRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if denied := h.guardMutation(c, req.SubjectID, id, authz.ActionWrite, req.AfterHours); denied != nil {
		return denied
	}

	resource, err := h.dir.RenameResource(id, req.Name)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(resource)
}

// DeleteResource handles DELETE /api/v1/resources/:id, routed through the
// decision point as a delete action. Subject and optional after_hours
// override come from query parameters.
func (h *Handlers) DeleteResource(c *fiber.Ctx) error {
	id := c.Params("id")
	subjectID := c.Query("subject_id")

	var override *bool
	if raw := c.Query("after_hours"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_input", "Bad Request",
				"after_hours must be a boolean")
		}
		override = &v
	}

	if denied := h.guardMutation(c, subjectID, id, authz.ActionDelete, override); denied != nil {
		return denied
	}

	if err := h.dir.DeleteResource(id); err != nil {
		return engineError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// guardMutation evaluates a mutation against the decision point. Returns a
// non-nil response for resolution failures and denials, nil when allowed.
func (h *Handlers) guardMutation(c *fiber.Ctx, subjectID, resourceID string, action authz.Action, override *bool) error {
	attrs, err := h.resolver.Resolve(subjectID, resourceID)
	if err != nil {
		return engineError(c, err)
	}

	evalCtx := h.clock.Current(override)
	decision := h.pdp.Decide(attrs.Subject, attrs.Resource, action, evalCtx)
	h.metrics.RecordDecision(string(action), string(decision.Reason))

	if !decision.Allow {
		return problemResponse(c, fiber.StatusForbidden,
			"access_denied", "Forbidden",
			"Denied: "+string(decision.Reason))
	}
	return nil
}

// --- Config & probes ---

// GetConfig handles GET /api/v1/config.
func (h *Handlers) GetConfig(c *fiber.Ctx) error {
	return c.JSON(h.cfgView)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
