// Package api provides the HTTP service surface for the gatekeeper engine.
package api

import (
	"github.com/plumline/gatekeeper/internal/authz"
)

// --- Request DTOs ---

// DecisionRequest is the payload for POST /api/v1/decisions. AfterHours is
// an explicit override; when nil the working-hours clock decides.
type DecisionRequest struct {
	SubjectID  string `json:"subject_id"`
	ResourceID string `json:"resource_id"`
	Action     string `json:"action"`
	AfterHours *bool  `json:"after_hours,omitempty"`
}

// GrantRequest is the payload for POST /api/v1/grants.
type GrantRequest struct {
	ResourceID string `json:"resource_id"`
	SubjectID  string `json:"subject_id"`
	Permission string `json:"permission"`
	ActorID    string `json:"actor_id,omitempty"`
}

// SubmitOrderRequest is the payload for POST /api/v1/purchase-orders.
type SubmitOrderRequest struct {
	ItemName    string  `json:"item_name"`
	Vendor      string  `json:"vendor"`
	Amount      float64 `json:"amount"`
	RequestedBy string  `json:"requested_by,omitempty"`
}

// TransitionRequest is the payload for approve/reject calls.
type TransitionRequest struct {
	ApproverID string `json:"approver_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// RenameResourceRequest is the payload for PATCH /api/v1/resources/:id.
// The rename is evaluated as a write action for the given subject.
type RenameResourceRequest struct {
	SubjectID  string `json:"subject_id"`
	Name       string `json:"name"`
	AfterHours *bool  `json:"after_hours,omitempty"`
}

// --- Response DTOs ---

// DecisionResponse is the outcome of a decision evaluation.
type DecisionResponse struct {
	Allow   bool                    `json:"allow"`
	Reason  authz.ReasonCode        `json:"reason"`
	Context authz.EvaluationContext `json:"context"`
}

// AuditLogResponse wraps a resource's audit trail, most recent first.
type AuditLogResponse struct {
	ResourceID string             `json:"resource_id"`
	Entries    []authz.AuditEntry `json:"entries"`
}

// ResourceListResponse wraps a directory listing.
type ResourceListResponse struct {
	Resources []authz.Resource `json:"resources"`
}

// ConfigResponse is the engine policy view for GET /api/v1/config.
type ConfigResponse struct {
	Environment               string   `json:"environment"`
	ApprovalThreshold         float64  `json:"approval_threshold"`
	WorkingHoursStart         string   `json:"working_hours_start"`
	WorkingHoursEnd           string   `json:"working_hours_end"`
	DepartmentScopingEnforced bool     `json:"department_scoping_enforced"`
	Departments               []string `json:"departments"`
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
