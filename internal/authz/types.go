// Package authz implements the authorization decision engine: discretionary
// per-resource grants with an audit trail, and a policy decision point that
// layers time-based, attribute-based and discretionary rules in strict
// precedence.
package authz

import (
	"time"

	"github.com/plumline/gatekeeper/internal/apperr"
)

// Department identifies the organizational unit a subject or resource
// belongs to. The valid set is configured per deployment.
type Department string

const (
	DeptIT      Department = "IT"
	DeptFinance Department = "Finance"
)

// Sensitivity classifies a resource. Levels form a total order:
// Public < Internal < Confidential.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "Public"
	SensitivityInternal     Sensitivity = "Internal"
	SensitivityConfidential Sensitivity = "Confidential"
)

var sensitivityRank = map[Sensitivity]int{
	SensitivityPublic:       0,
	SensitivityInternal:     1,
	SensitivityConfidential: 2,
}

// AtLeast reports whether s is at least as sensitive as other.
func (s Sensitivity) AtLeast(other Sensitivity) bool {
	return sensitivityRank[s] >= sensitivityRank[other]
}

// Valid reports whether s is one of the three defined levels.
func (s Sensitivity) Valid() bool {
	_, ok := sensitivityRank[s]
	return ok
}

// Permission is a discretionary grant level. Levels form an order
// Read < Write < Manage; a higher level implies every capability of the
// levels below it.
type Permission string

const (
	PermissionRead   Permission = "Read"
	PermissionWrite  Permission = "Write"
	PermissionManage Permission = "Manage"
)

var permissionRank = map[Permission]int{
	PermissionRead:   1,
	PermissionWrite:  2,
	PermissionManage: 3,
}

// Covers reports whether p grants every capability of required.
func (p Permission) Covers(required Permission) bool {
	return permissionRank[p] >= permissionRank[required]
}

// Valid reports whether p is one of the three defined levels.
func (p Permission) Valid() bool {
	_, ok := permissionRank[p]
	return ok
}

// ParsePermission validates a raw permission string.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(raw)
	if !p.Valid() {
		return "", apperr.InvalidPermission(raw)
	}
	return p, nil
}

// Action is an operation a subject attempts on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
	ActionShare  Action = "share"
)

// Mutating reports whether the action changes resource state or access.
// Mutating actions are blocked outside working hours.
func (a Action) Mutating() bool {
	return a == ActionWrite || a == ActionDelete || a == ActionShare
}

// requiredPermission maps an action to the minimum grant level that
// authorizes it. Sharing (granting others) always requires Manage.
func (a Action) requiredPermission() Permission {
	switch a {
	case ActionRead:
		return PermissionRead
	case ActionWrite, ActionDelete:
		return PermissionWrite
	default:
		return PermissionManage
	}
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionDelete, ActionShare:
		return true
	}
	return false
}

// Subject is the identity a decision is evaluated for. Supplied by the
// caller; the engine never mutates it.
type Subject struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Department Department `json:"department"`
	Role       string     `json:"role,omitempty"`
}

// Resource is an inventory item under access control. Immutable during a
// decision; mutated only through the guarded directory operations.
type Resource struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Quantity    int         `json:"quantity"`
	Sensitivity Sensitivity `json:"sensitivity"`
	Department  Department  `json:"department"`
	LastUpdated time.Time   `json:"last_updated"`
}

// EvaluationContext carries the temporal context of a decision. When
// AfterHours is true, mutating actions are denied regardless of grants.
type EvaluationContext struct {
	At         time.Time `json:"at"`
	AfterHours bool      `json:"after_hours"`
}

// ReasonCode attributes a decision to exactly one rule.
type ReasonCode string

const (
	ReasonOK                 ReasonCode = "OK"
	ReasonAfterHoursReadonly ReasonCode = "AFTER_HOURS_READONLY"
	ReasonDepartmentMismatch ReasonCode = "DEPARTMENT_MISMATCH"
	ReasonInsufficientGrant  ReasonCode = "INSUFFICIENT_GRANT"
)

// Decision is the outcome of a policy evaluation. A deny is a valid,
// successful evaluation, not an error.
type Decision struct {
	Allow  bool       `json:"allow"`
	Reason ReasonCode `json:"reason"`
}

// AuditEntry is an immutable record of a permission-affecting event.
type AuditEntry struct {
	ID         string     `json:"id"`
	ResourceID string     `json:"resource_id"`
	SubjectID  string     `json:"subject_id"`
	ActorID    string     `json:"actor_id"`
	Action     string     `json:"action"`
	Permission Permission `json:"permission"`
	Timestamp  time.Time  `json:"timestamp"`
}
