package authz

import (
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plumline/gatekeeper/internal/apperr"
)

// Audit trail action tags.
const (
	auditActionGranted = "Access granted"
	auditActionUpdated = "Updated"
)

type grantKey struct {
	resourceID string
	subjectID  string
}

// Grant is a recorded discretionary permission assignment, keyed uniquely
// by (resource, subject). Re-granting replaces the level.
type Grant struct {
	ResourceID string     `json:"resource_id"`
	SubjectID  string     `json:"subject_id"`
	Permission Permission `json:"permission"`
	GrantedAt  time.Time  `json:"granted_at"`
	GrantedBy  string     `json:"granted_by"`
}

// GrantStore holds per-resource, per-subject permission grants and their
// audit trail. The single lock serializes grant read-modify-write sequences,
// so concurrent grants to the same key apply last-writer-wins on the level
// with every attempt recorded in application order.
type GrantStore struct {
	mu     sync.RWMutex
	grants map[grantKey]Grant
	audit  map[string][]AuditEntry // resource ID → entries in application order
	now    func() time.Time
	logger zerolog.Logger
}

// NewGrantStore creates an empty grant store. now may be nil to use time.Now.
func NewGrantStore(now func() time.Time, logger zerolog.Logger) *GrantStore {
	if now == nil {
		now = time.Now
	}
	return &GrantStore{
		grants: make(map[grantKey]Grant),
		audit:  make(map[string][]AuditEntry),
		now:    now,
		logger: logger.With().Str("component", "grant_store").Logger(),
	}
}

// Grant upserts the (resource, subject) grant and appends an audit entry.
// The entry is tagged "Access granted" for a first grant and "Updated" when
// a prior grant existed.
func (gs *GrantStore) Grant(resourceID, subjectID string, perm Permission, actorID string) (AuditEntry, error) {
	if strings.TrimSpace(subjectID) == "" {
		return AuditEntry{}, apperr.EmptySubject()
	}
	if !perm.Valid() {
		return AuditEntry{}, apperr.InvalidPermission(string(perm))
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	key := grantKey{resourceID: resourceID, subjectID: subjectID}
	action := auditActionGranted
	if _, exists := gs.grants[key]; exists {
		action = auditActionUpdated
	}

	now := gs.now()
	gs.grants[key] = Grant{
		ResourceID: resourceID,
		SubjectID:  subjectID,
		Permission: perm,
		GrantedAt:  now,
		GrantedBy:  actorID,
	}

	entry := AuditEntry{
		ID:         uuid.New().String(),
		ResourceID: resourceID,
		SubjectID:  subjectID,
		ActorID:    actorID,
		Action:     action,
		Permission: perm,
		Timestamp:  now,
	}
	gs.audit[resourceID] = append(gs.audit[resourceID], entry)

	gs.logger.Info().
		Str("resource_id", resourceID).
		Str("subject_id", subjectID).
		Str("permission", string(perm)).
		Str("actor_id", actorID).
		Str("action", action).
		Msg("grant recorded")

	return entry, nil
}

// PermissionOf returns the active grant level for (resource, subject), or
// false when no grant exists. No side effects.
func (gs *GrantStore) PermissionOf(resourceID, subjectID string) (Permission, bool) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	g, ok := gs.grants[grantKey{resourceID: resourceID, subjectID: subjectID}]
	if !ok {
		return "", false
	}
	return g.Permission, true
}

// AuditLog returns the audit entries for a resource in reverse-chronological
// order (most recent application first). The sequence is restartable and
// empty, not an error, when the resource has no grants. Entries are
// snapshotted at call time, so iteration is safe against concurrent grants.
func (gs *GrantStore) AuditLog(resourceID string) iter.Seq[AuditEntry] {
	gs.mu.RLock()
	entries := make([]AuditEntry, len(gs.audit[resourceID]))
	copy(entries, gs.audit[resourceID])
	gs.mu.RUnlock()

	return func(yield func(AuditEntry) bool) {
		for i := len(entries) - 1; i >= 0; i-- {
			if !yield(entries[i]) {
				return
			}
		}
	}
}

// AuditCount returns the number of audit entries recorded for a resource.
func (gs *GrantStore) AuditCount(resourceID string) int {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return len(gs.audit[resourceID])
}
