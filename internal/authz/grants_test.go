package authz

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrantStore() *GrantStore {
	return NewGrantStore(nil, zerolog.Nop())
}

func collectAudit(gs *GrantStore, resourceID string) []AuditEntry {
	var entries []AuditEntry
	for e := range gs.AuditLog(resourceID) {
		entries = append(entries, e)
	}
	return entries
}

func TestGrantStore_Grant(t *testing.T) {
	gs := newTestGrantStore()

	entry, err := gs.Grant("res-1", "user123", PermissionRead, "owner1")
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "res-1", entry.ResourceID)
	assert.Equal(t, "user123", entry.SubjectID)
	assert.Equal(t, "owner1", entry.ActorID)
	assert.Equal(t, "Access granted", entry.Action)
	assert.Equal(t, PermissionRead, entry.Permission)
	assert.False(t, entry.Timestamp.IsZero())

	perm, ok := gs.PermissionOf("res-1", "user123")
	require.True(t, ok)
	assert.Equal(t, PermissionRead, perm)
}

func TestGrantStore_Grant_EmptySubject(t *testing.T) {
	gs := newTestGrantStore()

	_, err := gs.Grant("res-1", "  ", PermissionRead, "owner1")
	require.Error(t, err)
	assert.Equal(t, 0, gs.AuditCount("res-1"))
}

func TestGrantStore_Grant_InvalidPermission(t *testing.T) {
	gs := newTestGrantStore()

	_, err := gs.Grant("res-1", "user123", Permission("Admin"), "owner1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Admin")
	assert.Equal(t, 0, gs.AuditCount("res-1"))
}

func TestGrantStore_Regrant_ReplacesLevel(t *testing.T) {
	gs := newTestGrantStore()

	_, err := gs.Grant("res-1", "user123", PermissionRead, "owner1")
	require.NoError(t, err)
	entry, err := gs.Grant("res-1", "user123", PermissionManage, "owner1")
	require.NoError(t, err)

	assert.Equal(t, "Updated", entry.Action)

	perm, ok := gs.PermissionOf("res-1", "user123")
	require.True(t, ok)
	assert.Equal(t, PermissionManage, perm)
}

func TestGrantStore_Regrant_SameLevelTwice(t *testing.T) {
	gs := newTestGrantStore()

	// Two identical grants leave one active permission but two audit entries.
	_, err := gs.Grant("res-1", "user123", PermissionWrite, "owner1")
	require.NoError(t, err)
	_, err = gs.Grant("res-1", "user123", PermissionWrite, "owner1")
	require.NoError(t, err)

	perm, ok := gs.PermissionOf("res-1", "user123")
	require.True(t, ok)
	assert.Equal(t, PermissionWrite, perm)
	assert.Equal(t, 2, gs.AuditCount("res-1"))
}

func TestGrantStore_PermissionOf_NoGrant(t *testing.T) {
	gs := newTestGrantStore()

	_, ok := gs.PermissionOf("res-1", "user123")
	assert.False(t, ok)
}

func TestGrantStore_AuditLog_Empty(t *testing.T) {
	gs := newTestGrantStore()

	entries := collectAudit(gs, "res-1")
	assert.Empty(t, entries)
}

func TestGrantStore_AuditLog_ReverseChronological(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	gs := NewGrantStore(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}, zerolog.Nop())

	_, err := gs.Grant("res-1", "userA", PermissionRead, "owner1")
	require.NoError(t, err)
	_, err = gs.Grant("res-1", "userB", PermissionWrite, "owner1")
	require.NoError(t, err)
	_, err = gs.Grant("res-1", "userA", PermissionManage, "owner1")
	require.NoError(t, err)

	entries := collectAudit(gs, "res-1")
	require.Len(t, entries, 3)

	// Most recent application first.
	assert.Equal(t, "userA", entries[0].SubjectID)
	assert.Equal(t, PermissionManage, entries[0].Permission)
	assert.Equal(t, "Updated", entries[0].Action)
	assert.Equal(t, "userB", entries[1].SubjectID)
	assert.Equal(t, "userA", entries[2].SubjectID)
	assert.True(t, entries[0].Timestamp.After(entries[2].Timestamp))
}

func TestGrantStore_AuditLog_PerResource(t *testing.T) {
	gs := newTestGrantStore()

	_, err := gs.Grant("res-1", "userA", PermissionRead, "owner1")
	require.NoError(t, err)
	_, err = gs.Grant("res-2", "userA", PermissionRead, "owner1")
	require.NoError(t, err)

	assert.Len(t, collectAudit(gs, "res-1"), 1)
	assert.Len(t, collectAudit(gs, "res-2"), 1)
}

func TestGrantStore_AuditLog_Restartable(t *testing.T) {
	gs := newTestGrantStore()

	_, err := gs.Grant("res-1", "userA", PermissionRead, "owner1")
	require.NoError(t, err)
	_, err = gs.Grant("res-1", "userB", PermissionWrite, "owner1")
	require.NoError(t, err)

	seq := gs.AuditLog("res-1")

	first := 0
	for range seq {
		first++
		break // early exit must not poison the sequence
	}
	second := 0
	for range seq {
		second++
	}

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestGrantStore_ConcurrentGrants_SameKey(t *testing.T) {
	gs := newTestGrantStore()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			perm := PermissionRead
			if n%2 == 0 {
				perm = PermissionWrite
			}
			_, err := gs.Grant("res-1", "user123", perm, "owner1")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// One active permission, every attempt recorded.
	_, ok := gs.PermissionOf("res-1", "user123")
	assert.True(t, ok)
	assert.Equal(t, writers, gs.AuditCount("res-1"))
}
