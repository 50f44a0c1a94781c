package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "fusionctl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// Migration Tests
// =============================================================================

func TestNewSQLiteStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	actions, err := s.RecentActions(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestNewSQLiteStore_ReopenExisting(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "fusionctl.db")

	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.RecordAction(context.Background(), "start", "success", "exit=0"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	actions, err := s.RecentActions(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

// =============================================================================
// Action History Tests
// =============================================================================

func TestRecordAction_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordAction(ctx, "start", "success", "exit=0"))
	require.NoError(t, s.RecordAction(ctx, "pull", "failure", "exit=5"))

	actions, err := s.RecentActions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	for _, a := range actions {
		assert.NotEmpty(t, a.ID)
		assert.False(t, a.CreatedAt.IsZero())
	}
	verbs := []string{actions[0].Verb, actions[1].Verb}
	assert.ElementsMatch(t, []string{"start", "pull"}, verbs)
}

func TestRecentActions_RespectsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordAction(ctx, "start", "success", "exit=0"))
	}

	actions, err := s.RecentActions(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, actions, 3)
}

func TestRecentActions_DefaultLimit(t *testing.T) {
	s := newTestStore(t)

	actions, err := s.RecentActions(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, actions)
}
