package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrivelabs/thrive/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "thrive.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, repo.Close())
	})
	return repo
}

func TestGetSessionMissingReturnsNilNil(t *testing.T) {
	repo := newTestStore(t)

	session, err := repo.GetSession(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSaveSessionRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	session := &domain.Session{
		ID:          "s-1",
		CurrentStep: "goals",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "hi"},
		},
		Resources: []domain.Resource{
			{Name: "Chapter 5", Type: "Textbook / reading"},
		},
		ProgressPercent: 14,
		LearningPath: []domain.PathEntry{
			{ID: "goals", Name: "Goal Setting", Completed: true},
			{ID: "reflection", Name: "Reflection"},
		},
		TimerMinutes: 25,
		TaskName:     "Research paper on climate change",
	}
	require.NoError(t, repo.SaveSession(ctx, "user-a", session))

	got, err := repo.GetSession(ctx, "user-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Messages, got.Messages)
	assert.Equal(t, session.Resources, got.Resources)
	assert.Equal(t, 14, got.ProgressPercent)
	assert.Equal(t, "goals", got.CurrentStep)
	assert.Equal(t, 25, got.TimerMinutes)

	// Replacing the session keeps one row per user.
	session.AppendMessage(domain.RoleUser, "more")
	require.NoError(t, repo.SaveSession(ctx, "user-a", session))
	got, err = repo.GetSession(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestSnapshotsAppendOnlyAndCapped(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		snap := &domain.Snapshot{
			Name:            "Session " + string(rune('A'+i)),
			Timestamp:       time.Unix(1700000000+int64(i), 0),
			Messages:        []domain.Message{{Role: domain.RoleUser, Content: "m"}},
			ProgressPercent: i * 10,
		}
		require.NoError(t, repo.AppendSnapshot(ctx, "user-a", snap))
	}

	all, err := repo.ListSnapshots(ctx, "user-a", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "Session A", all[0].Name, "chronological order, oldest first")
	assert.Equal(t, "Session E", all[4].Name)

	capped, err := repo.ListSnapshots(ctx, "user-a", 3)
	require.NoError(t, err)
	require.Len(t, capped, 3)
	assert.Equal(t, "Session C", capped[0].Name, "cap keeps the most recent snapshots")
	assert.Equal(t, "Session E", capped[2].Name)

	other, err := repo.ListSnapshots(ctx, "user-b", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
