package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrivelabs/thrive/internal/domain"
	"github.com/thrivelabs/thrive/internal/uploads"
)

// memoryRepo is an in-memory store.Repository for service tests.
type memoryRepo struct {
	sessions  map[string]*domain.Session
	snapshots map[string][]*domain.Snapshot
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sessions:  make(map[string]*domain.Session),
		snapshots: make(map[string][]*domain.Snapshot),
	}
}

func (m *memoryRepo) GetSession(_ context.Context, userID string) (*domain.Session, error) {
	return m.sessions[userID], nil
}

func (m *memoryRepo) SaveSession(_ context.Context, userID string, s *domain.Session) error {
	m.sessions[userID] = s
	return nil
}

func (m *memoryRepo) AppendSnapshot(_ context.Context, userID string, snap *domain.Snapshot) error {
	m.snapshots[userID] = append(m.snapshots[userID], snap)
	return nil
}

func (m *memoryRepo) ListSnapshots(_ context.Context, userID string, limit int) ([]*domain.Snapshot, error) {
	snaps := m.snapshots[userID]
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[len(snaps)-limit:]
	}
	return snaps, nil
}

func (m *memoryRepo) Ping(context.Context) error { return nil }
func (m *memoryRepo) Close() error               { return nil }

// scriptedGateway returns canned replies or a fixed error.
type scriptedGateway struct {
	reply string
	err   error
}

func (g *scriptedGateway) Suggest(_ context.Context, stepID, _ string, _ *domain.Session) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply + " [" + stepID + "]", nil
}

func (g *scriptedGateway) Chat(context.Context, *domain.Session) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *scriptedGateway) Enabled() bool { return true }

func newTestService(gw *scriptedGateway) (*Service, *memoryRepo, *uploads.Store) {
	repo := newMemoryRepo()
	files := uploads.NewStore()
	svc := NewService(repo, files, gw, Options{SnapshotCap: 3})
	return svc, repo, files
}

const user = "anon_user"

func TestCurrentCreatesSessionOnFirstTouch(t *testing.T) {
	svc, repo, _ := newTestService(&scriptedGateway{})
	ctx := context.Background()

	s, err := svc.Current(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "tutorial", s.CurrentStep)
	assert.NotEmpty(t, s.LearningPath)
	assert.Equal(t, "mastery", s.GoalType)
	require.NotNil(t, repo.sessions[user], "new session is persisted immediately")

	again, err := svc.Current(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
}

func TestNavigateCompletesStepAndRecomputesProgress(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{})
	ctx := context.Background()

	s, err := svc.Navigate(ctx, user, "goals")
	require.NoError(t, err)
	assert.Equal(t, "goals", s.CurrentStep)
	assert.Equal(t, 100/len(s.LearningPath), s.ProgressPercent)

	// Idempotent for repeated clicks.
	s2, err := svc.Navigate(ctx, user, "goals")
	require.NoError(t, err)
	assert.Equal(t, s.ProgressPercent, s2.ProgressPercent)

	_, err = svc.Navigate(ctx, user, "no-such-step")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestNavigateTutorialDoesNotMoveProgress(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{})

	s, err := svc.Navigate(context.Background(), user, "tutorial")
	require.NoError(t, err)
	assert.Equal(t, "tutorial", s.CurrentStep)
	assert.Zero(t, s.ProgressPercent)
}

func TestChatAppendsBothMessages(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{reply: "Start with chapter 5."})

	s, err := svc.Chat(context.Background(), user, "What should I read?")
	require.NoError(t, err)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, domain.RoleUser, s.Messages[0].Role)
	assert.Equal(t, "Start with chapter 5.", s.Messages[1].Content)
}

func TestChatGatewayFailureKeepsUserMessage(t *testing.T) {
	boom := errors.New("model error")
	svc, _, _ := newTestService(&scriptedGateway{err: boom})
	ctx := context.Background()

	_, err := svc.Chat(ctx, user, "hello?")
	assert.ErrorIs(t, err, boom)

	s, err := svc.Current(ctx, user)
	require.NoError(t, err)
	require.Len(t, s.Messages, 1, "user message survives the failed call")
	assert.Equal(t, domain.RoleUser, s.Messages[0].Role)
}

func TestSuggestCachesOneReplyPerStep(t *testing.T) {
	gw := &scriptedGateway{reply: "try flashcards"}
	svc, _, _ := newTestService(gw)
	ctx := context.Background()

	reply, err := svc.Suggest(ctx, user, "strategies", "I forget formulas")
	require.NoError(t, err)
	assert.Equal(t, "try flashcards [strategies]", reply)

	gw.reply = "try spaced practice"
	_, err = svc.Suggest(ctx, user, "strategies", "still forgetting")
	require.NoError(t, err)

	replies, err := svc.Replies(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "try spaced practice [strategies]", replies["strategies"],
		"new calls overwrite the cached reply")
	assert.Len(t, replies, 1)

	_, err = svc.Suggest(ctx, user, "bogus", "x")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestAddResourceWithUpload(t *testing.T) {
	svc, _, files := newTestService(&scriptedGateway{})
	ctx := context.Background()

	file := &domain.UploadedFile{Name: "notes.pdf", MIME: "application/pdf", Size: 3, Data: []byte("pdf")}
	s, err := svc.AddResource(ctx, user, "Lecture notes", "Textbook / reading", "", file)
	require.NoError(t, err)

	require.Len(t, s.Resources, 1)
	res := s.Resources[0]
	assert.True(t, res.HasUpload())

	stored := svc.Upload(user, res.UploadID)
	require.NotNil(t, stored)
	assert.Equal(t, []byte("pdf"), stored.Data)
	assert.Equal(t, 1, files.Count(user))
}

func TestAddResourceWithoutUpload(t *testing.T) {
	svc, _, files := newTestService(&scriptedGateway{})

	s, err := svc.AddResource(context.Background(), user, "Office hours", "Person / tutor", "", nil)
	require.NoError(t, err)
	require.Len(t, s.Resources, 1)
	assert.False(t, s.Resources[0].HasUpload())
	assert.Zero(t, files.Count(user))
}

func TestAddResourceEmptyNameMutatesNothing(t *testing.T) {
	svc, _, files := newTestService(&scriptedGateway{})
	ctx := context.Background()

	file := &domain.UploadedFile{Name: "notes.pdf", Data: []byte("pdf")}
	_, err := svc.AddResource(ctx, user, "   ", "", "", file)
	assert.ErrorIs(t, err, domain.ErrEmptyResourceName)

	s, err := svc.Current(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, s.Resources)
	assert.Zero(t, files.Count(user), "rejected add leaves the upload store untouched")
}

func TestNewSessionAutoSavesOnlyWhenMessagesExist(t *testing.T) {
	svc, repo, _ := newTestService(&scriptedGateway{reply: "ok"})
	ctx := context.Background()

	// Empty transcript: no snapshot.
	_, err := svc.NewSession(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, repo.snapshots[user])

	_, err = svc.Chat(ctx, user, "hello")
	require.NoError(t, err)

	s, err := svc.NewSession(ctx, user)
	require.NoError(t, err)
	require.Len(t, repo.snapshots[user], 1, "exactly one auto snapshot")
	assert.Len(t, repo.snapshots[user][0].Messages, 2)
	assert.Empty(t, s.Messages)
	assert.Zero(t, s.ProgressPercent)
}

func TestSaveDoesNotClear(t *testing.T) {
	svc, repo, _ := newTestService(&scriptedGateway{reply: "ok"})
	ctx := context.Background()

	_, err := svc.Chat(ctx, user, "hello")
	require.NoError(t, err)

	snap, err := svc.Save(ctx, user, "midterm prep")
	require.NoError(t, err)
	assert.Equal(t, "midterm prep", snap.Name)
	require.Len(t, repo.snapshots[user], 1)

	s, err := svc.Current(ctx, user)
	require.NoError(t, err)
	assert.Len(t, s.Messages, 2, "save leaves the live session intact")
}

func TestLoadReplacesTranscriptExactly(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{reply: "ok"})
	ctx := context.Background()

	_, err := svc.Chat(ctx, user, "first")
	require.NoError(t, err)
	_, err = svc.Navigate(ctx, user, "goals")
	require.NoError(t, err)
	_, err = svc.Save(ctx, user, "checkpoint")
	require.NoError(t, err)

	_, err = svc.Clear(ctx, user)
	require.NoError(t, err)
	_, err = svc.AddResource(ctx, user, "Chapter 5", "", "", nil)
	require.NoError(t, err)

	s, err := svc.Load(ctx, user, 0)
	require.NoError(t, err)
	assert.Len(t, s.Messages, 2)
	assert.Equal(t, 100/len(s.LearningPath), s.ProgressPercent)
	assert.Len(t, s.Resources, 1, "load does not touch resources")

	_, err = svc.Load(ctx, user, 5)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotsCapped(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{reply: "ok"})
	ctx := context.Background()

	_, err := svc.Chat(ctx, user, "hello")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = svc.Save(ctx, user, "")
		require.NoError(t, err)
	}

	snaps, err := svc.Snapshots(ctx, user)
	require.NoError(t, err)
	assert.Len(t, snaps, 3, "listing capped to last N")
}

func TestExport(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{reply: "Start small."})
	ctx := context.Background()

	_, err := svc.Chat(ctx, user, "I'm stuck")
	require.NoError(t, err)

	out, err := svc.Export(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "USER: I'm stuck\n\nASSISTANT: Start small.", out)
}

func TestSetFields(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{})
	ctx := context.Background()

	s, err := svc.SetFields(ctx, user, map[string]any{
		"task_name":         "Research paper on climate change",
		"goal_type":         "performance",
		"chosen_strategies": []any{"Self-explanation", "Concept mapping"},
		"reflections": map[string]any{
			"goal":   "Reached most of it",
			"growth": "Start earlier",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Research paper on climate change", s.TaskName)
	assert.Equal(t, "performance", s.GoalType)
	assert.Equal(t, []string{"Self-explanation", "Concept mapping"}, s.ChosenStrategies)
	assert.Equal(t, "Reached most of it", s.Reflections.Goal)
	assert.Equal(t, "Start earlier", s.Reflections.Growth)
}

func TestSetFieldsRejectsUnknownFieldAtomically(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{})
	ctx := context.Background()

	_, err := svc.SetFields(ctx, user, map[string]any{
		"task_name": "should not apply",
		"bogus":     "x",
	})
	assert.ErrorIs(t, err, ErrUnknownField)

	s, err := svc.Current(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, s.TaskName, "bad update applies nothing")
}

func TestTimerActions(t *testing.T) {
	svc, _, _ := newTestService(&scriptedGateway{})
	ctx := context.Background()

	s, err := svc.Timer(ctx, user, "preset", 25)
	require.NoError(t, err)
	assert.Equal(t, 25, s.TimerMinutes)

	s, err = svc.Timer(ctx, user, "start", 0)
	require.NoError(t, err)
	assert.True(t, s.TimerRunning)

	s, err = svc.Timer(ctx, user, "reset", 0)
	require.NoError(t, err)
	assert.Zero(t, s.TimerMinutes)
	assert.False(t, s.TimerRunning)

	_, err = svc.Timer(ctx, user, "rewind", 0)
	assert.ErrorIs(t, err, ErrUnknownTimerAction)
}
