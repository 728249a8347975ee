// Package session implements the session service: the single owner of each
// user's live session, snapshot history and per-step AI reply cache.
//
// Every mutating operation runs as one synchronous pass under the user's
// entry lock and persists the session before returning, mirroring the
// one-action-one-render model of the UI.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thrivelabs/thrive/internal/ai"
	"github.com/thrivelabs/thrive/internal/domain"
	"github.com/thrivelabs/thrive/internal/steps"
	"github.com/thrivelabs/thrive/internal/store"
	"github.com/thrivelabs/thrive/internal/uploads"
)

// ErrUnknownStep is returned when an operation names an unregistered step.
var ErrUnknownStep = errors.New("unknown step")

// ErrSnapshotNotFound is returned when a load references a missing snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrUnknownField is returned when a field update names an unknown field.
var ErrUnknownField = errors.New("unknown session field")

// ErrUnknownTimerAction is returned for unrecognized timer actions.
var ErrUnknownTimerAction = errors.New("unknown timer action")

// Notifier pushes session-change events to connected UI tabs. Implementations
// must not block.
type Notifier interface {
	Publish(userID, event string)
}

// noopNotifier is used when no events hub is wired.
type noopNotifier struct{}

func (noopNotifier) Publish(string, string) {}

// entry is the per-user working state guarded by its own lock.
type entry struct {
	mu      sync.Mutex
	session *domain.Session
	replies map[string]string // step id -> last AI suggestion
}

// Service coordinates session state, persistence, uploads and the AI gateway.
type Service struct {
	repo        store.Repository
	files       *uploads.Store
	gateway     ai.Gateway
	notifier    Notifier
	snapshotCap int

	mu      sync.Mutex
	entries map[string]*entry
}

// Options configures the session service.
type Options struct {
	// SnapshotCap bounds how many snapshots listings return (last N shown).
	SnapshotCap int
	// Notifier receives a session_updated event after each mutation.
	Notifier Notifier
}

// NewService creates a session service.
func NewService(repo store.Repository, files *uploads.Store, gateway ai.Gateway, opts Options) *Service {
	if opts.SnapshotCap <= 0 {
		opts.SnapshotCap = 10
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	return &Service{
		repo:        repo,
		files:       files,
		gateway:     gateway,
		notifier:    opts.Notifier,
		snapshotCap: opts.SnapshotCap,
		entries:     make(map[string]*entry),
	}
}

// AIEnabled reports whether a real AI provider is configured.
func (s *Service) AIEnabled() bool {
	return s.gateway.Enabled()
}

func newSession() *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
		CurrentStep:  steps.Registry()[0].ID(),
		LearningPath: steps.LearningPath(),
		GoalType:     "mastery",
	}
}

// lockEntry returns the user's entry with its lock held, loading the session
// from the store on first touch and creating a fresh one when none exists.
func (s *Service) lockEntry(ctx context.Context, userID string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{replies: make(map[string]string)}
		s.entries[userID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	if e.session == nil {
		stored, err := s.repo.GetSession(ctx, userID)
		if err != nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("load session: %w", err)
		}
		if stored == nil {
			stored = newSession()
			if err := s.repo.SaveSession(ctx, userID, stored); err != nil {
				e.mu.Unlock()
				return nil, fmt.Errorf("persist new session: %w", err)
			}
			slog.Info("Created new session", "user_id", userID, "session_id", stored.ID)
		}
		e.session = stored
	}
	return e, nil
}

func (s *Service) persist(ctx context.Context, userID string, e *entry) error {
	if err := s.repo.SaveSession(ctx, userID, e.session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Current returns a copy-safe view of the user's live session.
func (s *Service) Current(ctx context.Context, userID string) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	return snapshot(e.session), nil
}

// snapshot deep-copies the slices handed out to handlers so rendering never
// races a later mutation.
func snapshot(src *domain.Session) *domain.Session {
	dup := *src
	dup.Messages = append([]domain.Message(nil), src.Messages...)
	dup.Resources = append([]domain.Resource(nil), src.Resources...)
	dup.LearningPath = append([]domain.PathEntry(nil), src.LearningPath...)
	dup.ChosenStrategies = append([]string(nil), src.ChosenStrategies...)
	return &dup
}

// Replies returns the per-step AI suggestion cache for a user.
func (s *Service) Replies(ctx context.Context, userID string) (map[string]string, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	out := make(map[string]string, len(e.replies))
	for k, v := range e.replies {
		out[k] = v
	}
	return out, nil
}

// Navigate handles a navigation click: the clicked step becomes current, its
// learning-path entry is completed and progress is recomputed. Idempotent for
// repeated clicks on the same step.
func (s *Service) Navigate(ctx context.Context, userID, stepID string) (*domain.Session, error) {
	if !steps.Exists(stepID) {
		return nil, ErrUnknownStep
	}

	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	e.session.CurrentStep = stepID
	e.session.CompleteStep(stepID)
	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}

// Chat appends the user's message, performs the blocking gateway call and
// appends the assistant reply. On gateway failure the user message is kept
// and the failure is returned to the caller unwrapped.
func (s *Service) Chat(ctx context.Context, userID, text string) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	e.session.AppendMessage(domain.RoleUser, text)
	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}

	reply, err := s.gateway.Chat(ctx, e.session)
	if err != nil {
		s.notifier.Publish(userID, "session_updated")
		return nil, err
	}

	e.session.AppendMessage(domain.RoleAssistant, reply)
	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}

// Suggest performs a per-step AI call and overwrites the step's cached reply.
func (s *Service) Suggest(ctx context.Context, userID, stepID, prompt string) (string, error) {
	if !steps.Exists(stepID) {
		return "", ErrUnknownStep
	}

	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return "", err
	}
	defer e.mu.Unlock()

	reply, err := s.gateway.Suggest(ctx, stepID, prompt, e.session)
	if err != nil {
		return "", err
	}
	e.replies[stepID] = reply
	s.notifier.Publish(userID, "session_updated")
	return reply, nil
}

// AddResource validates and appends a resource. When file is non-nil its
// bytes are stored in the volatile upload store under a time-derived id and
// the resource references that record. An empty name mutates nothing at all.
func (s *Service) AddResource(ctx context.Context, userID, name, typ, link string, file *domain.UploadedFile) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	uploadID := ""
	if file != nil {
		uploadID = domain.NewUploadID(time.Now(), file.Name)
	}

	if _, err := e.session.AddResource(name, typ, link, uploadID); err != nil {
		return nil, err
	}

	// Bytes are stored only after validation so a rejected add leaves the
	// upload store untouched too.
	if file != nil {
		file.ID = uploadID
		s.files.Put(userID, file)
	}

	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}

// Upload resolves an upload id for a user, or nil when the record is gone.
func (s *Service) Upload(userID, uploadID string) *domain.UploadedFile {
	return s.files.Get(userID, uploadID)
}

// Clear empties the transcript, resets progress and marks all learning-path
// entries incomplete. Saved snapshots are untouched.
func (s *Service) Clear(ctx context.Context, userID string) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	e.session.Clear()
	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}

// Save appends a snapshot of the live session without clearing it. An empty
// name gets a timestamped default.
func (s *Service) Save(ctx context.Context, userID, name string) (*domain.Snapshot, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if name == "" {
		name = "Session " + time.Now().Format("2006-01-02 15:04")
	}
	snap := e.session.TakeSnapshot(name)
	if err := s.repo.AppendSnapshot(ctx, userID, snap); err != nil {
		return nil, fmt.Errorf("append snapshot: %w", err)
	}
	slog.Info("Session snapshot saved", "user_id", userID, "name", name)
	return snap, nil
}

// NewSession archives the current transcript first when it is non-empty
// (exactly one auto-named snapshot), then clears the live session.
func (s *Service) NewSession(ctx context.Context, userID string) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	if len(e.session.Messages) > 0 {
		snap := e.session.TakeSnapshot("Auto-saved " + time.Now().Format("2006-01-02 15:04"))
		if err := s.repo.AppendSnapshot(ctx, userID, snap); err != nil {
			return nil, fmt.Errorf("append auto snapshot: %w", err)
		}
	}

	e.session.Clear()
	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}

// Snapshots returns the last N snapshots in chronological order.
func (s *Service) Snapshots(ctx context.Context, userID string) ([]*domain.Snapshot, error) {
	return s.repo.ListSnapshots(ctx, userID, s.snapshotCap)
}

// Load replaces the live transcript and progress with a listed snapshot's
// copies. The index addresses the slice returned by Snapshots.
func (s *Service) Load(ctx context.Context, userID string, index int) (*domain.Session, error) {
	snaps, err := s.repo.ListSnapshots(ctx, userID, s.snapshotCap)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if index < 0 || index >= len(snaps) {
		return nil, ErrSnapshotNotFound
	}

	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	e.session.Restore(snaps[index])
	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}

// Export renders the transcript in the download format.
func (s *Service) Export(ctx context.Context, userID string) (string, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return "", err
	}
	defer e.mu.Unlock()
	return e.session.ExportTranscript(), nil
}

// Timer dispatches a displayed-timer action: preset, reset, start or stop.
func (s *Service) Timer(ctx context.Context, userID, action string, minutes int) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	switch action {
	case "preset":
		e.session.PresetTimer(minutes)
	case "reset":
		e.session.ResetTimer()
	case "start":
		e.session.StartTimer()
	case "stop":
		e.session.StopTimer()
	default:
		return nil, ErrUnknownTimerAction
	}

	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}
