// Package domain contains core domain types for the Thrive application.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Message is a single chat message in a session transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PathEntry is one entry of the session's learning path.
type PathEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	Completed bool   `json:"completed"`
}

// Reflections holds the four reflection prompts of the reflection step.
type Reflections struct {
	Goal       string `json:"goal"`
	Strategies string `json:"strategies"`
	Time       string `json:"time"`
	Growth     string `json:"growth"`
}

// Session is the live self-regulated-learning working state of one user.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CurrentStep     string      `json:"current_step"`
	Messages        []Message   `json:"messages"`
	Resources       []Resource  `json:"resources"`
	ProgressPercent int         `json:"progress_percent"`
	LearningPath    []PathEntry `json:"learning_path"`

	TimerMinutes int  `json:"timer_minutes"`
	TimerSeconds int  `json:"timer_seconds"`
	TimerRunning bool `json:"timer_running"`

	// Named task and goal fields edited by the step panels.
	TaskName         string      `json:"task_name"`
	TaskType         string      `json:"task_type"`
	GoalType         string      `json:"goal_type"`
	GoalDescription  string      `json:"goal_description"`
	Deadline         string      `json:"deadline"`
	Requirements     string      `json:"requirements"`
	Subtasks         string      `json:"subtasks"`
	PriorKnowledge   string      `json:"prior_knowledge"`
	KnowledgeGaps    string      `json:"knowledge_gaps"`
	ChosenStrategies []string    `json:"chosen_strategies"`
	SessionPlan      string      `json:"session_plan"`
	Reflections      Reflections `json:"reflections"`
}

// AppendMessage adds a message to the end of the transcript.
func (s *Session) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
	s.UpdatedAt = time.Now()
}

// RecentMessages returns the last n messages of the transcript.
func (s *Session) RecentMessages(n int) []Message {
	if n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// AddResource validates and appends a resource. The name is trimmed and must be
// non-empty; on validation failure nothing is mutated. Resources keep insertion
// order, which is also display order.
func (s *Session) AddResource(name, typ, link, uploadID string) (Resource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Resource{}, ErrEmptyResourceName
	}
	res := Resource{
		Name:     name,
		Type:     strings.TrimSpace(typ),
		Link:     strings.TrimSpace(link),
		UploadID: uploadID,
	}
	s.Resources = append(s.Resources, res)
	s.UpdatedAt = time.Now()
	return res, nil
}

// CompleteStep marks the first learning-path entry with the given id completed
// and recomputes the progress percentage. Completing an already-completed step
// leaves the session unchanged.
func (s *Session) CompleteStep(id string) {
	for i := range s.LearningPath {
		if s.LearningPath[i].ID == id {
			if !s.LearningPath[i].Completed {
				s.LearningPath[i].Completed = true
				s.recomputeProgress()
				s.UpdatedAt = time.Now()
			}
			return
		}
	}
}

func (s *Session) recomputeProgress() {
	total := len(s.LearningPath)
	if total == 0 {
		s.ProgressPercent = 0
		return
	}
	completed := 0
	for _, e := range s.LearningPath {
		if e.Completed {
			completed++
		}
	}
	s.ProgressPercent = 100 * completed / total
}

// Clear empties the transcript, resets progress to zero and marks every
// learning-path entry incomplete. Resources and the timer are untouched.
func (s *Session) Clear() {
	s.Messages = nil
	s.ProgressPercent = 0
	for i := range s.LearningPath {
		s.LearningPath[i].Completed = false
	}
	s.UpdatedAt = time.Now()
}

// TakeSnapshot copies the transcript and progress into a named snapshot. The
// copy is independent of the live session.
func (s *Session) TakeSnapshot(name string) *Snapshot {
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return &Snapshot{
		Name:            name,
		Timestamp:       time.Now(),
		Messages:        msgs,
		ProgressPercent: s.ProgressPercent,
	}
}

// Restore replaces the transcript and progress with the snapshot's copies.
// Resources, learning path and timer are deliberately untouched.
func (s *Session) Restore(snap *Snapshot) {
	msgs := make([]Message, len(snap.Messages))
	copy(msgs, snap.Messages)
	s.Messages = msgs
	s.ProgressPercent = snap.ProgressPercent
	s.UpdatedAt = time.Now()
}

// ExportTranscript renders the transcript as "ROLE: content" blocks, one per
// message, separated by a blank line.
func (s *Session) ExportTranscript() string {
	blocks := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		blocks = append(blocks, fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// PresetTimer sets the displayed timer to the given number of minutes.
func (s *Session) PresetTimer(minutes int) {
	if minutes < 0 {
		minutes = 0
	}
	s.TimerMinutes = minutes
	s.TimerSeconds = 0
	s.UpdatedAt = time.Now()
}

// ResetTimer zeroes the displayed timer and stops it.
func (s *Session) ResetTimer() {
	s.TimerMinutes = 0
	s.TimerSeconds = 0
	s.TimerRunning = false
	s.UpdatedAt = time.Now()
}

// StartTimer flags the displayed timer as running.
func (s *Session) StartTimer() {
	s.TimerRunning = true
	s.UpdatedAt = time.Now()
}

// StopTimer flags the displayed timer as stopped.
func (s *Session) StopTimer() {
	s.TimerRunning = false
	s.UpdatedAt = time.Now()
}
