package session

import (
	"context"
	"fmt"

	"github.com/thrivelabs/thrive/internal/domain"
)

// SetFields merges named-field updates into the live session. The step panels
// (goals, task analysis, strategies, time plan, reflection) all write through
// this single entry point. Unknown field names reject the whole update before
// anything is applied.
func (s *Service) SetFields(ctx context.Context, userID string, updates map[string]any) (*domain.Session, error) {
	e, err := s.lockEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()

	// Validate first: a bad field name must not half-apply the update.
	for name := range updates {
		if !knownField(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}

	for name, value := range updates {
		applyField(e.session, name, value)
	}

	if err := s.persist(ctx, userID, e); err != nil {
		return nil, err
	}
	s.notifier.Publish(userID, "session_updated")
	return snapshot(e.session), nil
}

var stringFields = map[string]func(*domain.Session) *string{
	"task_name":        func(s *domain.Session) *string { return &s.TaskName },
	"task_type":        func(s *domain.Session) *string { return &s.TaskType },
	"goal_type":        func(s *domain.Session) *string { return &s.GoalType },
	"goal_description": func(s *domain.Session) *string { return &s.GoalDescription },
	"deadline":         func(s *domain.Session) *string { return &s.Deadline },
	"requirements":     func(s *domain.Session) *string { return &s.Requirements },
	"subtasks":         func(s *domain.Session) *string { return &s.Subtasks },
	"prior_knowledge":  func(s *domain.Session) *string { return &s.PriorKnowledge },
	"knowledge_gaps":   func(s *domain.Session) *string { return &s.KnowledgeGaps },
	"session_plan":     func(s *domain.Session) *string { return &s.SessionPlan },
}

func knownField(name string) bool {
	if _, ok := stringFields[name]; ok {
		return true
	}
	return name == "chosen_strategies" || name == "reflections"
}

func applyField(s *domain.Session, name string, value any) {
	if get, ok := stringFields[name]; ok {
		*get(s) = asString(value)
		return
	}

	switch name {
	case "chosen_strategies":
		s.ChosenStrategies = asStringSlice(value)
	case "reflections":
		if m, ok := value.(map[string]any); ok {
			s.Reflections = domain.Reflections{
				Goal:       asString(m["goal"]),
				Strategies: asString(m["strategies"]),
				Time:       asString(m["time"]),
				Growth:     asString(m["growth"]),
			}
		}
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asStringSlice accepts both []string and the []any produced by JSON decoding.
func asStringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
