// Package steps defines the ordered registry of self-regulated-learning steps.
//
// Each step is one independently rendered panel of the app (goal setting, task
// analysis, strategies, ...). Steps carry presentation metadata for the sidebar
// plus a per-module hint injected into AI suggestion prompts.
package steps

import "github.com/thrivelabs/thrive/internal/domain"

// Step is one self-regulated-learning module of the app.
type Step interface {
	// ID is the stable internal identifier (e.g. "goals").
	ID() string
	// Label is the display name shown in the sidebar.
	Label() string
	// Icon is the emoji shown next to the label.
	Icon() string
	// Description is a one-sentence summary for the sidebar.
	Description() string
	// Hint is the module guidance prepended to AI suggestion prompts.
	Hint() string
}

// meta implements Step for the plain metadata-only steps.
type meta struct {
	id    string
	label string
	icon  string
	desc  string
	hint  string
}

func (m meta) ID() string          { return m.id }
func (m meta) Label() string       { return m.label }
func (m meta) Icon() string        { return m.icon }
func (m meta) Description() string { return m.desc }
func (m meta) Hint() string        { return m.hint }

// TutorialStep is the onboarding step. It is navigable but excluded from the
// learning path, so visiting it never moves the progress bar.
type TutorialStep struct{ meta }

// GoalsStep covers mastery-oriented goal setting.
type GoalsStep struct{ meta }

// TaskAnalysisStep covers requirements, subtasks and knowledge gaps.
type TaskAnalysisStep struct{ meta }

// StrategiesStep covers choosing learning strategies.
type StrategiesStep struct{ meta }

// TimePlanStep covers time estimation and work-break planning.
type TimePlanStep struct{ meta }

// ResourcesStep covers collecting learning resources, including file uploads.
type ResourcesStep struct{ meta }

// ReflectionStep covers post-task reflection.
type ReflectionStep struct{ meta }

// FeedbackStep covers feedback on learning habits and app usage.
type FeedbackStep struct{ meta }

var registry = []Step{
	TutorialStep{meta{
		id:    "tutorial",
		label: "Tutorial",
		icon:  "👋",
		desc:  "Learn how to use Thrive effectively.",
		hint: "You are in the TUTORIAL module. Explain how the app supports " +
			"self-regulated learning and point the student to the goal-setting module.",
	}},
	GoalsStep{meta{
		id:    "goals",
		label: "Goal Setting",
		icon:  "🎯",
		desc:  "Define mastery-oriented goals for your current task.",
		hint: "You are in the GOAL-SETTING module. Help the student turn vague or " +
			"performance-only goals into clear mastery-oriented goals focused on " +
			"understanding, skills, and growth.",
	}},
	TaskAnalysisStep{meta{
		id:    "task_analysis",
		label: "Task Analysis",
		icon:  "📋",
		desc:  "Break the task down and surface what you already know.",
		hint: "You are in the TASK-ANALYSIS module. Help the student clarify " +
			"requirements, break the task into subtasks, and surface prior " +
			"knowledge and gaps.",
	}},
	StrategiesStep{meta{
		id:    "strategies",
		label: "Strategies",
		icon:  "🧠",
		desc:  "Pick a small set of research-aligned learning strategies.",
		hint: "You are in the LEARNING-STRATEGIES module. Recommend a small set of " +
			"research-aligned strategies and show concretely how to use them for " +
			"this task.",
	}},
	TimePlanStep{meta{
		id:    "time_plan",
		label: "Time Plan",
		icon:  "⏰",
		desc:  "Estimate time and plan a realistic schedule.",
		hint: "You are in the TIME-MANAGEMENT module. Help the student estimate " +
			"time, choose a work-break pattern, and plan a realistic schedule.",
	}},
	ResourcesStep{meta{
		id:    "resources",
		label: "Resources",
		icon:  "📚",
		desc:  "List the key resources you will actually use.",
		hint: "You are in the RESOURCES module. Suggest high-value resources " +
			"(texts, videos, tools, people) and how to use them intentionally.",
	}},
	ReflectionStep{meta{
		id:    "reflection",
		label: "Reflection",
		icon:  "✨",
		desc:  "Evaluate your learning and celebrate your progress.",
		hint: "You are in the REFLECTION module. Help the student notice what they " +
			"learned, what worked, and what to change next time.",
	}},
	FeedbackStep{meta{
		id:    "feedback",
		label: "Feedback",
		icon:  "✅",
		desc:  "Reflect on your learning habits and how you use the app.",
		hint: "You are in the FEEDBACK module. Help the student reflect on how they " +
			"use this app and their self-regulated learning habits overall.",
	}},
}

// Registry returns all steps in fixed registration order.
func Registry() []Step {
	return registry
}

// ByID returns the step with the given id, falling back to the first
// registered step when the id is unknown.
func ByID(id string) Step {
	for _, s := range registry {
		if s.ID() == id {
			return s
		}
	}
	return registry[0]
}

// Exists reports whether a step with the given id is registered.
func Exists(id string) bool {
	for _, s := range registry {
		if s.ID() == id {
			return true
		}
	}
	return false
}

// LearningPath derives the learning-path entries for a new session. The
// tutorial is onboarding and does not count toward progress.
func LearningPath() []domain.PathEntry {
	path := make([]domain.PathEntry, 0, len(registry)-1)
	for _, s := range registry {
		if _, ok := s.(TutorialStep); ok {
			continue
		}
		path = append(path, domain.PathEntry{
			ID:   s.ID(),
			Name: s.Label(),
			Desc: s.Description(),
		})
	}
	return path
}
