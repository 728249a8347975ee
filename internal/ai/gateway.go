// Package ai implements the generative-AI gateway used for contextual
// suggestions and the shared chat panel.
package ai

import (
	"context"
	"errors"

	"github.com/thrivelabs/thrive/internal/domain"
)

// ErrRateLimited is returned when a caller exceeds the request window.
var ErrRateLimited = errors.New("too many AI requests, slow down")

// ErrUnavailable is returned when no AI provider is configured.
var ErrUnavailable = errors.New("AI gateway is not configured")

// Gateway is the opaque call-through to the generative-AI service. Both calls
// are synchronous and fallible; callers surface failures as-is.
type Gateway interface {
	// Suggest produces a suggestion for one step, given the step id, the
	// student's free-text prompt and the current session as context.
	Suggest(ctx context.Context, stepID, prompt string, session *domain.Session) (string, error)

	// Chat produces the next assistant reply for the shared chat panel from
	// the session's recent transcript.
	Chat(ctx context.Context, session *domain.Session) (string, error)

	// Enabled reports whether a real provider is configured.
	Enabled() bool
}

// Disabled is the gateway used when no API key is configured. Chat degrades
// to an echo reply so the panel stays usable; suggestions are refused.
type Disabled struct{}

// Suggest always fails with ErrUnavailable.
func (Disabled) Suggest(ctx context.Context, stepID, prompt string, session *domain.Session) (string, error) {
	return "", ErrUnavailable
}

// Chat returns an echo fallback built from the last user message.
func (Disabled) Chat(ctx context.Context, session *domain.Session) (string, error) {
	last := ""
	for i := len(session.Messages) - 1; i >= 0; i-- {
		if session.Messages[i].Role == domain.RoleUser {
			last = session.Messages[i].Content
			break
		}
	}
	return "AI is not configured right now. Echo: " + last, nil
}

// Enabled reports false.
func (Disabled) Enabled() bool { return false }
