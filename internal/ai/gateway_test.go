package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thrivelabs/thrive/internal/domain"
)

func TestDisabledGateway(t *testing.T) {
	var g Disabled
	assert.False(t, g.Enabled())

	_, err := g.Suggest(context.Background(), "goals", "help", &domain.Session{})
	assert.ErrorIs(t, err, ErrUnavailable)

	session := &domain.Session{}
	session.AppendMessage(domain.RoleUser, "what now?")
	session.AppendMessage(domain.RoleAssistant, "echoed")
	session.AppendMessage(domain.RoleUser, "still here")

	reply, err := g.Chat(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "AI is not configured right now. Echo: still here", reply)
}

func TestGeminiGatewayRefusesWithoutKey(t *testing.T) {
	g := NewGeminiGateway(GeminiOptions{Model: "gemini-flash-lite-latest"})
	assert.False(t, g.Enabled())

	_, err := g.Suggest(context.Background(), "goals", "help", &domain.Session{ID: "s"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = g.Chat(context.Background(), &domain.Session{ID: "s"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("user-a"))
	assert.True(t, rl.Allow("user-a"))
	assert.False(t, rl.Allow("user-a"), "third request within the window is refused")
	assert.True(t, rl.Allow("user-b"), "keys are independent")
}

func TestIdentityPromptFallback(t *testing.T) {
	g := NewGeminiGateway(GeminiOptions{IdentityPath: "does/not/exist.txt"})
	assert.Equal(t, fallbackIdentity, g.identityPrompt())
}

func TestSessionContext(t *testing.T) {
	s := &domain.Session{}
	assert.Empty(t, sessionContext(s))

	s.TaskName = "Research paper on climate change"
	s.GoalType = "mastery"
	s.ChosenStrategies = []string{"Self-explanation", "Concept mapping"}
	s.TimerMinutes = 25
	_, err := s.AddResource("Chapter 5", "Textbook / reading", "", "")
	require.NoError(t, err)

	got := sessionContext(s)
	assert.Contains(t, got, "Task: Research paper on climate change")
	assert.Contains(t, got, "Goal type: mastery")
	assert.Contains(t, got, "Selected strategies: Self-explanation, Concept mapping")
	assert.Contains(t, got, "Planned focus time: 25 minutes")
	assert.Contains(t, got, "Collected resources: Chapter 5")
	assert.NotContains(t, got, "Deadline", "empty fields are skipped")
}
