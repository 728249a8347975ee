package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thrivelabs/thrive/internal/ai"
	"github.com/thrivelabs/thrive/internal/domain"
	"github.com/thrivelabs/thrive/internal/identity"
	"github.com/thrivelabs/thrive/internal/session"
	"github.com/thrivelabs/thrive/internal/steps"
)

// SessionHandler handles session lifecycle, navigation, chat and step endpoints.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/session", h.GetSession)
	r.Post("/api/session/clear", h.Clear)
	r.Post("/api/session/save", h.Save)
	r.Post("/api/session/new", h.NewSession)
	r.Post("/api/session/load", h.Load)
	r.Get("/api/session/export", h.Export)
	r.Post("/api/session/navigate", h.Navigate)
	r.Post("/api/session/fields", h.SetFields)
	r.Post("/api/session/timer", h.Timer)
	r.Get("/api/snapshots", h.ListSnapshots)
	r.Post("/api/chat", h.Chat)
	r.Get("/api/steps", h.ListSteps)
	r.Post("/api/steps/{stepID}/suggest", h.Suggest)
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := identity.UserIDFromContext(r.Context())
	if id == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return id, true
}

// writeServiceError maps service and gateway failures to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyResourceName):
		Error(w, http.StatusBadRequest, "Give the resource at least a short name.")
	case errors.Is(err, session.ErrUnknownStep):
		Error(w, http.StatusNotFound, "unknown step")
	case errors.Is(err, session.ErrSnapshotNotFound):
		Error(w, http.StatusNotFound, "snapshot not found")
	case errors.Is(err, session.ErrUnknownField):
		Error(w, http.StatusBadRequest, "unknown session field")
	case errors.Is(err, session.ErrUnknownTimerAction):
		Error(w, http.StatusBadRequest, "unknown timer action")
	case errors.Is(err, ai.ErrRateLimited):
		Error(w, http.StatusTooManyRequests, "too many AI requests, slow down")
	case errors.Is(err, ai.ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, "AI is not configured")
	default:
		slog.Error("Request failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// sessionView is the response envelope for endpoints returning the session.
type sessionView struct {
	Session   *domain.Session   `json:"session"`
	AIReplies map[string]string `json:"ai_replies"`
	AIEnabled bool              `json:"ai_enabled"`
}

func (h *SessionHandler) writeSession(w http.ResponseWriter, r *http.Request, uid string, s *domain.Session) {
	replies, err := h.svc.Replies(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, sessionView{
		Session:   s,
		AIReplies: replies,
		AIEnabled: h.svc.AIEnabled(),
	})
}

// GetSession returns the live session, the per-step AI reply cache and the
// AI-enabled flag.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.Current(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeSession(w, r, uid, s)
}

// Clear empties the transcript and resets progress and learning path.
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.Clear(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeSession(w, r, uid, s)
}

// Save appends a snapshot without clearing the live session.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	snap, err := h.svc.Save(r.Context(), uid, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusCreated, snap)
}

// NewSession auto-saves a non-empty transcript, then clears the session.
func (h *SessionHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.NewSession(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeSession(w, r, uid, s)
}

// Load replaces the transcript and progress from a listed snapshot.
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.svc.Load(r.Context(), uid, req.Index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeSession(w, r, uid, s)
}

// Export offers the transcript as a downloadable text file.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	out, err := h.svc.Export(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="thrive-session.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		slog.Debug("Failed to write export body", "error", err)
	}
}

// ListSnapshots returns the last N snapshots in chronological order.
func (h *SessionHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	snaps, err := h.svc.Snapshots(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if snaps == nil {
		snaps = []*domain.Snapshot{}
	}
	JSON(w, http.StatusOK, snaps)
}

// Navigate handles a sidebar click: current step, completion, progress.
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		StepID string `json:"step_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.svc.Navigate(r.Context(), uid, req.StepID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeSession(w, r, uid, s)
}

// SetFields merges named-field updates from a step panel.
func (h *SessionHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Updates map[string]any `json:"updates"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Updates) == 0 {
		Error(w, http.StatusBadRequest, "updates must not be empty")
		return
	}

	s, err := h.svc.SetFields(r.Context(), uid, req.Updates)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeSession(w, r, uid, s)
}

// Timer dispatches displayed-timer actions.
func (h *SessionHandler) Timer(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Action  string `json:"action"`
		Minutes int    `json:"minutes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s, err := h.svc.Timer(r.Context(), uid, req.Action, req.Minutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.writeSession(w, r, uid, s)
}

// Chat performs one blocking chat turn.
func (h *SessionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		Error(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	s, err := h.svc.Chat(r.Context(), uid, req.Message)
	if err != nil {
		if errors.Is(err, ai.ErrRateLimited) || errors.Is(err, ai.ErrUnavailable) {
			writeServiceError(w, err)
			return
		}
		slog.Error("Chat turn failed", "error", err, "user_id", uid)
		Error(w, http.StatusBadGateway, "model error: "+err.Error())
		return
	}
	h.writeSession(w, r, uid, s)
}

// stepView is the sidebar metadata of one step.
type stepView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// ListSteps returns the step registry in registration order.
func (h *SessionHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	out := make([]stepView, 0, len(steps.Registry()))
	for _, s := range steps.Registry() {
		out = append(out, stepView{
			ID:          s.ID(),
			Label:       s.Label(),
			Icon:        s.Icon(),
			Description: s.Description(),
		})
	}
	JSON(w, http.StatusOK, out)
}

// Suggest performs a per-step AI call and returns the fresh reply.
func (h *SessionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	stepID := chi.URLParam(r, "stepID")

	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		Error(w, http.StatusBadRequest, "prompt must not be empty")
		return
	}

	reply, err := h.svc.Suggest(r.Context(), uid, stepID, req.Prompt)
	if err != nil {
		if errors.Is(err, session.ErrUnknownStep) ||
			errors.Is(err, ai.ErrRateLimited) || errors.Is(err, ai.ErrUnavailable) {
			writeServiceError(w, err)
			return
		}
		slog.Error("Suggestion failed", "error", err, "user_id", uid, "step", stepID)
		Error(w, http.StatusBadGateway, "model error: "+err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]string{"step_id": stepID, "reply": reply})
}
