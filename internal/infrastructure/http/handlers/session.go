package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// SessionSource exposes the current session.
type SessionSource interface {
	Snapshot() domain.Session
}

// SessionHandler handles GET /session. The token is never rendered.
type SessionHandler struct {
	sessions SessionSource
}

func NewSessionHandler(sessions SessionSource) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type sessionResponse struct {
	Status   domain.SessionStatus `json:"status"`
	Username string               `json:"username,omitempty"`
	Disabled bool                 `json:"disabled,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func (h *SessionHandler) Get(c echo.Context) error {
	snap := h.sessions.Snapshot()
	resp := sessionResponse{Status: snap.Status, Error: snap.ErrorMessage}
	if snap.User != nil {
		resp.Username = snap.User.Username
		resp.Disabled = snap.User.Disabled
	}
	return c.JSON(http.StatusOK, resp)
}
