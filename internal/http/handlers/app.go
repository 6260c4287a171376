package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"image-editor/internal/domain"
	"image-editor/internal/editor"
	"image-editor/internal/http/views"
	"image-editor/internal/i18n"
	"image-editor/internal/middleware"
)

const (
	defaultMaxUploadBytes = 20 << 20
	defaultHeartbeat      = 25 * time.Second
)

// App holds the dependencies shared by every handler. The per-session
// controller is taken from the request context set by middleware.Session.
type App struct {
	Views             *views.Renderer
	Model             string
	GeminiConfigured  bool
	MaxUploadBytes    int64
	HeartbeatInterval time.Duration
}

func (a *App) maxUploadBytes() int64 {
	if a.MaxUploadBytes > 0 {
		return a.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func (a *App) heartbeat() time.Duration {
	if a.HeartbeatInterval > 0 {
		return a.HeartbeatInterval
	}
	return defaultHeartbeat
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// domainError writes err using the status mapped from its code. Errors that
// are not user-facing are logged and reported as internal.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	var e *domain.Error
	if !errors.As(err, &e) {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("handlers: unexpected error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	lang := middleware.LocaleFromContext(r.Context())
	a.error(w, statusFor(e.Code), e.Code, i18n.ErrorMessage(lang, e))
}

func statusFor(code string) int {
	switch code {
	case domain.CodeInvalidFileType:
		return http.StatusUnsupportedMediaType
	case domain.CodeReadFailed:
		return http.StatusUnprocessableEntity
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeBusy:
		return http.StatusConflict
	case domain.CodeGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// controller returns the session controller or answers 500 when the route
// is mounted without the session middleware.
func (a *App) controller(w http.ResponseWriter, r *http.Request) (*editor.Controller, bool) {
	c, ok := middleware.ControllerFromContext(r.Context())
	if !ok {
		zerolog.Ctx(r.Context()).Error().Msg("handlers: no editor session in context")
		a.error(w, http.StatusInternalServerError, "internal", "session unavailable")
		return nil, false
	}
	return c, true
}

type stateResponse struct {
	editor.State
	CanSubmit bool `json:"can_submit"`
}

func newStateResponse(st editor.State) stateResponse {
	return stateResponse{State: st, CanSubmit: st.CanSubmit()}
}
