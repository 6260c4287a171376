package middleware

import (
	"context"
	"net/http"

	"image-editor/internal/editor"
)

// SessionCookie names the cookie carrying the editor session id.
const SessionCookie = "editor_session"

// Session attaches the caller's editor controller to the request, creating a
// session and setting the cookie when the request carries none or an expired
// one.
func Session(sessions *editor.Sessions, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
			sessionID, ctrl, created := sessions.Resolve(id)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			ctx = context.WithValue(ctx, editorKey, ctrl)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ControllerFromContext returns the session controller set by Session.
func ControllerFromContext(ctx context.Context) (*editor.Controller, bool) {
	c, ok := ctx.Value(editorKey).(*editor.Controller)
	return c, ok && c != nil
}

func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithController is used by tests and background callers that drive a
// controller without going through Session.
func ContextWithController(ctx context.Context, sessionID string, c *editor.Controller) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, editorKey, c)
}
