package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"model":             a.Model,
		"gemini_configured": a.GeminiConfigured,
	})
}
