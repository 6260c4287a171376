package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"image-editor/internal/domain"
	"image-editor/internal/http/views"
	"image-editor/internal/middleware"
)

// Index renders the editor for the caller's session.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	page := views.NewPage(middleware.LocaleFromContext(r.Context()), c.Snapshot())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := a.Views.Page(w, page); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("handlers: render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// Upload is the form fallback of the upload surface. Outcomes are stored in
// the session and shown after the redirect.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	f, err := a.uploadedFile(w, r)
	if err != nil {
		zerolog.Ctx(r.Context()).Info().Err(err).Msg("handlers: upload ignored")
		if uploadErrorStatus(err) == http.StatusRequestEntityTooLarge {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	_ = c.SelectImage(r.Context(), f)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Submit stores the posted prompt and runs the edit before redirecting back.
func (a *App) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if _, present := r.PostForm["prompt"]; present {
		if err := c.SetPrompt(r.PostForm.Get("prompt")); errors.Is(err, domain.ErrBusy) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	_ = c.Submit(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
