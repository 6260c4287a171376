package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"image-editor/internal/i18n"
	"image-editor/internal/imagefile"
	"image-editor/internal/middleware"
)

const maxJSONBody = 1 << 20

type promptRequest struct {
	Prompt *string `json:"prompt"`
}

func (a *App) State(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, newStateResponse(c.Snapshot()))
}

func (a *App) SelectImage(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	f, err := a.uploadedFile(w, r)
	if err != nil {
		a.error(w, uploadErrorStatus(err), "bad_request", err.Error())
		return
	}
	if err := c.SelectImage(r.Context(), f); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStateResponse(c.Snapshot()))
}

func (a *App) SetPrompt(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil || req.Prompt == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "body must be {\"prompt\": string}")
		return
	}
	if err := c.SetPrompt(*req.Prompt); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStateResponse(c.Snapshot()))
}

// SubmitEdit runs the edit synchronously. An optional prompt in the body
// replaces the stored one first.
func (a *App) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	var req promptRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Prompt != nil {
		if err := c.SetPrompt(*req.Prompt); err != nil {
			a.domainError(w, r, err)
			return
		}
	}
	if err := c.Submit(r.Context()); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newStateResponse(c.Snapshot()))
}

// Image serves the raw bytes of the original or edited image.
func (a *App) Image(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	st := c.Snapshot()
	var data *string
	switch chi.URLParam(r, "kind") {
	case "original":
		if st.Image != nil {
			data = st.Image.Data
		}
	case "edited":
		data = st.Result
	}
	if data == nil {
		lang := middleware.LocaleFromContext(r.Context())
		a.error(w, http.StatusNotFound, "not_found", i18n.T(lang, "Not found."))
		return
	}
	raw, err := imagefile.Decode(*data)
	if err != nil {
		a.error(w, http.StatusBadGateway, "invalid_image_data", err.Error())
		return
	}
	mediaType := st.MediaType()
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "sandbox")
	if !rasterTypes[mediaType] {
		w.Header().Set("Content-Disposition", "attachment")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// rasterTypes are served inline; any other declared type (svg carries script)
// is forced to download.
var rasterTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/avif": true,
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
