package handlers

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/rs/zerolog"

	"image-editor/internal/editor"
	"image-editor/internal/i18n"
	"image-editor/internal/imagefile"
	"image-editor/internal/middleware"
	"image-editor/pkg/zip"
)

// Archive downloads the original and edited images of the session as one
// zip file. Missing images are left out; with neither present it answers 404.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	c, ok := a.controller(w, r)
	if !ok {
		return
	}
	assets, err := archiveAssets(c.Snapshot())
	if err != nil {
		a.error(w, http.StatusBadGateway, "invalid_image_data", err.Error())
		return
	}
	if len(assets) == 0 {
		lang := middleware.LocaleFromContext(r.Context())
		a.error(w, http.StatusNotFound, "not_found", i18n.T(lang, "Not found."))
		return
	}

	var buf bytes.Buffer
	if err := zip.ArchiveAssets(&buf, assets); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("handlers: build archive")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="gemini-edit.zip"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func archiveAssets(st editor.State) ([]zip.Asset, error) {
	ext := extensionFor(st.MediaType())
	var assets []zip.Asset
	add := func(name string, data *string) error {
		if data == nil {
			return nil
		}
		raw, err := imagefile.Decode(*data)
		if err != nil {
			return err
		}
		assets = append(assets, zip.Asset{Filename: name + ext, MIME: st.MediaType(), Data: raw})
		return nil
	}
	if st.Image != nil {
		if err := add("original", st.Image.Data); err != nil {
			return nil, err
		}
	}
	if err := add("edited", st.Result); err != nil {
		return nil, err
	}
	return assets, nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}
