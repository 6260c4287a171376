package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"image-editor/internal/imagefile"
)

var errNoUpload = errors.New("multipart field \"image\" is required")

// uploadedFile extracts the single "image" part of a multipart request. Only
// the first file of the field is used.
func (a *App) uploadedFile(w http.ResponseWriter, r *http.Request) (imagefile.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes())
	if err := r.ParseMultipartForm(a.maxUploadBytes()); err != nil {
		return imagefile.File{}, fmt.Errorf("parse upload: %w", err)
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["image"]) == 0 {
		return imagefile.File{}, errNoUpload
	}
	hdr := r.MultipartForm.File["image"][0]
	return imagefile.File{
		Name:      hdr.Filename,
		MediaType: hdr.Header.Get("Content-Type"),
		Size:      hdr.Size,
		Open: func() (io.ReadCloser, error) {
			return hdr.Open()
		},
	}, nil
}

func uploadErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
