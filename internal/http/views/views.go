// Package views renders the editor page from a session snapshot. Templates
// are embedded and hold no state; everything they show comes from
// editor.State.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"golang.org/x/text/language"

	"image-editor/internal/domain"
	"image-editor/internal/editor"
	"image-editor/internal/i18n"
	"image-editor/internal/imagefile"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Uploader is the drop/click zone. When Disabled every interaction is
// ignored.
type Uploader struct {
	Lang     language.Tag
	Disabled bool
	FileName string
}

// Viewer shows one image slot with an optional busy overlay.
type Viewer struct {
	Lang      language.Tag
	ID        string
	Title     string
	Data      *string
	MediaType string
	Busy      bool
}

// Src is the inline data URI of the image, or "" when there is nothing to
// show.
func (v Viewer) Src() template.URL {
	if v.Data == nil || v.MediaType == "" {
		return ""
	}
	return template.URL(imagefile.DataURI(v.MediaType, *v.Data))
}

// ShowPlaceholder reports whether the empty-slot text is shown.
func (v Viewer) ShowPlaceholder() bool {
	return v.Src() == "" && !v.Busy
}

// Page is the full editor screen.
type Page struct {
	Lang             language.Tag
	LangCode         string
	Version          uint64
	Prompt           string
	HasFile          bool
	Loading          bool
	Upload           Uploader
	Original         Viewer
	Edited           Viewer
	PromptDisabled   bool
	GenerateDisabled bool
	Error            string
}

// NewPage derives the page model from a snapshot.
func NewPage(lang language.Tag, st editor.State) Page {
	p := Page{
		Lang:             lang,
		LangCode:         i18n.Code(lang),
		Version:          st.Version,
		Prompt:           st.Prompt,
		HasFile:          st.HasFile(),
		Loading:          st.Loading,
		Upload:           Uploader{Lang: lang, Disabled: st.Loading},
		PromptDisabled:   !st.HasFile() || st.Loading,
		GenerateDisabled: !st.CanSubmit(),
		Error:            errorText(lang, st.Error),
		Original: Viewer{
			Lang:      lang,
			ID:        "original",
			Title:     i18n.T(lang, "Original"),
			MediaType: st.MediaType(),
		},
		Edited: Viewer{
			Lang:      lang,
			ID:        "edited",
			Title:     i18n.T(lang, "Edited with Gemini"),
			Data:      st.Result,
			MediaType: st.MediaType(),
			Busy:      st.Loading,
		},
	}
	if st.Image != nil {
		p.Upload.FileName = st.Image.Name
		p.Original.Data = st.Image.Data
	}
	return p
}

func errorText(lang language.Tag, e *domain.Error) string {
	if e == nil {
		return ""
	}
	return i18n.ErrorMessage(lang, e)
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("views").Funcs(template.FuncMap{
		"t": i18n.T,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named template into a buffer first so a failing
// template never leaves a half written response.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) Page(w io.Writer, p Page) error {
	return r.Render(w, "page", p)
}
