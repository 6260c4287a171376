package editor

import (
	"strings"

	"image-editor/internal/domain"
)

// SelectedImage is the upload the session currently works on. Data is nil
// until encoding completes, or stays nil when encoding failed.
type SelectedImage struct {
	Name      string  `json:"name"`
	MediaType string  `json:"media_type"`
	Size      int64   `json:"size"`
	Data      *string `json:"data"`
}

// State is an immutable snapshot of a session. Result shares the original
// image's media type for display.
type State struct {
	Image   *SelectedImage `json:"image"`
	Prompt  string         `json:"prompt"`
	Result  *string        `json:"result"`
	Loading bool           `json:"loading"`
	Error   *domain.Error  `json:"error"`
	Version uint64         `json:"version"`
}

// HasFile reports whether a file has been selected, encoded or not.
func (s State) HasFile() bool {
	return s.Image != nil
}

// Ready reports whether an encoded image is available for submission.
func (s State) Ready() bool {
	return s.Image != nil && s.Image.Data != nil
}

// MediaType is the selected file's declared type, or "" without a file.
func (s State) MediaType() string {
	if s.Image == nil {
		return ""
	}
	return s.Image.MediaType
}

// CanSubmit mirrors the enabled state of the generate control.
func (s State) CanSubmit() bool {
	return s.HasFile() && strings.TrimSpace(s.Prompt) != "" && !s.Loading
}

func (s State) clone() State {
	out := s
	if s.Image != nil {
		img := *s.Image
		out.Image = &img
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}
