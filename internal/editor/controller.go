// Package editor holds the per-session state machine of the image editor:
// selecting an image, entering a prompt and submitting an edit.
package editor

import (
	"context"
	"strings"
	"sync"
	"time"

	"image-editor/internal/domain"
	"image-editor/internal/imagefile"
	"image-editor/internal/infra"
	"image-editor/internal/providers/genai"
)

// ImageEditor performs one remote edit and returns the base64 result.
type ImageEditor interface {
	EditImage(ctx context.Context, req genai.EditRequest) (string, error)
}

// Controller sequences the select and submit transitions for one session.
// State is guarded by mu, which is never held across the file read or the
// remote call. While a submit is in flight both transitions are refused with
// domain.ErrBusy.
type Controller struct {
	mu         sync.Mutex
	state      State
	editor     ImageEditor
	logger     *infra.Logger
	selectSeq  uint64
	subs       map[int]chan State
	nextSub    int
	lastActive time.Time
	now        func() time.Time
}

func NewController(editor ImageEditor, logger *infra.Logger) *Controller {
	if logger == nil {
		logger = infra.NopLogger()
	}
	c := &Controller{
		editor: editor,
		logger: logger,
		subs:   make(map[int]chan State),
		now:    time.Now,
	}
	c.lastActive = c.now()
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SelectImage validates the declared type, resets the session for the new
// file and encodes it. The returned error is the one stored in state, or
// domain.ErrBusy when refused.
func (c *Controller) SelectImage(ctx context.Context, f imagefile.File) error {
	c.mu.Lock()
	c.touchLocked()
	if c.state.Loading {
		c.mu.Unlock()
		return domain.ErrBusy
	}
	if !imagefile.IsImage(f.MediaType) {
		c.setErrorLocked(domain.ErrInvalidFileType)
		c.commitLocked()
		c.mu.Unlock()
		c.logger.Info().Str("media_type", f.MediaType).Msg("editor: rejected non-image upload")
		return domain.ErrInvalidFileType
	}

	c.state.Error = nil
	c.state.Result = nil
	c.state.Image = &SelectedImage{Name: f.Name, MediaType: f.MediaType, Size: f.Size}
	c.selectSeq++
	seq := c.selectSeq
	c.commitLocked()
	c.mu.Unlock()

	data, err := imagefile.EncodeFile(ctx, f)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.selectSeq {
		// a newer upload replaced this one while it was being read
		return nil
	}
	if err != nil {
		e, ok := domain.AsError(err)
		if !ok {
			e = domain.ReadFailed(err)
		}
		c.setErrorLocked(e)
		c.commitLocked()
		c.logger.Warn().Err(e.Err).Str("file", f.Name).Msg("editor: failed to read upload")
		return e
	}

	img := *c.state.Image
	img.Data = &data
	c.state.Image = &img
	c.commitLocked()
	c.logger.Debug().Str("file", f.Name).Str("media_type", f.MediaType).Int("encoded_len", len(data)).Msg("editor: image ready")
	return nil
}

// SetPrompt stores the edit instruction as typed. It is refused while a
// submit is in flight.
func (c *Controller) SetPrompt(prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
	if c.state.Loading {
		return domain.ErrBusy
	}
	if c.state.Prompt == prompt {
		return nil
	}
	c.state.Prompt = prompt
	c.commitLocked()
	return nil
}

// Submit sends the stored image and prompt to the editor. Loading is reset
// whatever the outcome. The remote call is detached from ctx cancellation:
// once started it runs to completion or failure.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	c.touchLocked()
	if c.state.Loading {
		c.mu.Unlock()
		return domain.ErrBusy
	}
	if !c.state.Ready() || strings.TrimSpace(c.state.Prompt) == "" {
		c.setErrorLocked(domain.ErrMissingInput)
		c.commitLocked()
		c.mu.Unlock()
		return domain.ErrMissingInput
	}

	c.state.Loading = true
	c.state.Error = nil
	c.state.Result = nil
	c.commitLocked()
	req := genai.EditRequest{
		Data:     *c.state.Image.Data,
		MimeType: c.state.Image.MediaType,
		Prompt:   c.state.Prompt,
	}
	c.mu.Unlock()

	var (
		result   string
		err      error
		returned bool
	)
	func() {
		defer func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.state.Loading = false
			switch {
			case !returned:
				c.setErrorLocked(domain.GenerationFailed(nil))
			case err != nil:
				c.setErrorLocked(asGenerationError(err))
			default:
				c.state.Result = &result
			}
			c.touchLocked()
			c.commitLocked()
		}()
		result, err = c.editor.EditImage(context.WithoutCancel(ctx), req)
		returned = true
	}()

	if err != nil {
		e := asGenerationError(err)
		c.logger.Warn().Str("code", e.Code).Msg("editor: " + e.Message)
		return e
	}
	c.logger.Info().Str("media_type", req.MimeType).Msg("editor: edit completed")
	return nil
}

// Subscribe returns a channel receiving the current snapshot and every later
// one. Slow subscribers only see the latest state. The returned func stops the
// subscription and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan State, 1)
	ch <- c.state.clone()
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

// Busy reports whether a submit is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Loading
}

// LastActive is the time of the last user action on this session.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Controller) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touchLocked()
}

func (c *Controller) touchLocked() {
	c.lastActive = c.now()
}

func (c *Controller) setErrorLocked(e *domain.Error) {
	cp := *e
	c.state.Error = &cp
}

func (c *Controller) commitLocked() {
	c.state.Version++
	snapshot := c.state.clone()
	for _, ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func asGenerationError(err error) *domain.Error {
	if e, ok := domain.AsError(err); ok && e.Code == domain.CodeGenerationFailed {
		return e
	}
	return domain.GenerationFailed(err)
}
