// Package imagefile turns user uploads into the base64 text the editor keeps in
// session state and builds the inline data URIs used to display them.
package imagefile

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"image-editor/internal/domain"
)

// File is a user supplied upload: its declared metadata plus a way to read the
// bytes. Open may be called more than once.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// IsImage reports whether the declared media type is an image/* type.
// Parameters such as charset are ignored. The bytes are never sniffed.
func IsImage(mediaType string) bool {
	mt := strings.TrimSpace(mediaType)
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	return strings.HasPrefix(strings.ToLower(mt), "image/")
}

// Encode reads r to the end and returns its standard base64 encoding without
// any data URI prefix. Read failures wrap domain.ErrReadFile.
func Encode(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.ReadFailed(err)
	}
	var b strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	if _, err := io.Copy(enc, contextReader{ctx: ctx, r: r}); err != nil {
		return "", domain.ReadFailed(fmt.Errorf("read image: %w", err))
	}
	if err := enc.Close(); err != nil {
		return "", domain.ReadFailed(fmt.Errorf("flush encoder: %w", err))
	}
	return b.String(), nil
}

// EncodeFile opens f and encodes its full content.
func EncodeFile(ctx context.Context, f File) (string, error) {
	if f.Open == nil {
		return "", domain.ReadFailed(errors.New("file has no content handle"))
	}
	rc, err := f.Open()
	if err != nil {
		return "", domain.ReadFailed(fmt.Errorf("open %q: %w", f.Name, err))
	}
	defer rc.Close()
	return Encode(ctx, rc)
}

// Decode reverses Encode.
func Decode(data string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return raw, nil
}

// DataURI builds an inline resource reference for an encoded image.
func DataURI(mediaType, data string) string {
	return "data:" + mediaType + ";base64," + data
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
