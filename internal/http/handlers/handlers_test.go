package handlers

import (
	stdzip "archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"image-editor/internal/domain"
	"image-editor/internal/editor"
	"image-editor/internal/http/views"
	"image-editor/internal/middleware"
	"image-editor/internal/providers/genai"
)

type stubEditor struct {
	mu     sync.Mutex
	calls  []genai.EditRequest
	result string
	err    error
}

func (s *stubEditor) EditImage(ctx context.Context, req genai.EditRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return s.result, s.err
}

type testEnv struct {
	ctrl   *editor.Controller
	editor *stubEditor
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	renderer, err := views.New()
	if err != nil {
		t.Fatalf("views.New: %v", err)
	}
	stub := &stubEditor{result: "ZWRpdGVkLWRhdGE="}
	ctrl := editor.NewController(stub, nil)
	app := &App{Views: renderer, Model: "test-model", GeminiConfigured: true}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.ContextWithController(req.Context(), "s1", ctrl)))
		})
	})
	r.Get("/", app.Index)
	r.Post("/upload", app.Upload)
	r.Post("/submit", app.Submit)
	r.Get("/api/v1/state", app.State)
	r.Post("/api/v1/image", app.SelectImage)
	r.Put("/api/v1/prompt", app.SetPrompt)
	r.Post("/api/v1/submit", app.SubmitEdit)
	r.Get("/api/v1/images/{kind}", app.Image)
	r.Get("/api/v1/archive", app.Archive)
	r.Get("/v1/healthz", app.Health)
	return &testEnv{ctrl: ctrl, editor: stub, router: r}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, path, filename, mediaType, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write([]byte(content))
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiState struct {
	Image *struct {
		Name      string  `json:"name"`
		MediaType string  `json:"media_type"`
		Data      *string `json:"data"`
	} `json:"image"`
	Prompt    string  `json:"prompt"`
	Result    *string `json:"result"`
	Loading   bool    `json:"loading"`
	CanSubmit bool    `json:"can_submit"`
	Version   uint64  `json:"version"`
}

func TestAPIEditFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/api/v1/image", "cat.png", "image/png", "fake-content"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
	}
	var st apiState
	decodeBody(t, rec, &st)
	if st.Image == nil || st.Image.Data == nil || *st.Image.Data != "ZmFrZS1jb250ZW50" {
		t.Fatalf("state after upload = %+v", st)
	}
	if st.CanSubmit {
		t.Fatalf("can_submit true without a prompt")
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/prompt", strings.NewReader(`{"prompt":"add a hat"}`))
	if rec := env.do(req); rec.Code != http.StatusOK {
		t.Fatalf("prompt status = %d", rec.Code)
	}

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/v1/submit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d body=%s", rec.Code, rec.Body.String())
	}
	st = apiState{}
	decodeBody(t, rec, &st)
	if st.Result == nil || *st.Result != "ZWRpdGVkLWRhdGE=" || st.Loading {
		t.Fatalf("state after submit = %+v", st)
	}
	if len(env.editor.calls) != 1 || env.editor.calls[0].Prompt != "add a hat" || env.editor.calls[0].MimeType != "image/png" {
		t.Fatalf("edit calls = %+v", env.editor.calls)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/edited", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "edited-data" {
		t.Fatalf("edited image = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q", ct)
	}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/original", nil))
	if rec.Body.String() != "fake-content" {
		t.Fatalf("original image = %q", rec.Body.String())
	}
}

func TestImageHeaders(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		mediaType   string
		disposition string
	}{
		{name: "raster inline", filename: "cat.png", mediaType: "image/png"},
		{name: "svg downloaded", filename: "x.svg", mediaType: "image/svg+xml", disposition: "attachment"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			if rec := env.do(multipartRequest(t, "/api/v1/image", tc.filename, tc.mediaType, "<svg onload=alert(1)/>")); rec.Code != http.StatusOK {
				t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body.String())
			}
			rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/original", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Header().Get("Content-Security-Policy"); got != "sandbox" {
				t.Fatalf("Content-Security-Policy = %q, want sandbox", got)
			}
			if got := rec.Header().Get("Content-Disposition"); got != tc.disposition {
				t.Fatalf("Content-Disposition = %q, want %q", got, tc.disposition)
			}
		})
	}
}

func TestAPIErrorMapping(t *testing.T) {
	t.Run("invalid file type", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(multipartRequest(t, "/api/v1/image", "notes.txt", "text/plain", "hi"))
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("status = %d", rec.Code)
		}
		var body apiError
		decodeBody(t, rec, &body)
		if body.Error.Code != domain.CodeInvalidFileType || body.Error.Message != "Please upload a valid image file (PNG, JPEG, etc.)." {
			t.Fatalf("error = %+v", body.Error)
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/submit", strings.NewReader(`{"prompt":"add a hat"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		var body apiError
		decodeBody(t, rec, &body)
		if body.Error.Message != "Please upload an image and enter an editing prompt." {
			t.Fatalf("message = %q", body.Error.Message)
		}
		if len(env.editor.calls) != 0 {
			t.Fatalf("remote called on validation failure")
		}
	})

	t.Run("generation failed", func(t *testing.T) {
		env := newTestEnv(t)
		env.editor.err = errors.New("quota exceeded")
		env.do(multipartRequest(t, "/api/v1/image", "cat.png", "image/png", "fake-content"))
		rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/submit", strings.NewReader(`{"prompt":"p"}`)))
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d", rec.Code)
		}
		var body apiError
		decodeBody(t, rec, &body)
		if body.Error.Code != domain.CodeGenerationFailed || body.Error.Message != "Failed to generate image: quota exceeded" {
			t.Fatalf("error = %+v", body.Error)
		}
	})

	t.Run("missing image field", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/image", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		if rec := env.do(req); rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("bad prompt body", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/prompt", strings.NewReader(`{"text":"x"}`))
		if rec := env.do(req); rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("no edited image", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/edited", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
		rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/images/thumbnail", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("unknown kind status = %d", rec.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		domain.CodeInvalidFileType:  http.StatusUnsupportedMediaType,
		domain.CodeReadFailed:       http.StatusUnprocessableEntity,
		domain.CodeValidation:       http.StatusBadRequest,
		domain.CodeBusy:             http.StatusConflict,
		domain.CodeGenerationFailed: http.StatusBadGateway,
		"something_else":            http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestPageFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/upload", "cat.png", "image/png", "fake-content"))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("upload = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	form := strings.NewReader("prompt=add+a+hat")
	req := httptest.NewRequest(http.MethodPost, "/submit", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = env.do(req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("submit status = %d", rec.Code)
	}
	st := env.ctrl.Snapshot()
	if st.Prompt != "add a hat" || st.Result == nil || *st.Result != "ZWRpdGVkLWRhdGE=" {
		t.Fatalf("state after submit = %+v", st)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"data:image/png;base64,ZmFrZS1jb250ZW50", "data:image/png;base64,ZWRpdGVkLWRhdGE=", "add a hat"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestPageShowsStoredError(t *testing.T) {
	env := newTestEnv(t)
	env.do(multipartRequest(t, "/upload", "notes.txt", "text/plain", "hi"))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), "Please upload a valid image file (PNG, JPEG, etc.).") {
		t.Fatalf("page does not show the upload error")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" || body["model"] != "test-model" || body["gemini_configured"] != true {
		t.Fatalf("health = %v", body)
	}
}

func TestMissingSession(t *testing.T) {
	app := &App{}
	rec := httptest.NewRecorder()
	app.State(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestArchive(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty archive status = %d", rec.Code)
	}

	env.do(multipartRequest(t, "/api/v1/image", "cat.png", "image/png", "fake-content"))
	env.do(httptest.NewRequest(http.MethodPost, "/api/v1/submit", strings.NewReader(`{"prompt":"p"}`)))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("archive = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	zr, err := stdzip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "original.png,edited.png" {
		t.Fatalf("entries = %v", names)
	}
}
