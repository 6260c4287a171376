package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"image-editor/internal/domain"
	"image-editor/internal/infra"
	"image-editor/internal/metrics"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash-image"

	modalityImage = "IMAGE"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Metrics    *metrics.Metrics
}

// Client sends image edit requests to the Gemini generateContent endpoint.
// Every call makes exactly one HTTP request; there is no retry and no caching.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
	metrics    *metrics.Metrics
}

// EditRequest carries the source image and the instruction.
type EditRequest struct {
	Data     string // base64, no data URI prefix
	MimeType string
	Prompt   string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// StatusError is returned for non-success HTTP responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("gemini status %d", e.StatusCode)
}

// NewClient constructs a Gemini client. A nil HTTP client is replaced by one
// without a timeout: calls run until the service answers or the transport fails.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasAPIKey reports whether a credential was supplied.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// EditImage submits the image and prompt and returns the base64 data of the
// first inline image part in the response. Every failure is reported as a
// single *domain.Error with code generation_failed.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (string, error) {
	start := time.Now()
	data, err := c.editImage(ctx, req)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, domain.ErrNoImageInResponse):
		outcome = metrics.OutcomeNoImage
	case err != nil:
		outcome = metrics.OutcomeError
	}
	c.metrics.ObserveEdit(c.model, outcome, elapsed)

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("model", c.model).
			Dur("elapsed", elapsed).
			Msg("genai: image edit failed")
		return "", domain.GenerationFailed(err)
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("mime_type", req.MimeType).
		Dur("elapsed", elapsed).
		Msg("genai: image edit succeeded")
	return data, nil
}

func (c *Client) editImage(ctx context.Context, req EditRequest) (string, error) {
	if c.apiKey == "" {
		return "", domain.ErrMissingAPIKey
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{InlineData: &geminiInlineData{MimeType: req.MimeType, Data: req.Data}},
					{Text: req.Prompt},
				},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{modalityImage},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return "", err
	}
	return firstInlineImage(response)
}

func firstInlineImage(response geminiGenerateContentResponse) (string, error) {
	if len(response.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return part.InlineData.Data, nil
		}
	}
	return "", domain.ErrNoImageInResponse
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
		}
		if msg := strings.TrimSpace(string(data)); msg != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("gemini status %d: %s", resp.StatusCode, msg)}
		}
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
