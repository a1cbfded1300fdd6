// Package gemini is a focused client for the Google Generative Language
// REST API: one-shot content generation plus file uploads for media prompts.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxResponseSize bounds how much of a response body is read (1 MB).
const maxResponseSize = 1 << 20

// APIError captures a non-2xx upstream response with status-aware context.
type APIError struct {
	StatusCode int
	Status     string // API status string, e.g. RESOURCE_EXHAUSTED
	Message    string
	// Response carries candidate metadata when the API returned one
	// alongside the error, e.g. safety ratings on a blocked request.
	Response *GenerateResponse
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini: status %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: status %d: %s", e.StatusCode, e.Message)
}

// SafetyBlocked reports whether the first candidate attached to the error
// finished with the SAFETY reason.
func (e *APIError) SafetyBlocked() bool {
	return e.Response != nil && len(e.Response.Candidates) > 0 &&
		e.Response.Candidates[0].FinishReason == FinishReasonSafety
}

// SafetyRatings returns the safety ratings attached to the error, if any.
func (e *APIError) SafetyRatings() []SafetyRating {
	if e.Response == nil {
		return nil
	}
	if len(e.Response.Candidates) > 0 && len(e.Response.Candidates[0].SafetyRatings) > 0 {
		return e.Response.Candidates[0].SafetyRatings
	}
	if e.Response.PromptFeedback != nil {
		return e.Response.PromptFeedback.SafetyRatings
	}
	return nil
}

// Client talks to the Generative Language API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests to point the client
// at a local stub server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client authenticated with the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: API key must not be empty")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenerateContent performs a single generateContent call against the given
// model. Non-2xx responses are returned as *APIError.
func (c *Client) GenerateContent(ctx context.Context, model string, req GenerateRequest) (*GenerateResponse, error) {
	if model == "" {
		return nil, errors.New("gemini: model must not be empty")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var resp GenerateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	return &resp, nil
}

// UploadFile pushes a local file into the provider's file store and returns
// its descriptor. The image prompt path references the upload by URI instead
// of inlining the bytes.
func (c *Client) UploadFile(ctx context.Context, path, mimeType string) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gemini: open file for upload: %w", err)
	}
	defer f.Close()

	url := c.baseURL + "/upload/v1beta/files"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return nil, fmt.Errorf("gemini: create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mimeType)
	httpReq.Header.Set("X-Goog-Upload-Protocol", "raw")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	var payload struct {
		File FileInfo `json:"file"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("gemini: decode upload response: %w", err)
	}
	if payload.File.URI == "" {
		return nil, errors.New("gemini: upload response missing file uri")
	}
	return &payload.File, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("gemini: read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, parseAPIError(res.StatusCode, raw)
	}
	return raw, nil
}

// parseAPIError decodes the API's error envelope and, when present, the
// candidate payload some rejections carry next to it.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var payload struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Status = payload.Error.Status
		apiErr.Message = payload.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	var resp GenerateResponse
	if err := json.Unmarshal(body, &resp); err == nil && (len(resp.Candidates) > 0 || resp.PromptFeedback != nil) {
		apiErr.Response = &resp
	}
	return apiErr
}
