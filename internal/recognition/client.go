// Package recognition talks to the external plate recognition service.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNotConfigured = errors.New("recognition service not configured")

// Result is the recognition output for one image.
type Result struct {
	VehicleTypes   []string `json:"vehicle_types"`
	Plates         []string `json:"recognized_plates"`
	AnnotatedImage string   `json:"annotated_image,omitempty"`
}

// BestPlate returns the first plate with any text, trimmed, or "".
func (r *Result) BestPlate() string {
	if r == nil {
		return ""
	}
	for _, p := range r.Plates {
		if p = strings.TrimSpace(p); p != "" {
			return p
		}
	}
	return ""
}

type Recognizer interface {
	Recognize(ctx context.Context, filename string, image []byte) (*Result, error)
}

// StatusError is returned for a non-2xx reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recognition service returned %d: %s", e.StatusCode, e.Body)
}

type HTTPClient struct {
	url        string
	httpClient *http.Client
	maxTries   uint
	backOff    func() backoff.BackOff
}

type Option func(*HTTPClient)

func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

func WithMaxTries(n uint) Option {
	return func(h *HTTPClient) {
		if n > 0 {
			h.maxTries = n
		}
	}
}

func WithBackOff(f func() backoff.BackOff) Option {
	return func(h *HTTPClient) { h.backOff = f }
}

func NewHTTPClient(url string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxTries: 3,
		backOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 500 * time.Millisecond
			bo.MaxInterval = 5 * time.Second
			return bo
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recognize uploads image as the multipart field "file". Transport errors
// and 5xx replies are retried; 4xx replies are not.
func (c *HTTPClient) Recognize(ctx context.Context, filename string, image []byte) (*Result, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}
	if filename == "" {
		filename = "image.jpg"
	}

	return backoff.Retry(ctx, func() (*Result, error) {
		return c.recognizeOnce(ctx, filename, image)
	},
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries),
	)
}

func (c *HTTPClient) recognizeOnce(ctx context.Context, filename string, image []byte) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, backoff.Permanent(err)
	}
	if err := mw.Close(); err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		if resp.StatusCode < 500 {
			return nil, backoff.Permanent(statusErr)
		}
		return nil, statusErr
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode recognition response: %w", err))
	}
	return &result, nil
}
