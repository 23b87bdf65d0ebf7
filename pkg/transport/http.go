package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inercia/go-llm-stream/pkg/llm"
)

// Mode selects how a response body is split into raw events
type Mode int

const (
	// ModeSSE yields one event per server-sent event
	ModeSSE Mode = iota

	// ModeBody yields the whole response body as a single event
	ModeBody
)

// maxBodyBytes bounds single-body responses (base64 images are large)
const maxBodyBytes = 64 << 20

const anthropicVersion = "2023-06-01"

// endpoint describes how one backend is reached
type endpoint struct {
	path string
	mode Mode
	auth func(h http.Header, apiKey string)
}

func bearer(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

func endpointFor(backend llm.Backend, model string) endpoint {
	switch backend {
	case llm.BackendOpenAI:
		return endpoint{path: "/responses", auth: bearer}
	case llm.BackendImage:
		return endpoint{path: "/images/generations", mode: ModeBody, auth: bearer}
	case llm.BackendAnthropic:
		return endpoint{path: "/messages", auth: func(h http.Header, apiKey string) {
			h.Set("x-api-key", apiKey)
			h.Set("anthropic-version", anthropicVersion)
		}}
	case llm.BackendGemini:
		return endpoint{path: "/models/" + model + ":streamGenerateContent?alt=sse", auth: func(h http.Header, apiKey string) {
			h.Set("x-goog-api-key", apiKey)
		}}
	}
	return endpoint{path: "/chat/completions", auth: bearer}
}

// HTTPOpener opens backend streams with plain HTTP POSTs
type HTTPOpener struct {
	backend    llm.Backend
	baseURL    string
	endpoint   endpoint
	timeout    time.Duration
	httpClient *http.Client
	headers    http.Header
	logger     *zap.Logger
}

// Option configures an HTTPOpener
type Option func(*HTTPOpener)

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(c *http.Client) Option {
	return func(o *HTTPOpener) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *HTTPOpener) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMode overrides how the response body is split into events
func WithMode(mode Mode) Option {
	return func(o *HTTPOpener) {
		o.endpoint.mode = mode
	}
}

// WithPath overrides the endpoint path appended to the base URL
func WithPath(path string) Option {
	return func(o *HTTPOpener) {
		o.endpoint.path = path
	}
}

// WithHeader adds a header sent with every request
func WithHeader(key, value string) Option {
	return func(o *HTTPOpener) {
		o.headers.Set(key, value)
	}
}

// NewHTTPOpener creates an opener for the configured backend
func NewHTTPOpener(cfg llm.BackendConfig, opts ...Option) *HTTPOpener {
	cfg = cfg.WithDefaults()
	o := &HTTPOpener{
		backend:    cfg.Backend,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		endpoint:   endpointFor(cfg.Backend, cfg.Model),
		timeout:    cfg.Timeout,
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open posts the payload and returns the response as an event stream. The
// stream is bounded by the configured timeout and released by Close.
func (o *HTTPOpener) Open(ctx context.Context, payload llm.Payload, apiKey string) (llm.EventStream, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url(payload), bytes.NewReader(payload.Body))
	if err != nil {
		cancel()
		return nil, &llm.Error{Code: "invalid_request", Message: err.Error(), Type: llm.ErrorTypeValidation, Err: err}
	}
	o.applyHeaders(req, payload, apiKey)

	o.logger.Debug("opening stream",
		zap.String("backend", o.backend.String()),
		zap.String("url", req.URL.Redacted()),
		zap.Int("payload_bytes", len(payload.Body)))

	resp, err := o.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, wrapTransportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		err := parseError(o.backend, resp)
		o.logger.Warn("backend rejected request",
			zap.String("backend", o.backend.String()),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return nil, err
	}

	return newStream(ctx, cancel, resp.Body, o.endpoint.mode), nil
}

// NewReaderStream splits r into raw events the way a response body of the given
// mode is split. Closing the stream closes r.
func NewReaderStream(ctx context.Context, r io.ReadCloser, mode Mode) llm.EventStream {
	ctx, cancel := context.WithCancel(ctx)
	return newStream(ctx, cancel, r, mode)
}

func newStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, mode Mode) llm.EventStream {
	if mode == ModeBody {
		return &bodyStream{ctx: ctx, cancel: cancel, body: body}
	}
	return &sseStream{ctx: ctx, cancel: cancel, body: body, dec: NewSSEDecoder(body)}
}

func (o *HTTPOpener) url(payload llm.Payload) string {
	path := o.endpoint.path
	if payload.Path != "" {
		path = payload.Path
	}
	if path == "" {
		return o.baseURL
	}
	return o.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (o *HTTPOpener) applyHeaders(req *http.Request, payload llm.Payload, apiKey string) {
	contentType := payload.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	if o.endpoint.mode == ModeSSE {
		req.Header.Set("Accept", "text/event-stream")
	}
	for k, vs := range o.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, v := range payload.Headers {
		req.Header.Set(k, v)
	}
	if apiKey != "" && o.endpoint.auth != nil {
		o.endpoint.auth(req.Header, apiKey)
	}
}

// sseStream yields the data payload of each server-sent event
type sseStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser
	dec    *SSEDecoder
}

func (s *sseStream) Recv() ([]byte, error) {
	for {
		data, err := s.dec.NextData()
		if errors.Is(err, io.EOF) {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, wrapTransportError(s.ctx, ctxErr)
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, wrapTransportError(s.ctx, err)
		}
		switch data {
		case "":
			continue
		case "[DONE]":
			return nil, io.EOF
		}
		return []byte(data), nil
	}
}

func (s *sseStream) Close() error {
	s.cancel()
	return s.body.Close()
}

// bodyStream yields the whole response body once
type bodyStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser
	read   bool
}

func (s *bodyStream) Recv() ([]byte, error) {
	if s.read {
		return nil, io.EOF
	}
	s.read = true
	data, err := io.ReadAll(io.LimitReader(s.body, maxBodyBytes))
	if err != nil {
		return nil, wrapTransportError(s.ctx, err)
	}
	return data, nil
}

func (s *bodyStream) Close() error {
	s.cancel()
	return s.body.Close()
}
