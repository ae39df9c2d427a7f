// Package client is a typed Go client for the Test Stack API.
//
// Request payloads are validated locally against the shared contracts before
// anything is sent, so a caller gets the same field issues the server would
// report without a round trip. Failures returned by the server are decoded
// from their problem+json body into *Error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// Header names understood by the API.
const (
	TraceIDHeader            = "X-Trace-ID"
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

// Client talks to one API deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	// BaseURL includes the API base path, e.g. http://localhost:3001/api.
	BaseURL string
	// Timeout applies when HTTPClient is nil. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient overrides the transport.
	HTTPClient *http.Client
}

// New creates a new Client.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
	}
}

//
// Errors
//

// Error is a failure reported by the server as a problem+json body.
type Error struct {
	Status  int
	Problem contracts.ProblemDetails
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("api error %d: %s", e.Status, e.Problem.Title)
	if e.Problem.Detail != "" {
		msg += ": " + e.Problem.Detail
	}
	return msg
}

// ValidationError is returned before sending when a request payload
// violates its contract.
type ValidationError struct {
	Contract string
	Issues   []contracts.FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if p := is.Path.String(); p != "" {
			parts = append(parts, p+": "+is.Message)
		} else {
			parts = append(parts, is.Message)
		}
	}
	return fmt.Sprintf("invalid %s: %s", e.Contract, strings.Join(parts, "; "))
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func check(contract string, v any) error {
	if issues := contracts.Validate(v); len(issues) > 0 {
		return &ValidationError{Contract: contract, Issues: issues}
	}
	return nil
}

//
// Context helpers
//

type traceIDKey struct{}

// WithTraceID returns a context whose requests carry id in X-Trace-ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

func traceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// RequestOption customizes one outgoing request.
type RequestOption func(*http.Request)

// WithIdempotencyKey sets the Idempotency-Key header on a create.
func WithIdempotencyKey(key string) RequestOption {
	return func(r *http.Request) { r.Header.Set(IdempotencyKeyHeader, key) }
}

//
// API Methods
//

// ServiceInfo fetches GET /.
func (c *Client) ServiceInfo(ctx context.Context) (*contracts.ServiceInfo, error) {
	var out contracts.ServiceInfo
	if _, err := c.do(ctx, http.MethodGet, "/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches GET /health.
func (c *Client) Health(ctx context.Context) (*contracts.HealthResponse, error) {
	var out contracts.HealthResponse
	if _, err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Contracts fetches the published contract document.
func (c *Client) Contracts(ctx context.Context) (*contracts.ContractDocument, error) {
	var out contracts.ContractDocument
	if _, err := c.do(ctx, http.MethodGet, "/contracts", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListItems fetches one page of items. Zero Page and PageSize take the
// contract defaults.
func (c *Client) ListItems(ctx context.Context, q contracts.ListItemsQuery) (*contracts.ListItemsResponse, error) {
	q.Page, q.PageSize = pageDefaults(q.Page, q.PageSize)
	if err := check("ListItemsQuery", q); err != nil {
		return nil, err
	}
	var out contracts.ListItemsResponse
	if _, err := c.do(ctx, http.MethodGet, "/items", listQuery(q.Page, q.PageSize, q.Q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateItem creates an item. replayed reports a server-side idempotent
// replay of an earlier create.
func (c *Client) CreateItem(ctx context.Context, body contracts.CreateItemBody, opts ...RequestOption) (item *contracts.ItemDTO, replayed bool, err error) {
	if err := check("CreateItemBody", body); err != nil {
		return nil, false, err
	}
	var out contracts.ItemDTO
	resp, err := c.do(ctx, http.MethodPost, "/items", nil, body, &out, opts...)
	if err != nil {
		return nil, false, err
	}
	return &out, resp.Header.Get(IdempotentReplayedHeader) == "true", nil
}

// GetItem fetches an item by id.
func (c *Client) GetItem(ctx context.Context, id string) (*contracts.ItemDTO, error) {
	if err := check("ResourceID", contracts.ResourceID{ID: id}); err != nil {
		return nil, err
	}
	var out contracts.ItemDTO
	if _, err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotes fetches one page of notes.
func (c *Client) ListNotes(ctx context.Context, q contracts.ListNotesQuery) (*contracts.ListNotesResponse, error) {
	q.Page, q.PageSize = pageDefaults(q.Page, q.PageSize)
	if err := check("ListNotesQuery", q); err != nil {
		return nil, err
	}
	var out contracts.ListNotesResponse
	if _, err := c.do(ctx, http.MethodGet, "/notes", listQuery(q.Page, q.PageSize, q.Q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateNote creates a note.
func (c *Client) CreateNote(ctx context.Context, body contracts.CreateNoteBody, opts ...RequestOption) (note *contracts.NoteDTO, replayed bool, err error) {
	if err := check("CreateNoteBody", body); err != nil {
		return nil, false, err
	}
	var out contracts.NoteDTO
	resp, err := c.do(ctx, http.MethodPost, "/notes", nil, body, &out, opts...)
	if err != nil {
		return nil, false, err
	}
	return &out, resp.Header.Get(IdempotentReplayedHeader) == "true", nil
}

// GetNote fetches a note by id.
func (c *Client) GetNote(ctx context.Context, id string) (*contracts.NoteDTO, error) {
	if err := check("ResourceID", contracts.ResourceID{ID: id}); err != nil {
		return nil, err
	}
	var out contracts.NoteDTO
	if _, err := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//
// Transport
//

func pageDefaults(page, size int) (int, int) {
	if page == 0 {
		page = contracts.DefaultPage
	}
	if size == 0 {
		size = contracts.DefaultPageSize
	}
	return page, size
}

func listQuery(page, size int, q string) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	if q != "" {
		v.Set("q", q)
	}
	return v
}

// do sends one request and decodes a 2xx JSON body into out. Any other
// status becomes *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, opts ...RequestOption) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := traceIDFrom(ctx); id != "" {
		req.Header.Set(TraceIDHeader, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, decodeProblem(resp.StatusCode, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

func decodeProblem(status int, body []byte) error {
	apiErr := &Error{Status: status}
	if err := json.Unmarshal(body, &apiErr.Problem); err != nil || apiErr.Problem.Title == "" {
		apiErr.Problem = contracts.ProblemDetails{
			Title:  http.StatusText(status),
			Status: status,
			Detail: strings.TrimSpace(string(body)),
		}
	}
	return apiErr
}
