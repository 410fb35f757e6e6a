// Package ragapi is the HTTP client for the remote retrieval-augmented
// question-answering backend.
package ragapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tylerhall7/gradbot/internal/metrics"
	"github.com/tylerhall7/gradbot/internal/models"
)

// DefaultK is the retrieval result count sent with every query.
const DefaultK = 3

// Client talks to the RAG backend. It is stateless; every call takes a
// context and the http.Client timeout bounds hung requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records call timings into the given collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(cl *Client) {
		cl.metrics = c
	}
}

// WithHTTPClient swaps the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = h
	}
}

// New creates a backend client. Timeout applies to each individual request.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryRequest is the payload for POST /query.
type QueryRequest struct {
	Query  string `json:"query"`
	APIKey string `json:"api_key"`
	K      int    `json:"k"`
	Model  string `json:"model"`
}

// QueryResponse is the answer to a query. Response is normalized to plain
// text at this boundary; no untyped payload propagates into the transcript.
type QueryResponse struct {
	Response      string
	RetrievedDocs []models.RetrievedDoc
	ModelUsed     string
}

// queryWire is the raw JSON shape. The response field has been observed as
// either a string or an arbitrary object, so it is decoded as a variant.
type queryWire struct {
	Response      json.RawMessage       `json:"response"`
	RetrievedDocs []models.RetrievedDoc `json:"retrieved_docs"`
	ModelUsed     string                `json:"model_used"`
}

// FeedbackRequest is the payload for POST /feedback.
type FeedbackRequest struct {
	Timestamp         string                `json:"timestamp"`
	Query             string                `json:"query"`
	Response          string                `json:"response"`
	FeedbackType      string                `json:"feedback_type"`
	ThumbsUpReason    string                `json:"thumbs_up_reason,omitempty"`
	ThumbsDownReason  string                `json:"thumbs_down_reason,omitempty"`
	CorrectedQuestion string                `json:"corrected_question,omitempty"`
	CorrectAnswer     string                `json:"correct_answer,omitempty"`
	ModelUsed         string                `json:"model_used,omitempty"`
	RetrievedDocs     []models.RetrievedDoc `json:"retrieved_docs,omitempty"`
	SourceMessageID   string                `json:"source_message_id,omitempty"`
}

// Query sends a question to the backend. K defaults to DefaultK when unset.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if req.K <= 0 {
		req.K = DefaultK
	}

	start := time.Now()
	var wire queryWire
	err := c.post(ctx, "/query", req, &wire)
	c.record(metrics.OpRemoteQuery, start)
	if err != nil {
		return nil, err
	}

	return &QueryResponse{
		Response:      normalizeResponse(wire.Response),
		RetrievedDocs: wire.RetrievedDocs,
		ModelUsed:     wire.ModelUsed,
	}, nil
}

// SubmitFeedback forwards a feedback payload. No response body is expected.
func (c *Client) SubmitFeedback(ctx context.Context, req FeedbackRequest) error {
	start := time.Now()
	err := c.post(ctx, "/feedback", req, nil)
	c.record(metrics.OpRemoteFeedback, start)
	return err
}

// Health probes GET /health to pre-warm a possibly idle backend.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.record(metrics.OpRemoteHealth, start)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("health check: %s - %s", resp.Status, string(body))
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend error: %s - %s", resp.Status, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) record(op string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordTiming(op, time.Since(start))
	}
}

// normalizeResponse resolves the response variant to plain text: strings pass
// through, objects unwrap a well-known text field, anything else falls back
// to its JSON rendering.
func normalizeResponse(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"response", "answer", "text"} {
			if v, ok := obj[key].(string); ok {
				return v
			}
		}
	}

	return string(raw)
}
