// Package backend is the HTTP client of the external Parkit backend. It
// forwards the caller's bearer token and maps error payloads to
// domain.RemoteError.
package backend

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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/pkg/auth"
	"github.com/samirrijal/parkit/internal/pkg/logging"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
	"github.com/samirrijal/parkit/internal/pkg/telemetry"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// Client talks to the Parkit backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	ctx, span := telemetry.Tracer().Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("http.route", path)),
	)
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := auth.Token(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		status := "error"
		if errors.Is(err, context.Canceled) {
			status = "cancelled"
		}
		metrics.BackendRequests.WithLabelValues(op, status).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	metrics.BackendRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := decodeError(resp)
		span.SetStatus(codes.Error, rerr.Error())
		logging.FromContext(ctx).Debug("backend request failed", "op", op, "status", resp.StatusCode, "error", rerr.Message)
		return rerr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// Ping reports whether the backend answers HTTP at all. Any status below 500
// counts as reachable, since the backend exposes no dedicated health route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("ping: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues("ping", "error").Inc()
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()
	metrics.BackendRequests.WithLabelValues("ping", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode >= 500 {
		return &domain.RemoteError{Status: resp.StatusCode}
	}
	return nil
}

// decodeError reads a `{error: string}` payload; other bodies keep only the
// status.
func decodeError(resp *http.Response) *domain.RemoteError {
	rerr := &domain.RemoteError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return rerr
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		rerr.Message = payload.Error
		if rerr.Message == "" {
			rerr.Message = payload.Message
		}
	}
	return rerr
}

// decodeList accepts either a bare JSON array or an object holding the
// array under key.
func decodeList(raw json.RawMessage, key string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &items)
		return items, err
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	inner, ok := env[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, err
	}
	return items, nil
}
