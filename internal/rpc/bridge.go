// Package rpc carries shell calls to the router as JSON lines.
package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/yukikurage/tasktide/internal/errors"
)

const maxLineSize = 16 << 20

// Request is one call from the shell.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Token  string          `json:"token,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers one Request: either Result, or Error with Code.
type Response struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Bridge dispatches calls to an http.Handler in-process. No socket is
// opened; each call becomes a POST /<method> served into memory.
type Bridge struct {
	handler http.Handler
}

// NewBridge creates a Bridge over handler.
func NewBridge(handler http.Handler) *Bridge {
	return &Bridge{handler: handler}
}

// Call dispatches one request and returns its response.
func (b *Bridge) Call(ctx context.Context, req Request) Response {
	if !validMethod(req.Method) {
		return errorResponse(req.ID, apierrors.UnknownMethod(req.Method))
	}

	params := bytes.TrimSpace(req.Params)
	if len(params) == 0 || bytes.Equal(params, []byte("null")) {
		params = []byte("{}")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "/"+req.Method, bytes.NewReader(params))
	if err != nil {
		slog.Error("failed to build call", slog.String("method", req.Method), slog.Any("error", err))
		return errorResponse(req.ID, apierrors.InternalError(""))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	w := newResponseWriter()
	b.handler.ServeHTTP(w, httpReq)

	body := bytes.TrimSpace(w.body.Bytes())
	if w.status >= 200 && w.status < 300 {
		if len(body) == 0 {
			body = []byte("null")
		}
		return Response{ID: req.ID, Result: body}
	}

	var failure struct {
		Error   string          `json:"error"`
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(body, &failure); err != nil || failure.Code == "" {
		slog.Error("call failed without an error payload",
			slog.String("method", req.Method),
			slog.Int("status", w.status),
		)
		return errorResponse(req.ID, apierrors.InternalError(""))
	}
	return Response{ID: req.ID, Error: failure.Error, Code: failure.Code, Details: failure.Details}
}

// Serve reads one JSON request per line from r and writes one JSON
// response per line to w, until r is exhausted or ctx is cancelled.
// Blank lines are skipped.
func (b *Bridge) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp Response
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			slog.Warn("malformed request line", slog.Any("error", err))
			resp = errorResponse(nil, apierrors.ValidationFailure("Malformed request: "+err.Error()))
		} else {
			resp = b.Call(ctx, req)
		}

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	return scanner.Err()
}

func errorResponse(id json.RawMessage, apiErr *apierrors.APIError) Response {
	resp := Response{ID: id, Error: apiErr.Message, Code: apiErr.Code}
	if apiErr.Details != nil {
		if details, err := json.Marshal(apiErr.Details); err == nil {
			resp.Details = details
		}
	}
	return resp
}

// validMethod keeps method names to lower-case words joined by '_', so a
// call can never address anything but a registered route.
func validMethod(method string) bool {
	if method == "" {
		return false
	}
	for _, r := range method {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}

// responseWriter buffers one routed response in memory.
type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: make(http.Header)}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}
