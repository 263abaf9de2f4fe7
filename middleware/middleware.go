// Package middleware maps HTTP requests onto pipeline handlers. It is
// framework agnostic; the echo and gin subpackages mount a Table on their
// routers.
package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/reoring/plasm"
	"github.com/reoring/plasm/i18n"
)

// ContentType is the media type of every response body.
const ContentType = "application/json; charset=utf-8"

// RawHandler answers a request that does not run a pipeline, such as health
// checks or schema export.
type RawHandler func(ctx context.Context, params map[string]string) (status int, payload any)

// Route binds a method and path to a pipeline Handler or a RawHandler.
// Paths use ":name" segments for parameters.
type Route struct {
	Method  string
	Path    string
	Handler plasm.Handler
	Raw     RawHandler
}

// Response is an encoded reply ready to be written by an adapter.
type Response struct {
	Status int
	Body   []byte
}

// Table is an ordered route table.
type Table struct {
	routes    []Route
	log       *slog.Logger
	allowDups bool
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for server-side failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.log = l
		}
	}
}

// AllowDuplicateKeys accepts request bodies with repeated object keys; the
// last occurrence wins. By default such bodies are rejected with 400.
func AllowDuplicateKeys() Option {
	return func(t *Table) { t.allowDups = true }
}

// NewTable returns an empty route table.
func NewTable(opts ...Option) *Table {
	t := &Table{log: slog.Default()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Add registers a pipeline handler and returns t for chaining.
func (t *Table) Add(method, path string, h plasm.Handler) *Table {
	t.routes = append(t.routes, Route{Method: method, Path: path, Handler: h})
	return t
}

// AddRaw registers a RawHandler and returns t for chaining.
func (t *Table) AddRaw(method, path string, h RawHandler) *Table {
	t.routes = append(t.routes, Route{Method: method, Path: path, Raw: h})
	return t
}

// Routes returns the registered routes in registration order.
func (t *Table) Routes() []Route { return append([]Route(nil), t.routes...) }

// Serve runs one request through r. The JSON body is decoded and path
// parameters are merged into it before the handler sees it.
func (t *Table) Serve(ctx context.Context, r Route, body io.Reader, params map[string]string) Response {
	if r.Raw != nil {
		status, payload := r.Raw(ctx, params)
		return t.encode(ctx, status, payload)
	}
	if body == nil {
		body = http.NoBody
	}
	decode := plasm.DecodeJSONStrict
	if t.allowDups {
		decode = plasm.DecodeJSON
	}
	in, err := decode(body)
	if err != nil {
		return t.encode(ctx, http.StatusBadRequest, ErrorPayload(err.Error()))
	}
	for k, v := range params {
		in[k] = ParamValue(v)
	}
	res, err := r.Handler(ctx, in)
	if err != nil {
		status := StatusFor(res, err)
		if status == http.StatusNotFound {
			return t.encode(ctx, status, ErrorPayload(i18n.T(plasm.CodeNotFound, nil)))
		}
		t.log.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method), slog.String("path", r.Path), slog.Any("error", err))
		var se *plasm.StorageError
		if errors.As(err, &se) {
			return t.encode(ctx, status, ErrorPayload(i18n.T(plasm.CodeStorage, nil)))
		}
		return t.encode(ctx, status, ErrorPayload(err.Error()))
	}
	return t.encode(ctx, StatusFor(res, nil), res.Payload())
}

// NotFound is the reply for requests matching no route.
func (t *Table) NotFound(ctx context.Context) Response {
	return t.encode(ctx, http.StatusNotFound, map[string]string{"404": "not found"})
}

func (t *Table) encode(ctx context.Context, status int, payload any) Response {
	b, err := plasm.EncodeJSON(payload)
	if err != nil {
		t.log.ErrorContext(ctx, "encode response", slog.Any("error", err))
		return Response{Status: http.StatusInternalServerError, Body: []byte(`{"error":"encode response"}`)}
	}
	return Response{Status: status, Body: b}
}

// StatusFor maps a handler outcome to an HTTP status: 200 for a valid entity,
// 400 for validation errors, 404 for plasm.ErrNotFound and 500 otherwise.
func StatusFor(res plasm.Result, err error) int {
	switch {
	case errors.Is(err, plasm.ErrNotFound):
		return http.StatusNotFound
	case err != nil:
		return http.StatusInternalServerError
	case res.Failed():
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

// ParamValue converts a path parameter: integral text becomes int64, anything
// else stays a string.
func ParamValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

// ErrorPayload shapes a non-validation failure for JSON responses.
func ErrorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}
