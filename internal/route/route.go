// Package route maps request paths to handlers.
package route

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

const (
	ContentHTML = "text/html"
	ContentText = "text/plain"
	ContentJSON = "application/json"
)

var (
	// ErrDuplicateRoute is returned when a path is registered twice.
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrNilHandler     = errors.New("nil handler")
)

type Request struct {
	// ID correlates the request across log lines and the X-Request-ID header.
	ID     string
	Method string
	Path   string
	Query  url.Values
}

type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Handler turns a request into a response. Handlers run one at a time.
type Handler func(Request) Response

// HTML returns a 200 response with an HTML body.
func HTML(body []byte) Response {
	return Response{Status: http.StatusOK, ContentType: ContentHTML, Body: body}
}

// Text returns a plain-text response.
func Text(status int, body string) Response {
	return Response{Status: status, ContentType: ContentText, Body: []byte(body)}
}

// NotFound is the response for any unregistered path.
func NotFound() Response {
	return Text(http.StatusNotFound, "Not found")
}

// Dispatcher holds the route table. Register every route at startup, before
// the first Dispatch; the table is not guarded for concurrent writes.
type Dispatcher struct {
	routes map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[string]Handler)}
}

func (d *Dispatcher) Register(path string, h Handler) error {
	if h == nil {
		return fmt.Errorf("register %q: %w", path, ErrNilHandler)
	}
	if _, ok := d.routes[path]; ok {
		return fmt.Errorf("register %q: %w", path, ErrDuplicateRoute)
	}
	d.routes[path] = h
	return nil
}

// Dispatch runs the handler registered for req.Path, or returns NotFound.
// The method is not part of the match.
func (d *Dispatcher) Dispatch(req Request) Response {
	h, ok := d.routes[req.Path]
	if !ok {
		return NotFound()
	}
	return h(req)
}

// Paths returns the registered paths in sorted order.
func (d *Dispatcher) Paths() []string {
	out := make([]string, 0, len(d.routes))
	for p := range d.routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
