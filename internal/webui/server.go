// Package webui is the HTTP side of the panel. Every page request is parked
// in the poll queue and answered by the polling task; /ws streams state to
// browsers directly.
package webui

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/airheads/glider-panel/internal/poll"
	"github.com/airheads/glider-panel/internal/route"
)

// requestIDHeader carries the request ID back to the client. A client may
// supply its own.
const requestIDHeader = "X-Request-ID"

// NewRouter mounts the websocket feed and sends every other path through q.
func NewRouter(q *poll.Queue, hub *Hub) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", hub.ServeWS).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(queueHandler(q))
	return r
}

func queueHandler(q *poll.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		req := route.Request{
			ID:     id,
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
		}

		resp, err := q.Submit(r.Context(), req)
		if err != nil {
			if errors.Is(err, poll.ErrStopped) {
				http.Error(w, "shutting down", http.StatusServiceUnavailable)
				return
			}
			// the client went away; nobody to answer
			log.Printf("[HTTP] %s %s %s from %s abandoned: %v", id, r.Method, r.URL.Path, r.RemoteAddr, err)
			return
		}

		w.Header().Set("Content-Type", resp.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
		w.WriteHeader(resp.Status)
		if r.Method != http.MethodHead {
			if _, err := w.Write(resp.Body); err != nil {
				log.Printf("[HTTP] Writing response to %s: %v", r.RemoteAddr, err)
			}
		}
	}
}

// Server serves the router on a listener provided by the network bootstrap.
type Server struct {
	srv *http.Server
}

func NewServer(handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Serve blocks until the server is shut down. A clean shutdown returns nil.
func (s *Server) Serve(l net.Listener) error {
	log.Printf("[HTTP] Server started on %s", l.Addr())
	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
