// Package server is the thin HTTP front end binding request intake
// (C8) to the job queue (C7) and the streaming writer (C6). It is
// deliberately minimal: the transport is an external collaborator per
// spec, not part of the core this repository exists to implement.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/catgraph/catquery/internal/graph"
	"github.com/catgraph/catquery/internal/intake"
	"github.com/catgraph/catquery/internal/queue"
	"github.com/catgraph/catquery/internal/stream"
	"github.com/catgraph/catquery/pkg/errors"
	"github.com/catgraph/catquery/pkg/utils"
)

// Server exposes the query engine over plain HTTP. Every request is
// XHR-mode: one response body, written to incrementally as the worker
// produces frames, closed once the job reaches DONE. The duplex/socket
// mode described by spec §6 needs a websocket upgrade this repository
// does not provide; internal/stream.ChanChannel is ready for an
// external adapter to drive that mode without any change here.
type Server struct {
	store  *graph.Store
	q      *queue.Queue
	logger utils.Logger
	http   *http.Server
}

// New builds a Server listening on addr.
func New(addr string, store *graph.Store, q *queue.Queue, logger utils.Logger) *Server {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	s := &Server{store: store, q: q, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/status", s.handleStatus)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start runs the server's Accept loop. Blocks until Shutdown is called
// or a fatal listen error occurs.
func (s *Server) Start() error {
	s.logger.Info("catquery server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server. It does not stop the
// queue's worker; callers should call Queue.Stop separately once no
// more requests can arrive.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// urlValuesParams adapts url.Values to intake.Params.
type urlValuesParams struct {
	values map[string][]string
}

func (p urlValuesParams) Get(key string) (string, bool) {
	vs, ok := p.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed query parameters", http.StatusBadRequest)
		return
	}

	req, err := intake.Parse(s.store, urlValuesParams{values: r.Form})
	if err != nil {
		s.writeRejection(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	ch := stream.NewIOChannel(flushingWriter{w})
	writer := stream.NewWriter(ch)

	job, err := s.q.Submit(r.Context(), req.C1, req.C2, req.D1, req.D2, req.Offset, req.Size, req.Kind, writer)
	if err != nil {
		// The response is already 200 by this point (streaming mode),
		// so a late rejection is reported as a frame rather than a
		// status code change.
		_ = ch.WriteLine("ERROR queue is at capacity\n")
		return
	}

	<-job.Done()
}

func (s *Server) writeRejection(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	msg := err.Error()
	if appErr, ok := err.(*errors.AppError); ok {
		msg = appErr.Message
	}
	http.Error(w, msg, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.q.Stats()
	fmt.Fprintf(w, "entities %d\nqueue_head %d\nqueue_tail %d\n", s.store.N(), stats.Head, stats.Tail)
}

// flushingWriter adapts http.ResponseWriter to io.Writer while also
// flushing after every write, so IOChannel's frames reach the client
// as the worker produces them rather than buffering until the handler
// returns.
type flushingWriter struct {
	w http.ResponseWriter
}

func (f flushingWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
	return n, err
}

func (f flushingWriter) Flush() {
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
}
