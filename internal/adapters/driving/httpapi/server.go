// Package httpapi exposes the extraction pipeline over HTTP/JSON.
//
// The surface is deliberately small: trigger and inspect extraction
// tasks, fetch extracted content, run searches, and poll pipeline
// status. All responses are JSON; errors use a {"error": "..."} body.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/core/ports/driving"
	"github.com/parchment-labs/extractd/internal/logger"
)

// Server serves the HTTP API. Start binds the listener and serves in a
// background goroutine; Stop drains in-flight requests.
type Server struct {
	addr     string
	server   *http.Server
	listener net.Listener

	extraction driving.ExtractionService
	search     driving.SearchService
	status     driving.StatusReporter
	extractor  driven.Extractor
}

// NewServer creates the API server. The extractor is optional and only
// used by the health endpoint; pass nil to report it as unknown.
func NewServer(
	addr string,
	extraction driving.ExtractionService,
	search driving.SearchService,
	status driving.StatusReporter,
	extractor driven.Extractor,
) *Server {
	s := &Server{
		addr:       addr,
		extraction: extraction,
		search:     search,
		status:     status,
		extractor:  extractor,
	}

	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes builds the request multiplexer.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /content/extract", s.handleExtract)
	mux.HandleFunc("GET /content/extracted/{file_id}", s.handleGetContent)
	mux.HandleFunc("DELETE /content/extracted/{file_id}", s.handleDeleteContent)
	mux.HandleFunc("GET /content/tasks/{task_id}", s.handleGetTask)
	mux.HandleFunc("GET /content/tasks", s.handleListTasks)
	mux.HandleFunc("POST /content/search", s.handleSearchPost)
	mux.HandleFunc("GET /content/search", s.handleSearchGet)
	mux.HandleFunc("GET /content/processing-status", s.handleProcessingStatus)
	mux.HandleFunc("POST /content/retry/{file_id}", s.handleRetry)
	mux.HandleFunc("GET /content/monitoring/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

// Start binds the listener and begins serving. If the configured
// address has port 0 a random port is chosen; Addr reports it.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	logger.Info("HTTP API listening on %s", listener.Addr())
	return nil
}

// Addr returns the bound listen address. Empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
