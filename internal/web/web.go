package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"steinbockcal/internal/feed"
	appLog "steinbockcal/internal/log"
	"steinbockcal/internal/monitor"
)

const (
	contentTypeCalendar = "text/calendar; charset=utf-8"
	contentTypeText     = "text/plain; charset=utf-8"
)

// FeedBuilder produces the serialized calendar for one request.
type FeedBuilder interface {
	Build(ctx context.Context) (string, error)
}

// HealthReporter supplies the outcome of the latest background feed check.
type HealthReporter interface {
	Last() (monitor.Result, bool)
}

// Server exposes the calendar feed over HTTP.
type Server struct {
	feed   FeedBuilder
	health HealthReporter
	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithHealth reports h's latest check on /health. A nil h is ignored.
func WithHealth(h HealthReporter) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// NewServer constructs a new Server.
func NewServer(f FeedBuilder, opts ...Option) *Server {
	s := &Server{
		feed:   f,
		router: mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartServer serves the feed on listen until ctx is cancelled, then shuts
// down gracefully.
func StartServer(ctx context.Context, listen string, f FeedBuilder, opts ...Option) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           NewServer(f, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", s.handleCalendar).Methods(http.MethodGet, http.MethodHead)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// handleHealth always answers 200 while the process is serving. When a
// background checker is attached, its latest result follows on a second
// line.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString("OK")
	if s.health != nil {
		b.WriteString("\n")
		b.WriteString(describeCheck(s.health.Last()))
	}

	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

func describeCheck(res monitor.Result, ok bool) string {
	if !ok {
		return "last_check=none"
	}
	line := fmt.Sprintf("last_check=%s events=%d elapsed=%s",
		res.At.UTC().Format(time.RFC3339), res.Events, res.Duration.Round(time.Millisecond))
	if res.Err != nil {
		line += " error=" + res.Err.Error()
	}
	return line
}

// handleCalendar builds the feed for this request. The request context is
// handed down so a disconnecting client cancels the upstream fetch.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	text, err := s.feed.Build(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			appLog.Info("calendar request cancelled by client", "remote", r.RemoteAddr)
			return
		}
		status, kind := statusFor(err)
		appLog.Error("calendar build failed", err, "kind", kind, "status", status, "elapsed", time.Since(start).Round(time.Millisecond))
		writeError(w, status, err)
		return
	}

	appLog.Info("calendar served", "bytes", len(text), "elapsed", time.Since(start).Round(time.Millisecond))
	w.Header().Set("Content-Type", contentTypeCalendar)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(text)); err != nil {
		appLog.Error("failed to write calendar response", err)
	}
}

// statusRule maps one error kind onto a response status.
type statusRule struct {
	kind   string
	match  func(error) bool
	status int
}

func is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// statusRules is checked in order; the first match wins.
var statusRules = []statusRule{
	{"timeout", is[*feed.TimeoutError], http.StatusGatewayTimeout},
	{"network", is[*feed.NetworkError], http.StatusBadGateway},
	{"parse", is[*feed.ParseError], http.StatusInternalServerError},
	{"row", is[*feed.RowError], http.StatusInternalServerError},
	{"serialization", is[*feed.SerializationError], http.StatusInternalServerError},
}

func statusFor(err error) (int, string) {
	for _, rule := range statusRules {
		if rule.match(err) {
			return rule.status, rule.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", contentTypeText)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("Error: " + err.Error()))
}
