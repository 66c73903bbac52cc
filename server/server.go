// Package server exposes ingestion, search and library browsing over a
// JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/intake"
	"github.com/Mohit888790/clipbrain/ratelimit"
	"github.com/Mohit888790/clipbrain/search"
	"github.com/Mohit888790/clipbrain/storage"
)

const (
	// DefaultPlaybackTTL is the lifetime of signed play URLs.
	DefaultPlaybackTTL = 15 * time.Minute

	// DefaultIngestLimit is the per-client ingest budget per window.
	DefaultIngestLimit = 10

	// DefaultSearchLimit is the per-client search budget per window.
	DefaultSearchLimit = 100

	// ItemPreviewChunks is how many chunks an item response includes.
	ItemPreviewChunks = 10

	maxBodyBytes = 1 << 20
)

var (
	// ErrRepositoriesRequired is returned when repositories are not provided.
	ErrRepositoriesRequired = errors.New("repositories required")

	// ErrIntakeRequired is returned when no submitter is provided.
	ErrIntakeRequired = errors.New("intake required")

	// ErrSearcherRequired is returned when no searcher is provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrMediaStoreRequired is returned when no media store is provided.
	ErrMediaStoreRequired = errors.New("media store required")
)

// Submitter accepts new video URLs. Implemented by intake.Service.
type Submitter interface {
	Submit(ctx context.Context, rawURL string) (*intake.Receipt, error)
}

// Searcher answers search queries. Implemented by search.Searcher.
type Searcher interface {
	Search(ctx context.Context, q search.Query) ([]*core.SearchResult, error)
}

// MediaStore signs, verifies and opens stored media. Implemented by
// blob.Store.
type MediaStore interface {
	SignedURL(objectPath string, ttl time.Duration) (string, error)
	Verify(objectPath, expires, sig string) error
	Open(objectPath string) (*os.File, error)
}

// Server holds the HTTP handlers.
type Server struct {
	repos       *storage.Repositories
	intake      Submitter
	searcher    Searcher
	media       MediaStore
	limiter     *ratelimit.Limiter
	ingestLimit int
	searchLimit int
	playTTL     time.Duration
	validate    *validator.Validate
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimits sets the limiter and the per-client ingest and search
// budgets. A budget of zero disables limiting for that route.
func WithRateLimits(limiter *ratelimit.Limiter, ingest, searches int) Option {
	return func(s *Server) {
		s.limiter = limiter
		s.ingestLimit = ingest
		s.searchLimit = searches
	}
}

// WithPlaybackTTL sets the lifetime of signed play URLs.
func WithPlaybackTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.playTTL = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a Server.
func New(repos *storage.Repositories, submitter Submitter, searcher Searcher, media MediaStore, opts ...Option) (*Server, error) {
	if repos == nil {
		return nil, ErrRepositoriesRequired
	}
	if submitter == nil {
		return nil, ErrIntakeRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if media == nil {
		return nil, ErrMediaStoreRequired
	}
	s := &Server{
		repos:       repos,
		intake:      submitter,
		searcher:    searcher,
		media:       media,
		ingestLimit: DefaultIngestLimit,
		searchLimit: DefaultSearchLimit,
		playTTL:     DefaultPlaybackTTL,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.WithLogger(s.logger))
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("POST /api/ingest", s.limiter.Middleware("ingest", s.ingestLimit, http.HandlerFunc(s.handleIngest)))
	mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)
	mux.HandleFunc("GET /api/items/{id}", s.handleItem)
	mux.HandleFunc("PATCH /api/items/{id}/tags", s.handleTags)
	mux.Handle("POST /api/search", s.limiter.Middleware("search", s.searchLimit, http.HandlerFunc(s.handleSearch)))
	mux.HandleFunc("GET /api/jump", s.handleJump)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /blob/{path...}", s.handleBlob)
	return withCORS(s.withLogging(mux))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &requestError{msg: "invalid json: " + err.Error()}
	}
	if err := s.validate.Struct(v); err != nil {
		return &requestError{msg: err.Error()}
	}
	return nil
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    errorCode(code),
			"message": err.Error(),
		},
	})
}

// writeInternal logs err and answers with a generic 500.
func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeErr(w, http.StatusInternalServerError, errors.New("internal server error"))
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		if status >= 500 {
			return "internal"
		}
		return "request_failed"
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", s.now().Sub(start))
	})
}
