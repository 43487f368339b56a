package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"spotload/internal/logger"
	"spotload/internal/pipeline"
)

// Runner is the part of the pipeline the server drives.
type Runner interface {
	RunWithSummary(ctx context.Context, link, baseFolder, quality string) (pipeline.Result, error)
	RunSearch(ctx context.Context, query, baseFolder, quality string) (pipeline.Result, error)
}

// DefaultHost keeps the API on the loopback interface unless told otherwise.
const DefaultHost = "127.0.0.1"

type ServerConfig struct {
	Host string
	Port int
	// BaseDir confines request folders; relative folders are joined to it.
	BaseDir string
	// Quality is used when a request names none.
	Quality string
}

// Server exposes one pipeline over HTTP. Runs are serialized: a download
// request that arrives while another is in flight is rejected.
type Server struct {
	runner  Runner
	tracker *Tracker
	cfg     ServerConfig
	server  *http.Server

	runMu sync.Mutex
}

func NewServer(runner Runner, tracker *Tracker, cfg ServerConfig) *Server {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BaseDir != "" {
		cfg.BaseDir = filepath.Clean(cfg.BaseDir)
	}
	return &Server{
		runner:  runner,
		tracker: tracker,
		cfg:     cfg,
	}
}

// Handler serves the API. Only the read-only status endpoint answers
// cross-origin requests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.corsMiddleware(s.handleStatus))
	mux.HandleFunc("/api/download", s.handleDownload)
	return s.loggingMiddleware(mux)
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting web server on %s", s.Addr())
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, NewErrorResponse(message))
}
