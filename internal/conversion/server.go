package conversion

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultMaxUploadSize bounds uploaded PDFs
const DefaultMaxUploadSize = int64(50 << 20)

// Server handles HTTP requests for conversions
type Server struct {
	service       *Service
	maxUploadSize int64
	mux           *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, maxUploadSize int64) *Server {
	return NewServerWithMux(service, maxUploadSize, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, maxUploadSize int64, mux *http.ServeMux) *Server {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	s := &Server{
		service:       service,
		maxUploadSize: maxUploadSize,
		mux:           mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// registerRoutes registers all routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /convert", s.handleConvert)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// History API (most specific paths first)
	s.mux.HandleFunc("GET /api/conversions/{id}/file", s.handleGetConversionFile)
	s.mux.HandleFunc("GET /api/conversions/{id}", s.handleGetConversion)
	s.mux.HandleFunc("DELETE /api/conversions/{id}", s.handleDeleteConversion)
	s.mux.HandleFunc("GET /api/conversions", s.handleListConversions)

	// Upload page (register last as it's the catch-all)
	s.mux.HandleFunc("GET /index.html", s.handleIndex)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.corsMiddleware(s.mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       time.Minute,
	}
	return srv.ListenAndServe()
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
