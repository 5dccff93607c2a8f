package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/benvon/task-analyzer/internal/request"
	"github.com/benvon/task-analyzer/internal/settings"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const defaultFrontendOrigin = "http://localhost:3000"

// CORSReloader wraps rs/cors and rebuilds it whenever the settings store reloads.
type CORSReloader struct {
	store    *settings.Store
	fallback []string
	log      *zap.Logger

	mu      sync.RWMutex
	next    http.Handler
	current http.Handler
}

// NewCORSReloader creates a CORS middleware driven by the settings file.
// frontendURL (comma separated) is used when the file lists no origins.
func NewCORSReloader(store *settings.Store, frontendURL string, log *zap.Logger) *CORSReloader {
	fallback := SplitOrigins(frontendURL)
	if len(fallback) == 0 {
		fallback = []string{defaultFrontendOrigin}
	}
	return &CORSReloader{store: store, fallback: fallback, log: log}
}

// SplitOrigins parses a comma separated origin list, dropping blanks and duplicates.
func SplitOrigins(list string) []string {
	var origins []string
	seen := make(map[string]struct{})
	for _, o := range strings.Split(list, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		origins = append(origins, o)
	}
	return origins
}

// Middleware returns a middleware that wraps next with CORS and subscribes to reloads.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.mu.Lock()
		r.next = next
		r.mu.Unlock()
		r.apply(r.store.Snapshot())
		r.store.Subscribe(r.apply)
		return r
	}
}

func (r *CORSReloader) apply(snap *settings.Snapshot) {
	origins := r.fallback
	allowCreds := true
	maxAge := settings.DefaultCORSMaxAge
	if snap != nil {
		if len(snap.Settings.CORS.AllowedOrigins) > 0 {
			origins = snap.Settings.CORS.AllowedOrigins
			allowCreds = snap.Settings.CORS.AllowCredentials
		}
		if snap.Settings.CORS.MaxAge > 0 {
			maxAge = snap.Settings.CORS.MaxAge
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", request.RequestIDHeader},
		ExposedHeaders: []string{
			request.RequestIDHeader, "Content-Disposition",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		},
	})

	r.mu.Lock()
	if r.next != nil {
		r.current = c.Handler(r.next)
	}
	r.mu.Unlock()

	if r.log != nil {
		r.log.Info("cors_config_applied",
			zap.Strings("allowed_origins", origins),
			zap.Bool("allow_credentials", allowCreds),
			zap.Int("max_age", maxAge),
		)
	}
}

// ServeHTTP implements http.Handler.
func (r *CORSReloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	h := r.current
	if h == nil {
		h = r.next
	}
	r.mu.RUnlock()
	if h != nil {
		h.ServeHTTP(w, req)
	}
}
