// Package webserver provides the server-rendered HTMX frontend
package webserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/order"
	"github.com/JosephChataignon/hAIckers-team/internal/domain/session"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/http/middleware"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/monitoring"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/security"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
	"github.com/JosephChataignon/hAIckers-team/pkg/healthcheck"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// DefaultTickInterval is how often the order websocket pushes a snapshot
const DefaultTickInterval = time.Second

// Dependencies are the collaborators the web server drives
type Dependencies struct {
	Credentials inbound.CredentialService
	Advisor     inbound.MealAdvisor
	Images      inbound.ImageLookup
	Simulator   *order.Simulator
	Sessions    *SessionStore
	Validator   *security.ValidationService
	RateLimiter *middleware.RateLimiter
	Health      *healthcheck.HealthCheck
	// Metrics and Tracing may be nil
	Metrics *monitoring.MetricsCollector
	Tracing *monitoring.TracingProvider
}

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config       *config.Config
	logger       *zap.Logger
	deps         Dependencies
	server       *http.Server
	router       chi.Router
	templates    *templateSet
	upgrader     websocket.Upgrader
	tickInterval time.Duration
}

// NewWebServer creates a new web frontend server instance
func NewWebServer(cfg *config.Config, log *zap.Logger, deps Dependencies) (*WebServer, error) {
	log = log.Named("webserver")

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	log.Debug("Templates parsed", zap.Strings("views", templates.names()))

	s := &WebServer{
		config:       cfg,
		logger:       log,
		deps:         deps,
		templates:    templates,
		tickInterval: DefaultTickInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s, nil
}

// Handler returns the root handler
func (s *WebServer) Handler() http.Handler {
	return s.router
}

func (s *WebServer) setupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if s.deps.Tracing != nil {
		r.Use(s.deps.Tracing.HTTPMiddleware)
	}
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.HTTPMiddleware)
	}
	if s.config.Server.EnableCompression {
		r.Use(newCompressor().Handler)
	}
	r.Use(middleware.Security())

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at build time
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	if s.deps.Health != nil {
		r.Get("/health", s.deps.Health.Handler())
		r.Get("/ready", s.deps.Health.ReadinessHandler())
		r.Get("/live", s.deps.Health.LivenessHandler())
	}
	if s.deps.Metrics != nil && s.config.Monitoring.MetricsEnabled {
		r.Handle(s.config.Monitoring.MetricsPath, s.deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.deps.RateLimiter != nil {
			r.Use(s.deps.RateLimiter.Middleware)
		}
		r.Use(s.sessionMiddleware)
		r.Use(s.csrfMiddleware)

		r.Get("/", s.handleIndex)
		r.Post("/navigate", s.handleNavigate)
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/meal-preparation", s.handleMealPreparation)
			r.Post("/recipes/choose", s.handleChooseRecipe)
			r.Post("/order", s.handleOrder)
			r.Post("/order/store", s.handleGoToStore)
			r.Get("/order/progress", s.handleOrderProgress)
			r.Get("/order/ws", s.handleOrderSocket)
		})
	})

	return r
}

// newCompressor registers brotli next to chi's gzip and deflate encoders
func newCompressor() *chimw.Compressor {
	c := chimw.NewCompressor(5,
		"text/html",
		"text/css",
		"text/plain",
		"application/javascript",
		"application/json",
		"image/svg+xml",
	)
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// Start starts the web frontend HTTP server and blocks until it stops
func (s *WebServer) Start() error {
	s.logger.Info("Starting web server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the web server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *WebServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.Sessions.Load(r)
		if err != nil {
			s.logger.Error("Failed to create session", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

// csrfMiddleware checks the per-session token on every POST. A mismatch,
// usually an expired session, sends the visitor back to the start page.
func (s *WebServer) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		sess := sessionFrom(r.Context())
		r.Body = http.MaxBytesReader(w, r.Body, security.MaxFormBytes)
		token := r.Header.Get("X-CSRF-Token")
		if token == "" {
			token = r.PostFormValue("csrf_token")
		}

		if !sess.ValidCSRF(token) {
			s.logger.Warn("Invalid CSRF token",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			sess.State.AddFlash(session.FlashWarning, "Your session expired. Please try again.", "")
			s.redirectHome(w, r, sess)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth applies the view guard to actions: an anonymous session is
// reset and sent to onboarding.
func (s *WebServer) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if sess.State.Authenticated && sess.State.Profile != nil {
			next.ServeHTTP(w, r)
			return
		}

		sess.State.Logout()

		switch {
		case websocket.IsWebSocketUpgrade(r):
			http.Error(w, "Authentication required", http.StatusUnauthorized)
		case r.Header.Get("HX-Request") == "true":
			s.save(w, r, sess)
			w.Header().Set("HX-Redirect", "/")
			w.WriteHeader(http.StatusUnauthorized)
		default:
			s.redirectHome(w, r, sess)
		}
	})
}

// save persists the session, logging instead of failing the request
func (s *WebServer) save(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := s.deps.Sessions.Save(r.Context(), w, sess); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err))
	}
}

// redirectHome saves the session and issues the post/redirect/get redirect
func (s *WebServer) redirectHome(w http.ResponseWriter, r *http.Request, sess *Session) {
	s.save(w, r, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
