package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/config"
	"github.com/kozaktomas/securebase/internal/constants"
	"github.com/kozaktomas/securebase/internal/content"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/feedback"
	"github.com/kozaktomas/securebase/internal/web/middleware"
	"github.com/kozaktomas/securebase/internal/web/templates"
	"go.uber.org/zap"
)

// Stores are the persistence dependencies of the server
type Stores struct {
	Users    database.UserWriter
	Faces    database.FaceMatcher
	Feedback database.FeedbackWriter
	Sessions middleware.SessionRepository // optional, sessions stay in memory when nil
}

func (s Stores) validate() error {
	if s.Users == nil || s.Faces == nil || s.Feedback == nil {
		return errors.New("users, faces and feedback stores are required")
	}
	return nil
}

// Server represents the web server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
	tokens         *auth.TokenIssuer
	stores         Stores
	pages          templates.Pages
	site           *content.Site
	logger         *zap.Logger
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, stores Stores, logger *zap.Logger) (*Server, error) {
	if err := stores.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pages, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	site, err := content.Load()
	if err != nil {
		return nil, fmt.Errorf("loading site content: %w", err)
	}

	sessionManager := middleware.NewSessionManager(cfg.Web.SessionSecret, stores.Sessions)
	sessionManager.SetLogger(logger.Named("session"))
	sessionManager.SetSecureCookies(cfg.Web.SecureCookies)

	r := chi.NewRouter()
	s := &Server{
		config:         cfg,
		router:         r,
		sessionManager: sessionManager,
		tokens:         auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL),
		stores:         stores,
		pages:          pages,
		site:           site,
		logger:         logger,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(constants.RequestTimeout))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.Web.Addr(),
		Handler:           r,
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		ReadTimeout:       constants.RequestTimeout,
		WriteTimeout:      constants.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server and the session cleanup loop
func (s *Server) Start() error {
	s.sessionManager.StartCleanup(constants.SessionCleanupInterval)
	s.logger.Info("starting web server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")

	// Stop the session cleanup goroutine
	s.sessionManager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) feedbackService() *feedback.Service {
	return feedback.NewService(s.stores.Feedback, s.logger.Named("feedback"))
}
