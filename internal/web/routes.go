package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/web/handlers"
	"github.com/kozaktomas/securebase/internal/web/middleware"
	"github.com/kozaktomas/securebase/internal/web/static"
)

func (s *Server) setupRoutes() {
	fb := s.feedbackService()

	// Create handlers
	authHandler := handlers.NewAuthHandler(
		s.config,
		s.sessionManager,
		s.stores.Users,
		s.stores.Faces,
		auth.NewHasher(s.config.Auth.BcryptCost),
		s.tokens,
		s.logger.Named("auth"),
	)
	feedbackHandler := handlers.NewFeedbackHandler(fb)
	contentHandler := handlers.NewContentHandler(s.site)
	pagesHandler := handlers.NewPagesHandler(s.pages, s.site, fb, s.sessionManager, s.logger.Named("pages"))

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/content", contentHandler.Get)
		r.Post("/feedback", feedbackHandler.Submit)

		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)
		r.Post("/auth/face/signup", authHandler.FaceSignup)
		r.Post("/auth/face/login", authHandler.FaceLogin)

		// Face management requires a session or a token
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager, s.tokens))

			r.Put("/users/{id}/face", authHandler.UpdateFace)
			r.Delete("/users/{id}/face", authHandler.DeleteFace)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":"not found"}`+"\n")
		})
	})

	// Pages
	s.router.Get("/", pagesHandler.Page(handlers.PageHome))
	s.router.Get("/about-platform", pagesHandler.Page(handlers.PageAboutPlatform))
	s.router.Get("/about-team", pagesHandler.Page(handlers.PageAboutTeam))
	s.router.Get("/support-faq", pagesHandler.Page(handlers.PageSupportFAQ))
	s.router.Get("/privacy-policy", pagesHandler.Page(handlers.PagePrivacyPolicy))
	s.router.Get("/login", pagesHandler.Page(handlers.PageLogin))
	s.router.Get("/signup", pagesHandler.Page(handlers.PageSignup))
	s.router.Get("/login/face", pagesHandler.Page(handlers.PageLoginFace))
	s.router.Get("/signup/face", pagesHandler.Page(handlers.PageSignupFace))
	s.router.Get("/feedback", pagesHandler.FeedbackForm)
	s.router.Post("/feedback", pagesHandler.SubmitFeedback)

	// Stylesheet and client scripts
	s.router.Get("/assets/*", s.serveAsset(pagesHandler.NotFound))

	s.router.NotFound(pagesHandler.NotFound)
}

// serveAsset serves a file from the embedded assets directory.
func (s *Server) serveAsset(notFound http.HandlerFunc) http.HandlerFunc {
	fs := static.GetFileSystem()
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/assets/")
		if !static.HasAsset(name) {
			notFound(w, r)
			return
		}

		f, err := fs.Open("/" + name)
		if err != nil {
			notFound(w, r)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", static.ContentType(name))
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		io.Copy(w, f)
	}
}
