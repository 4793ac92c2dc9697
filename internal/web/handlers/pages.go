package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/kozaktomas/securebase/internal/constants"
	"github.com/kozaktomas/securebase/internal/content"
	"github.com/kozaktomas/securebase/internal/feedback"
	"github.com/kozaktomas/securebase/internal/web/middleware"
	"github.com/kozaktomas/securebase/internal/web/templates"
	"go.uber.org/zap"
)

// Page template names.
const (
	PageHome          = "home"
	PageAboutPlatform = "about-platform"
	PageAboutTeam     = "about-team"
	PageSupportFAQ    = "support-faq"
	PagePrivacyPolicy = "privacy-policy"
	PageLogin         = "login"
	PageSignup        = "signup"
	PageLoginFace     = "login-face"
	PageSignupFace    = "signup-face"
	PageFeedback      = "feedback"
	PageNotFound      = "not-found"
)

// NavItem is a navigation bar link
type NavItem struct {
	Label string
	Href  string
}

var navItems = []NavItem{
	{Label: "Home", Href: "/"},
	{Label: "Platform", Href: "/about-platform"},
	{Label: "Team", Href: "/about-team"},
	{Label: "Support", Href: "/support-faq"},
	{Label: "Feedback", Href: "/feedback"},
}

// PageData is passed to every page template
type PageData struct {
	Site           *content.Site
	Nav            []NavItem
	Path           string
	Year           int
	Authenticated  bool
	Feedback       *feedback.FormState
	FaceLibraryURL string
	FaceModelsURL  string
}

// PagesHandler renders the server-side pages
type PagesHandler struct {
	pages          templates.Pages
	site           *content.Site
	feedback       *feedback.Service
	sessionManager *middleware.SessionManager
	logger         *zap.Logger
}

// NewPagesHandler creates a new pages handler
func NewPagesHandler(
	pages templates.Pages,
	site *content.Site,
	fb *feedback.Service,
	sm *middleware.SessionManager,
	logger *zap.Logger,
) *PagesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PagesHandler{
		pages:          pages,
		site:           site,
		feedback:       fb,
		sessionManager: sm,
		logger:         logger,
	}
}

func (h *PagesHandler) pageData(r *http.Request) PageData {
	return PageData{
		Site:           h.site,
		Nav:            navItems,
		Path:           r.URL.Path,
		Year:           time.Now().Year(),
		Authenticated:  h.sessionManager != nil && h.sessionManager.GetSessionFromRequest(r) != nil,
		FaceLibraryURL: constants.FaceLibraryURL,
		FaceModelsURL:  constants.FaceModelsURL,
	}
}

// render buffers the page so a template error never leaves a half-written response.
func (h *PagesHandler) render(w http.ResponseWriter, status int, name string, data PageData) {
	var buf bytes.Buffer
	if err := h.pages.Render(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Page returns a handler that renders a static page
func (h *PagesHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, http.StatusOK, name, h.pageData(r))
	}
}

// FeedbackForm renders an empty feedback form
func (h *PagesHandler) FeedbackForm(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(r)
	data.Feedback = &feedback.FormState{Issues: []string{}}
	h.render(w, http.StatusOK, PageFeedback, data)
}

// SubmitFeedback handles the form-encoded feedback form post
func (h *PagesHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxFormBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	in := feedback.Input{
		Email:        r.PostForm.Get("email"),
		FeedbackType: r.PostForm.Get("feedbackType"),
		Message:      r.PostForm.Get("message"),
	}
	state, outcome := h.feedback.Submit(r.Context(), in)

	data := h.pageData(r)
	data.Feedback = &state
	status := http.StatusOK
	switch outcome {
	case feedback.Invalid:
		status = http.StatusBadRequest
	case feedback.StoreFailed:
		status = http.StatusInternalServerError
	}
	h.render(w, status, PageFeedback, data)
}

// NotFound renders the 404 page for unknown paths
func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, PageNotFound, h.pageData(r))
}
