package handlers

import (
	"net/http"

	"github.com/kozaktomas/securebase/internal/content"
)

// ContentHandler exposes the site content to API clients
type ContentHandler struct {
	site *content.Site
}

// NewContentHandler creates a new content handler
func NewContentHandler(site *content.Site) *ContentHandler {
	return &ContentHandler{site: site}
}

// Get returns pricing plans, guardians, team and FAQ
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.site)
}
