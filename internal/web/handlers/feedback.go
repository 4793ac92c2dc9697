package handlers

import (
	"net/http"

	"github.com/kozaktomas/securebase/internal/feedback"
)

// FeedbackHandler accepts feedback submissions over the JSON API
type FeedbackHandler struct {
	service *feedback.Service
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(service *feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// Submit validates and stores a feedback entry. The response body is the
// resulting form state in every case.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in feedback.Input
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	state, outcome := h.service.Submit(r.Context(), in)
	respondJSON(w, feedbackStatus(outcome), state)
}

func feedbackStatus(outcome feedback.Outcome) int {
	switch outcome {
	case feedback.Accepted:
		return http.StatusCreated
	case feedback.Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
