// Package feedback validates and stores feedback form submissions.
package feedback

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/database"
	"go.uber.org/zap"
)

const (
	MinMessageLength = 10
	MaxMessageLength = 1000
)

// Form messages shown to the submitter.
const (
	MsgSuccess      = "Feedback submitted successfully! Thank you."
	MsgInvalid      = "Please correct the errors below."
	MsgStoreFailure = "Failed to submit feedback. Please try again later."

	msgInvalidEmail    = "Invalid email address."
	msgInvalidType     = "Please select a feedback type."
	msgMessageTooShort = "Message must be at least 10 characters long."
	msgMessageTooLong  = "Message must be at most 1000 characters."
)

// Input is the raw form submission.
type Input struct {
	Email        string `json:"email"`
	FeedbackType string `json:"feedbackType"`
	Message      string `json:"message"`
}

// Issue is a single validation problem keyed by the input field.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// FormState is what the form renders after a submission.
// On success Fields is empty so the form resets.
type FormState struct {
	Message string   `json:"message"`
	Error   string   `json:"error,omitempty"`
	Fields  Input    `json:"fields"`
	Issues  []string `json:"issues"`
}

// FieldError returns the first issue message for a field, or "".
func (s FormState) FieldError(path string) string {
	prefix := path + ": "
	for _, issue := range s.Issues {
		if msg, ok := strings.CutPrefix(issue, prefix); ok {
			return msg
		}
	}
	return ""
}

// Outcome classifies a submission result.
type Outcome int

const (
	Accepted Outcome = iota
	Invalid
	StoreFailed
)

// Validate returns every problem with in, in field order.
func Validate(in Input) []Issue {
	var issues []Issue
	if !auth.ValidEmail(auth.NormalizeEmail(in.Email)) {
		issues = append(issues, Issue{Path: "email", Message: msgInvalidEmail})
	}
	if !database.FeedbackType(in.FeedbackType).Valid() {
		issues = append(issues, Issue{Path: "feedbackType", Message: msgInvalidType})
	}
	switch n := utf8.RuneCountInString(in.Message); {
	case n < MinMessageLength:
		issues = append(issues, Issue{Path: "message", Message: msgMessageTooShort})
	case n > MaxMessageLength:
		issues = append(issues, Issue{Path: "message", Message: msgMessageTooLong})
	}
	return issues
}

// Service processes submissions.
type Service struct {
	store  database.FeedbackWriter
	logger *zap.Logger
}

// NewService creates a feedback service backed by store.
func NewService(store database.FeedbackWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Submit validates in and stores it. The returned state echoes the fields
// on any failure.
func (s *Service) Submit(ctx context.Context, in Input) (FormState, Outcome) {
	if issues := Validate(in); len(issues) > 0 {
		state := FormState{Error: MsgInvalid, Fields: in, Issues: make([]string, len(issues))}
		for i, issue := range issues {
			state.Issues[i] = issue.String()
		}
		return state, Invalid
	}

	fb := &database.StoredFeedback{
		Email:   auth.NormalizeEmail(in.Email),
		Type:    database.FeedbackType(in.FeedbackType),
		Message: in.Message,
	}
	if err := s.store.SaveFeedback(ctx, fb); err != nil {
		s.logger.Error("failed to save feedback", zap.Error(err), zap.String("type", in.FeedbackType))
		return FormState{Error: MsgStoreFailure, Fields: in, Issues: []string{}}, StoreFailed
	}

	s.logger.Info("feedback received", zap.Int64("id", fb.ID), zap.String("type", in.FeedbackType))
	return FormState{Message: MsgSuccess, Issues: []string{}}, Accepted
}
