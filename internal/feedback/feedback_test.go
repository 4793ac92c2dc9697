package feedback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/database/mock"
)

func TestValidate(t *testing.T) {
	valid := Input{Email: "a@example.com", FeedbackType: "bug", Message: "Ten chars!"}

	tests := []struct {
		name  string
		input Input
		want  []string
	}{
		{"valid", valid, nil},
		{"email with surrounding spaces", Input{Email: "  A@Example.com ", FeedbackType: "bug", Message: valid.Message}, nil},
		{"bad email", Input{Email: "nope", FeedbackType: "bug", Message: valid.Message}, []string{"email"}},
		{"unknown type", Input{Email: valid.Email, FeedbackType: "praise", Message: valid.Message}, []string{"feedbackType"}},
		{"short message", Input{Email: valid.Email, FeedbackType: "general", Message: "too short"}, []string{"message"}},
		{"long message", Input{Email: valid.Email, FeedbackType: "feature", Message: strings.Repeat("x", MaxMessageLength+1)}, []string{"message"}},
		{"max length runes", Input{Email: valid.Email, FeedbackType: "feature", Message: strings.Repeat("ž", MaxMessageLength)}, nil},
		{"everything wrong", Input{}, []string{"email", "feedbackType", "message"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, issue := range Validate(tt.input) {
				got = append(got, issue.Path)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("issue paths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		store := mock.NewMockFeedbackStore()
		svc := NewService(store, nil)

		state, outcome := svc.Submit(ctx, Input{Email: " User@Example.com ", FeedbackType: "bug", Message: "The face login is flaky."})

		if outcome != Accepted {
			t.Fatalf("outcome = %v, want Accepted", outcome)
		}
		want := FormState{Message: MsgSuccess, Issues: []string{}}
		if diff := cmp.Diff(want, state); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
		entries := store.Entries()
		if len(entries) != 1 {
			t.Fatalf("expected 1 stored entry, got %d", len(entries))
		}
		if entries[0].Email != "user@example.com" {
			t.Errorf("email = %s, want normalized", entries[0].Email)
		}
		if entries[0].Type != database.FeedbackBug {
			t.Errorf("type = %s, want bug", entries[0].Type)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		store := mock.NewMockFeedbackStore()
		svc := NewService(store, nil)
		in := Input{Email: "bad", FeedbackType: "bug", Message: "short"}

		state, outcome := svc.Submit(ctx, in)

		if outcome != Invalid {
			t.Fatalf("outcome = %v, want Invalid", outcome)
		}
		want := FormState{
			Error:  MsgInvalid,
			Fields: in,
			Issues: []string{"email: Invalid email address.", "message: Message must be at least 10 characters long."},
		}
		if diff := cmp.Diff(want, state); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
		if state.FieldError("message") == "" {
			t.Error("expected a message field error")
		}
		if state.FieldError("feedbackType") != "" {
			t.Error("expected no feedbackType error")
		}
		if len(store.Entries()) != 0 {
			t.Error("invalid input must not be stored")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := mock.NewMockFeedbackStore()
		store.SaveError = errors.New("connection refused")
		svc := NewService(store, nil)
		in := Input{Email: "a@example.com", FeedbackType: "general", Message: "Great product overall."}

		state, outcome := svc.Submit(ctx, in)

		if outcome != StoreFailed {
			t.Fatalf("outcome = %v, want StoreFailed", outcome)
		}
		if state.Error != MsgStoreFailure {
			t.Errorf("error = %q", state.Error)
		}
		if state.Fields != in {
			t.Errorf("fields not echoed: %+v", state.Fields)
		}
	})
}
