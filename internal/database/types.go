package database

import (
	"errors"
	"time"

	"github.com/kozaktomas/securebase/internal/facematch"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when creating a user whose email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// StoredUser represents a user row. PasswordHash is empty for face-only accounts.
type StoredUser struct {
	ID             string
	Email          string
	Name           string
	PasswordHash   string
	FaceDescriptor facematch.Descriptor // nil when no face is registered
	FaceRegistered bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasPassword reports whether the user can log in with a password.
func (u *StoredUser) HasPassword() bool {
	return u.PasswordHash != ""
}

// StoredFace is a registered descriptor together with its owner.
type StoredFace struct {
	UserID     string
	Descriptor facematch.Descriptor
}

// Candidate converts the stored face to a matcher candidate.
func (f StoredFace) Candidate() facematch.Candidate {
	return facematch.Candidate{UserID: f.UserID, Descriptor: f.Descriptor}
}

// FeedbackType is the category picked on the feedback form.
type FeedbackType string

const (
	FeedbackBug     FeedbackType = "bug"
	FeedbackFeature FeedbackType = "feature"
	FeedbackGeneral FeedbackType = "general"
)

// Valid reports whether t is one of the known feedback categories.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackBug, FeedbackFeature, FeedbackGeneral:
		return true
	}
	return false
}

// StoredFeedback represents a submitted feedback form.
type StoredFeedback struct {
	ID        int64
	Email     string
	Type      FeedbackType
	Message   string
	CreatedAt time.Time
}

// UserFilter narrows List results.
type UserFilter struct {
	FaceOnly bool   // only users with a registered face
	Search   string // substring of name or email, case and accent insensitive
	Limit    int
	Offset   int
}
