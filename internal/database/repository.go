package database

import (
	"context"

	"github.com/kozaktomas/securebase/internal/facematch"
)

// UserReader provides read-only access to users
type UserReader interface {
	// GetByID retrieves a user, returns ErrNotFound if missing
	GetByID(ctx context.Context, id string) (*StoredUser, error)
	// GetByEmail retrieves a user by normalized email, returns ErrNotFound if missing
	GetByEmail(ctx context.Context, email string) (*StoredUser, error)
	// List returns users ordered by creation time
	List(ctx context.Context, filter UserFilter) ([]StoredUser, error)
	// Count returns the total number of users
	Count(ctx context.Context) (int, error)
	// CountFaces returns the number of users with a registered face
	CountFaces(ctx context.Context) (int, error)
}

// UserWriter provides write access to users
type UserWriter interface {
	UserReader

	// Create inserts a new user. ID and timestamps are filled in on success.
	// Returns ErrEmailTaken if the email is already registered.
	Create(ctx context.Context, user *StoredUser) error

	// SetFace stores a descriptor for the user and marks the face as registered
	SetFace(ctx context.Context, id string, descriptor facematch.Descriptor) (*StoredUser, error)

	// ClearFace removes the user's descriptor
	ClearFace(ctx context.Context, id string) (*StoredUser, error)

	// Delete removes a user
	Delete(ctx context.Context, id string) error
}

// FaceMatcher finds the registered face nearest to a query descriptor
type FaceMatcher interface {
	// ListFaces returns every registered descriptor
	ListFaces(ctx context.Context) ([]StoredFace, error)
	// BestFaceMatch returns the nearest registered face, or nil if none is registered.
	// The returned match has IsMatch set against threshold.
	BestFaceMatch(ctx context.Context, query facematch.Descriptor, threshold float64) (*facematch.Match, error)
}

// FeedbackWriter stores feedback form submissions
type FeedbackWriter interface {
	// SaveFeedback inserts a submission and fills in its ID and CreatedAt
	SaveFeedback(ctx context.Context, fb *StoredFeedback) error
	// ListFeedback returns the most recent submissions first
	ListFeedback(ctx context.Context, limit int) ([]StoredFeedback, error)
	// CountFeedback returns the number of submissions
	CountFeedback(ctx context.Context) (int, error)
}
