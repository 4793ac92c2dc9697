package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrBackendNotInitialized is returned when a repository is requested before the backend registered it.
var ErrBackendNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

// IndexRebuilder is an interface for repositories that keep an in-memory face index
type IndexRebuilder interface {
	// RebuildIndex reloads every registered descriptor into the index
	RebuildIndex(ctx context.Context) error
	// IndexCount returns the number of descriptors in the index
	IndexCount() int
	// IsIndexEnabled returns whether the index is used for matching
	IsIndexEnabled() bool
}

var (
	postgresUserWriter     func() UserWriter
	postgresFaceMatcher    func() FaceMatcher
	postgresFeedbackWriter func() FeedbackWriter
	postgresFaceIndex      IndexRebuilder
	postgresInitialized    bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called from cmd to avoid import cycles between database and postgres.
func RegisterPostgresBackend(
	users func() UserWriter,
	faces func() FaceMatcher,
	feedback func() FeedbackWriter,
) {
	postgresUserWriter = users
	postgresFaceMatcher = faces
	postgresFeedbackWriter = feedback
	postgresInitialized = true
}

// RegisterFaceIndex registers the repository owning the in-memory face index.
func RegisterFaceIndex(rebuilder IndexRebuilder) {
	postgresFaceIndex = rebuilder
}

// GetFaceIndex returns the registered face index, or nil if not registered.
func GetFaceIndex() IndexRebuilder {
	return postgresFaceIndex
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// ResetBackend clears every registration. Used by tests.
func ResetBackend() {
	postgresUserWriter = nil
	postgresFaceMatcher = nil
	postgresFeedbackWriter = nil
	postgresFaceIndex = nil
	postgresInitialized = false
}

// GetUserReader returns a UserReader from the PostgreSQL backend
func GetUserReader(ctx context.Context) (UserReader, error) {
	return GetUserWriter(ctx)
}

// GetUserWriter returns a UserWriter from the PostgreSQL backend
func GetUserWriter(ctx context.Context) (UserWriter, error) {
	if !postgresInitialized {
		return nil, ErrBackendNotInitialized
	}
	if postgresUserWriter == nil {
		return nil, fmt.Errorf("PostgreSQL user writer not registered")
	}
	return postgresUserWriter(), nil
}

// GetFaceMatcher returns a FaceMatcher from the PostgreSQL backend
func GetFaceMatcher(ctx context.Context) (FaceMatcher, error) {
	if !postgresInitialized {
		return nil, ErrBackendNotInitialized
	}
	if postgresFaceMatcher == nil {
		return nil, fmt.Errorf("PostgreSQL face matcher not registered")
	}
	return postgresFaceMatcher(), nil
}

// GetFeedbackWriter returns a FeedbackWriter from the PostgreSQL backend
func GetFeedbackWriter(ctx context.Context) (FeedbackWriter, error) {
	if !postgresInitialized {
		return nil, ErrBackendNotInitialized
	}
	if postgresFeedbackWriter == nil {
		return nil, fmt.Errorf("PostgreSQL feedback writer not registered")
	}
	return postgresFeedbackWriter(), nil
}
