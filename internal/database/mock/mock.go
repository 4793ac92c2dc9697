// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/facematch"
)

// MockUserStore is an in-memory implementation of database.UserWriter and database.FaceMatcher
type MockUserStore struct {
	mu    sync.RWMutex
	users map[string]*database.StoredUser

	// Error injection
	GetError       error
	ListError      error
	CountError     error
	CreateError    error
	SetFaceError   error
	ClearFaceError error
	DeleteError    error
	MatchError     error
}

// NewMockUserStore creates a new empty mock user store
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		users: make(map[string]*database.StoredUser),
	}
}

// AddUser inserts a user directly, bypassing uniqueness checks. Missing IDs are generated.
func (m *MockUserStore) AddUser(u database.StoredUser) *database.StoredUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}
	u.FaceRegistered = len(u.FaceDescriptor) > 0
	m.users[u.ID] = &u
	cp := u
	return &cp
}

// GetByID retrieves a user by ID
func (m *MockUserStore) GetByID(ctx context.Context, id string) (*database.StoredUser, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by email
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*database.StoredUser, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

// List returns users ordered by creation time
func (m *MockUserStore) List(ctx context.Context, filter database.UserFilter) ([]database.StoredUser, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := auth.SearchKey(filter.Search)
	var out []database.StoredUser
	for _, u := range m.users {
		if filter.FaceOnly && !u.FaceRegistered {
			continue
		}
		if search != "" && !strings.Contains(auth.SearchKey(u.Name), search) && !strings.Contains(u.Email, search) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Count returns the number of users
func (m *MockUserStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// CountFaces returns the number of users with a registered face
func (m *MockUserStore) CountFaces(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, u := range m.users {
		if u.FaceRegistered {
			n++
		}
	}
	return n, nil
}

// Create inserts a new user
func (m *MockUserStore) Create(ctx context.Context, user *database.StoredUser) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return database.ErrEmailTaken
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.FaceRegistered = len(user.FaceDescriptor) > 0
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// SetFace stores a descriptor for a user
func (m *MockUserStore) SetFace(ctx context.Context, id string, descriptor facematch.Descriptor) (*database.StoredUser, error) {
	if m.SetFaceError != nil {
		return nil, m.SetFaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	u.FaceDescriptor = append(facematch.Descriptor(nil), descriptor...)
	u.FaceRegistered = true
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

// ClearFace removes a user's descriptor
func (m *MockUserStore) ClearFace(ctx context.Context, id string) (*database.StoredUser, error) {
	if m.ClearFaceError != nil {
		return nil, m.ClearFaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	u.FaceDescriptor = nil
	u.FaceRegistered = false
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

// Delete removes a user
func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// ListFaces returns every registered descriptor
func (m *MockUserStore) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	if m.MatchError != nil {
		return nil, m.MatchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.users))
	for id, u := range m.users {
		if u.FaceRegistered {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	faces := make([]database.StoredFace, 0, len(ids))
	for _, id := range ids {
		faces = append(faces, database.StoredFace{UserID: id, Descriptor: m.users[id].FaceDescriptor})
	}
	return faces, nil
}

// BestFaceMatch runs a linear scan over the registered descriptors
func (m *MockUserStore) BestFaceMatch(ctx context.Context, query facematch.Descriptor, threshold float64) (*facematch.Match, error) {
	faces, err := m.ListFaces(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]facematch.Candidate, len(faces))
	for i, f := range faces {
		candidates[i] = f.Candidate()
	}
	match, ok := facematch.FindBestMatch(query, candidates, threshold)
	if !ok {
		return nil, nil
	}
	return &match, nil
}

// MockFeedbackStore is an in-memory implementation of database.FeedbackWriter
type MockFeedbackStore struct {
	mu      sync.RWMutex
	entries []database.StoredFeedback
	nextID  int64

	// Error injection
	SaveError  error
	ListError  error
	CountError error
}

// NewMockFeedbackStore creates a new empty mock feedback store
func NewMockFeedbackStore() *MockFeedbackStore {
	return &MockFeedbackStore{nextID: 1}
}

// SaveFeedback stores a submission
func (m *MockFeedbackStore) SaveFeedback(ctx context.Context, fb *database.StoredFeedback) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if !fb.Type.Valid() {
		return fmt.Errorf("invalid feedback type %q", fb.Type)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fb.ID = m.nextID
	m.nextID++
	fb.CreatedAt = time.Now()
	m.entries = append(m.entries, *fb)
	return nil
}

// ListFeedback returns the most recent submissions first
func (m *MockFeedbackStore) ListFeedback(ctx context.Context, limit int) ([]database.StoredFeedback, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredFeedback, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0; i-- {
		out = append(out, m.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CountFeedback returns the number of submissions
func (m *MockFeedbackStore) CountFeedback(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Entries returns a copy of every stored submission in insertion order
func (m *MockFeedbackStore) Entries() []database.StoredFeedback {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.StoredFeedback(nil), m.entries...)
}

var (
	_ database.UserWriter     = (*MockUserStore)(nil)
	_ database.FaceMatcher    = (*MockUserStore)(nil)
	_ database.FeedbackWriter = (*MockFeedbackStore)(nil)
)
