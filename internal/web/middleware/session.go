package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	sessionCookieName = "securebase_session"
	sessionDuration   = 24 * time.Hour
	devSessionSecret  = "securebase-dev-secret-change-in-production"
)

// Session represents a logged-in user
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StoredSession is the persisted form of a session
type StoredSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository persists sessions so they survive restarts
type SessionRepository interface {
	Save(ctx context.Context, id, userID string, createdAt, expiresAt time.Time) error
	// Get returns nil, nil when the session is missing or expired
	Get(ctx context.Context, sessionID string) (*StoredSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager handles session creation and validation.
// Sessions are cached in memory and written through to the repository when one is set.
type SessionManager struct {
	secret        []byte
	sessions      map[string]*Session
	repo          SessionRepository
	secureCookies bool
	logger        *zap.Logger
	mu            sync.RWMutex

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSessionManager creates a new session manager. repo may be nil, in
// which case sessions live only in memory.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	if secret == "" {
		secret = devSessionSecret
	}
	return &SessionManager{
		secret:   []byte(secret),
		sessions: make(map[string]*Session),
		repo:     repo,
		logger:   zap.NewNop(),
		stop:     make(chan struct{}),
	}
}

// SetLogger sets the logger used for repository failures.
func (sm *SessionManager) SetLogger(logger *zap.Logger) {
	if logger != nil {
		sm.logger = logger
	}
}

// SetSecureCookies forces the Secure flag on session cookies.
func (sm *SessionManager) SetSecureCookies(secure bool) {
	sm.secureCookies = secure
}

// CreateSession creates a new session for a user
func (sm *SessionManager) CreateSession(ctx context.Context, userID string) (*Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	sessionID := base64.RawURLEncoding.EncodeToString(idBytes)

	now := time.Now()
	session := &Session{
		ID:        sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	if sm.repo != nil {
		if err := sm.repo.Save(ctx, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
	}

	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()

	return session, nil
}

// GetSession retrieves a live session by ID, consulting the repository on a cache miss
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(ctx, sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		sm.logger.Warn("session lookup failed", zap.Error(err))
		return nil
	}
	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return nil
	}

	session = &Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			sm.logger.Warn("session delete failed", zap.Error(err))
		}
	}
}

// StartCleanup removes expired sessions every interval until Stop is called.
func (sm *SessionManager) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sm.stop:
				return
			case <-ticker.C:
				sm.cleanup(context.Background())
			}
		}
	}()
}

// Stop ends the cleanup loop.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanup(ctx context.Context) {
	now := time.Now()
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	if sm.repo == nil {
		return
	}
	n, err := sm.repo.DeleteExpired(ctx)
	if err != nil {
		sm.logger.Warn("expired session cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		sm.logger.Info("expired sessions removed", zap.Int64("count", n))
	}
}

// SetSessionCookie sets the signed session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	cookieValue := session.ID + "." + sm.signData(session.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secureCookies || isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
	})
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from the signed cookie or a Bearer session ID
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if sessionID, signature, ok := strings.Cut(cookie.Value, "."); ok && sm.verifySignature(sessionID, signature) {
			if session := sm.GetSession(r.Context(), sessionID); session != nil {
				return session
			}
		}
	}

	if sessionID, ok := bearerToken(r); ok {
		if session := sm.GetSession(r.Context(), sessionID); session != nil {
			return session
		}
	}

	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}
