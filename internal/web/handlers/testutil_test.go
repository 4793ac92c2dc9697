package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/config"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/database/mock"
	"github.com/kozaktomas/securebase/internal/facematch"
	"github.com/kozaktomas/securebase/internal/web/middleware"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse"

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:  "test-jwt-secret",
			JWTTTL:     time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
		Face: config.FaceConfig{
			Threshold: facematch.DefaultThreshold,
			Mode:      config.MatchModeScan,
		},
	}
}

// authFixture bundles an AuthHandler with the mock store behind it
type authFixture struct {
	handler *AuthHandler
	users   *mock.MockUserStore
	sm      *middleware.SessionManager
	hasher  *auth.Hasher
	tokens  *auth.TokenIssuer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := testConfig()
	users := mock.NewMockUserStore()
	sm := middleware.NewSessionManager("test-secret", nil)
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	return &authFixture{
		handler: NewAuthHandler(cfg, sm, users, users, hasher, tokens, nil),
		users:   users,
		sm:      sm,
		hasher:  hasher,
		tokens:  tokens,
	}
}

// addPasswordUser stores a user that can log in with testPassword
func (f *authFixture) addPasswordUser(t *testing.T, email, name string) *database.StoredUser {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return f.users.AddUser(database.StoredUser{Email: email, Name: name, PasswordHash: hash})
}

// descriptor returns a valid descriptor with every component set to v
func descriptor(v float32) facematch.Descriptor {
	d := make(facematch.Descriptor, facematch.DescriptorDim)
	for i := range d {
		d[i] = v
	}
	return d
}

// descriptorValues returns a JSON-ready descriptor with every component set to v
func descriptorValues(v float64) []float64 {
	d := make([]float64, facematch.DescriptorDim)
	for i := range d {
		d[i] = v
	}
	return d
}

// jsonRequest builds a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestAsUser marks the request as authenticated for userID
func requestAsUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.SetUserIDInContext(r.Context(), userID))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

// findCookie returns the named cookie set on the response, or nil
func findCookie(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range recorder.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
