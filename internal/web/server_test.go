package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/securebase/internal/config"
	"github.com/kozaktomas/securebase/internal/database/mock"
	"github.com/kozaktomas/securebase/internal/facematch"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) (*Server, *mock.MockUserStore, *mock.MockFeedbackStore) {
	t.Helper()
	cfg := &config.Config{
		Web:  config.WebConfig{Host: "127.0.0.1", Port: 0, SessionSecret: "test-secret"},
		Auth: config.AuthConfig{JWTSecret: "test-jwt", JWTTTL: time.Hour, BcryptCost: bcrypt.MinCost},
		Face: config.FaceConfig{Threshold: facematch.DefaultThreshold, Mode: config.MatchModeScan},
	}
	users := mock.NewMockUserStore()
	fb := mock.NewMockFeedbackStore()
	srv, err := NewServer(cfg, Stores{Users: users, Faces: users, Feedback: fb}, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv, users, fb
}

func do(t *testing.T, srv *Server, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func values(v float64) []float64 {
	d := make([]float64, facematch.DescriptorDim)
	for i := range d {
		d[i] = v
	}
	return d
}

func TestNewServer_RequiresStores(t *testing.T) {
	if _, err := NewServer(&config.Config{}, Stores{}, nil); err == nil {
		t.Error("expected error without stores")
	}
}

func TestServer_PasswordSignupThenFaceLogin(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv, "POST", "/api/v1/auth/signup", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "supersecret",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", rec.Code, rec.Body.String())
	}
	var signup struct {
		User  struct{ ID string } `json:"user"`
		Token string              `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &signup); err != nil {
		t.Fatalf("decode signup: %v", err)
	}

	// Registering a face needs authentication.
	rec = do(t, srv, "PUT", "/api/v1/users/"+signup.User.ID+"/face", map[string]any{"faceDescriptor": values(0.2)}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated face update status %d", rec.Code)
	}

	bearer := http.Header{"Authorization": {"Bearer " + signup.Token}}
	rec = do(t, srv, "PUT", "/api/v1/users/"+signup.User.ID+"/face", map[string]any{"faceDescriptor": values(0.2)}, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("face update status %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, "POST", "/api/v1/auth/face/login", map[string]any{"descriptor": values(0.21)}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("face login status %d: %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Success   bool     `json:"success"`
		SessionID string   `json:"session_id"`
		Distance  *float64 `json:"distance"`
		User      struct{ ID string }
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if !login.Success || login.User.ID != signup.User.ID || login.Distance == nil {
		t.Errorf("unexpected login response %+v", login)
	}

	// The session from the face login works as a Bearer credential.
	rec = do(t, srv, "GET", "/api/v1/auth/status", nil, http.Header{"Authorization": {"Bearer " + login.SessionID}})
	if !strings.Contains(rec.Body.String(), `"authenticated":true`) {
		t.Errorf("expected authenticated status, got %s", rec.Body.String())
	}

	rec = do(t, srv, "DELETE", "/api/v1/users/"+signup.User.ID+"/face", nil, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("face delete status %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, "POST", "/api/v1/auth/face/login", map[string]any{"descriptor": values(0.21)}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("face login after removal status %d", rec.Code)
	}
}

func TestServer_FeedbackAPI(t *testing.T) {
	srv, _, fb := newTestServer(t)

	rec := do(t, srv, "POST", "/api/v1/feedback", map[string]string{
		"email": "a@example.com", "feedbackType": "general", "message": "Lovely guardians on the homepage.",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if len(fb.Entries()) != 1 {
		t.Errorf("expected one stored entry, got %d", len(fb.Entries()))
	}
}

func TestServer_Routes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		method      string
		path        string
		wantStatus  int
		contentType string
	}{
		{"GET", "/api/v1/health", http.StatusOK, "application/json"},
		{"GET", "/api/v1/content", http.StatusOK, "application/json"},
		{"GET", "/api/v1/nope", http.StatusNotFound, "application/json"},
		{"GET", "/", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/about-platform", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/about-team", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/support-faq", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/privacy-policy", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/login", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/signup", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/login/face", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/signup/face", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/feedback", http.StatusOK, "text/html; charset=utf-8"},
		{"GET", "/does-not-exist", http.StatusNotFound, "text/html; charset=utf-8"},
		{"GET", "/assets/site.css", http.StatusOK, "text/css; charset=utf-8"},
		{"GET", "/assets/face.js", http.StatusOK, "application/javascript; charset=utf-8"},
		{"GET", "/assets/missing.js", http.StatusNotFound, "text/html; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, nil, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if rec.Header().Get("Content-Security-Policy") == "" {
				t.Error("expected security headers on every response")
			}
		})
	}
}
