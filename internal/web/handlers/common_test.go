package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/facematch"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
		wantBody   string
	}{
		{"object", http.StatusOK, map[string]string{"status": "ok"}, "{\"status\":\"ok\"}\n"},
		{"created", http.StatusCreated, map[string]bool{"success": true}, "{\"success\":true}\n"},
		{"nil data", http.StatusNoContent, nil, ""},
		{"empty map", http.StatusOK, map[string]string{}, "{}\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			assertStatusCode(t, recorder, tc.statusCode)
			assertContentType(t, recorder, "application/json")
			if recorder.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, recorder.Body.String())
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusInternalServerError} {
		recorder := httptest.NewRecorder()
		respondError(recorder, status, "something went wrong")

		assertStatusCode(t, recorder, status)
		assertJSONError(t, recorder, "something went wrong")
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@example.com"}`))
	if err := decodeJSON(recorder, req, &dst); err != nil {
		t.Fatalf("decodeJSON() error = %v", err)
	}
	if dst.Email != "a@example.com" {
		t.Errorf("expected email to decode, got %q", dst.Email)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"email":`))
	if err := decodeJSON(recorder, req, &dst); err == nil {
		t.Error("expected error for truncated body")
	}

	huge := `{"email":"` + strings.Repeat("a", 128<<10) + `"}`
	req = httptest.NewRequest("POST", "/", strings.NewReader(huge))
	if err := decodeJSON(recorder, req, &dst); err == nil {
		t.Error("expected error for oversized body")
	}
}

func TestToUserResponse_HidesSecrets(t *testing.T) {
	u := &database.StoredUser{
		ID:             "u1",
		Email:          "a@example.com",
		Name:           "Alice",
		PasswordHash:   "$2a$12$secret",
		FaceDescriptor: make(facematch.Descriptor, facematch.DescriptorDim),
		FaceRegistered: true,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(toUserResponse(u))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	for _, forbidden := range []string{"secret", "descriptor", "password"} {
		if strings.Contains(body, forbidden) {
			t.Errorf("user JSON leaks %q: %s", forbidden, body)
		}
	}
	if !strings.Contains(body, `"created_at":"2024-05-01T12:00:00Z"`) {
		t.Errorf("unexpected created_at in %s", body)
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("evil\r\nINFO fake"); got != "evilINFO fake" {
		t.Errorf("sanitizeForLog() = %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{"GET", "HEAD", "POST"} {
		recorder := httptest.NewRecorder()
		HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		var body map[string]string
		parseJSONResponse(t, recorder, &body)
		if body["status"] != "ok" {
			t.Errorf("expected status ok, got %q", body["status"])
		}
	}
}
