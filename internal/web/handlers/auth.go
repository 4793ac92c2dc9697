package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/config"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/web/middleware"
	"go.uber.org/zap"
)

// AuthHandler handles password and face authentication endpoints
type AuthHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
	users          database.UserWriter
	faces          database.FaceMatcher
	hasher         *auth.Hasher
	tokens         *auth.TokenIssuer
	logger         *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	cfg *config.Config,
	sm *middleware.SessionManager,
	users database.UserWriter,
	faces database.FaceMatcher,
	hasher *auth.Hasher,
	tokens *auth.TokenIssuer,
	logger *zap.Logger,
) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		config:         cfg,
		sessionManager: sm,
		users:          users,
		faces:          faces,
		hasher:         hasher,
		tokens:         tokens,
		logger:         logger,
	}
}

type signupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SignupResponse is returned after an account is created
type SignupResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

// ValidationErrorResponse lists invalid fields
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields []auth.FieldError `json:"fields"`
}

func respondValidation(w http.ResponseWriter, err error) bool {
	var verr *auth.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:  verr.Fields[0].Message,
		Fields: verr.Fields,
	})
	return true
}

// Signup creates a password account
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	in := auth.SignupInput{
		Name:            auth.NormalizeName(req.Name),
		Email:           auth.NormalizeEmail(req.Email),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	if err := auth.ValidateSignup(in); err != nil {
		if !respondValidation(w, err) {
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	hash, err := h.hasher.Hash(in.Password)
	if err != nil {
		h.logger.Error("password hashing failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	user := &database.StoredUser{Email: in.Email, Name: in.Name, PasswordHash: hash}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "user already exists")
			return
		}
		h.logger.Error("signup failed", zap.Error(err), zap.String("email", sanitizeForLog(in.Email)))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	token, _, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err), zap.String("user_id", user.ID))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.logger.Info("user signed up", zap.String("user_id", user.ID))
	respondJSON(w, http.StatusCreated, SignupResponse{
		Success: true,
		Message: "signup successful",
		User:    toUserResponse(user),
		Token:   token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success        bool          `json:"success"`
	User           *UserResponse `json:"user,omitempty"`
	Token          string        `json:"token,omitempty"`
	TokenExpiresAt string        `json:"token_expires_at,omitempty"`
	SessionID      string        `json:"session_id,omitempty"`
	ExpiresAt      string        `json:"expires_at,omitempty"`
	Distance       *float64      `json:"distance,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Login handles password login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil && !isNotFound(err) {
		h.logger.Error("login lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	// Unknown email, face-only account and wrong password look the same to the caller.
	if user == nil || !user.HasPassword() || h.hasher.Compare(req.Password, user.PasswordHash) != nil {
		h.logger.Debug("password login rejected", zap.String("email", sanitizeForLog(email)))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid credentials",
		})
		return
	}

	resp, err := h.startSession(w, r, user)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err), zap.String("user_id", user.ID))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// startSession creates a server side session, sets its cookie and issues a JWT.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *database.StoredUser) (LoginResponse, error) {
	session, err := h.sessionManager.CreateSession(r.Context(), user.ID)
	if err != nil {
		return LoginResponse{}, err
	}
	token, tokenExp, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.sessionManager.DeleteSession(r.Context(), session.ID)
		return LoginResponse{}, err
	}

	h.sessionManager.SetSessionCookie(w, r, session)

	u := toUserResponse(user)
	return LoginResponse{
		Success:        true,
		User:           &u,
		Token:          token,
		TokenExpiresAt: tokenExp.UTC().Format(time.RFC3339),
		SessionID:      session.ID,
		ExpiresAt:      session.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(r.Context(), session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
	ExpiresAt     string        `json:"expires_at,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	user, err := h.users.GetByID(r.Context(), session.UserID)
	if err != nil {
		if !isNotFound(err) {
			h.logger.Error("status lookup failed", zap.Error(err))
		}
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	u := toUserResponse(user)
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		User:          &u,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
