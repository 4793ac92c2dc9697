package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/facematch"
	"github.com/kozaktomas/securebase/internal/web/middleware"
	"go.uber.org/zap"
)

const (
	errInvalidDescriptor          = "invalid face descriptor"
	errInvalidOrMissingDescriptor = "invalid or missing face descriptor"
	errUserNotFound               = "user not found"
)

type faceSignupRequest struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Descriptor []float64 `json:"descriptor"`
}

// FaceSignup creates an account identified by a face descriptor only
func (h *AuthHandler) FaceSignup(w http.ResponseWriter, r *http.Request) {
	var req faceSignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	name := auth.NormalizeName(req.Name)
	email := auth.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Descriptor == nil {
		respondError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if err := auth.ValidateFaceSignup(name, email); err != nil {
		if !respondValidation(w, err) {
			respondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	descriptor, err := facematch.Validate(req.Descriptor)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidDescriptor)
		return
	}

	user := &database.StoredUser{Email: email, Name: name, FaceDescriptor: descriptor}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "email already used")
			return
		}
		h.logger.Error("face signup failed", zap.Error(err), zap.String("email", sanitizeForLog(email)))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	token, _, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err), zap.String("user_id", user.ID))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	h.logger.Info("user signed up with face", zap.String("user_id", user.ID))
	respondJSON(w, http.StatusCreated, SignupResponse{
		Success: true,
		Message: "face signup successful",
		User:    toUserResponse(user),
		Token:   token,
	})
}

type faceLoginRequest struct {
	Descriptor []float64 `json:"descriptor"`
}

// FaceLogin logs in the user whose registered face is nearest to the
// submitted descriptor, provided it is closer than the threshold
func (h *AuthHandler) FaceLogin(w http.ResponseWriter, r *http.Request) {
	var req faceLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidOrMissingDescriptor)
		return
	}
	query, err := facematch.Validate(req.Descriptor)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidOrMissingDescriptor)
		return
	}

	threshold := h.config.Face.Threshold
	match, err := h.faces.BestFaceMatch(r.Context(), query, threshold)
	if err != nil {
		h.logger.Error("face match failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	if match == nil || !match.IsMatch {
		if match != nil {
			h.logger.Debug("face rejected", zap.Float64("distance", match.Distance), zap.Float64("threshold", threshold))
		}
		respondError(w, http.StatusUnauthorized, "face not recognized")
		return
	}

	user, err := h.users.GetByID(r.Context(), match.UserID)
	if err != nil {
		if isNotFound(err) {
			// The face was removed between matching and lookup.
			respondError(w, http.StatusUnauthorized, "face not recognized")
			return
		}
		h.logger.Error("face login lookup failed", zap.Error(err), zap.String("user_id", match.UserID))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	// The matcher may answer from a stale index; the stored face has the final say.
	if ok, _ := facematch.IsMatch(query, user.FaceDescriptor, threshold); !user.FaceRegistered || !ok {
		h.logger.Warn("face match not confirmed by stored descriptor", zap.String("user_id", user.ID))
		respondError(w, http.StatusUnauthorized, "face not recognized")
		return
	}

	resp, err := h.startSession(w, r, user)
	if err != nil {
		h.logger.Error("failed to create session", zap.Error(err), zap.String("user_id", user.ID))
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	distance := match.Distance
	resp.Distance = &distance

	h.logger.Info("face login", zap.String("user_id", user.ID), zap.Float64("distance", distance))
	respondJSON(w, http.StatusOK, resp)
}

// FaceUpdateResponse is returned after a face is registered or removed
type FaceUpdateResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type updateFaceRequest struct {
	FaceDescriptor []float64 `json:"faceDescriptor"`
}

// authorizeSelf returns the {id} URL parameter when it belongs to the caller.
func authorizeSelf(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "user id is required")
		return "", false
	}
	if middleware.GetUserIDFromContext(r.Context()) != id {
		respondError(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return id, true
}

// UpdateFace registers or replaces the caller's face descriptor
func (h *AuthHandler) UpdateFace(w http.ResponseWriter, r *http.Request) {
	id, ok := authorizeSelf(w, r)
	if !ok {
		return
	}

	var req updateFaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	descriptor, err := facematch.Validate(req.FaceDescriptor)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidDescriptor)
		return
	}

	user, err := h.users.SetFace(r.Context(), id, descriptor)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, errUserNotFound)
			return
		}
		h.logger.Error("face update failed", zap.Error(err), zap.String("user_id", id))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	respondJSON(w, http.StatusOK, FaceUpdateResponse{
		Message: "face data updated successfully",
		User:    toUserResponse(user),
	})
}

// DeleteFace removes the caller's face descriptor
func (h *AuthHandler) DeleteFace(w http.ResponseWriter, r *http.Request) {
	id, ok := authorizeSelf(w, r)
	if !ok {
		return
	}

	user, err := h.users.ClearFace(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			respondError(w, http.StatusNotFound, errUserNotFound)
			return
		}
		h.logger.Error("face delete failed", zap.Error(err), zap.String("user_id", id))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	respondJSON(w, http.StatusOK, FaceUpdateResponse{
		Message: "face data removed successfully",
		User:    toUserResponse(user),
	})
}
