package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/homehive/homehive-api/internal/application/auth"
	"github.com/homehive/homehive-api/internal/domain"
	"github.com/homehive/homehive-api/internal/pkg/validate"
)

// AuthHandler handles login, registration, and OTP verification endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "account disabled")
		case errors.Is(err, domain.ErrBadRequest):
			writeError(w, http.StatusBadRequest, "email or phone required")
		case errors.Is(err, domain.ErrNoChannel):
			writeError(w, http.StatusUnprocessableEntity, "account has no verifiable channel")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if res.Challenge != nil {
		writeJSON(w, http.StatusOK, challengeEnvelope(res.Challenge, nil))
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: res.AccessToken, User: toSafeUser(res.User)})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, ch, err := h.svc.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrBadRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNoChannel):
			writeError(w, http.StatusUnprocessableEntity, "account has no verifiable channel")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, challengeEnvelope(ch, u))
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		writeVerifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Bearer:   res.AccessToken,
		User:     toSafeUser(res.User),
		Redirect: &res.Redirect,
	})
}

func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VerificationToken string `json:"verification_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ch, err := h.svc.Resend(r.Context(), req.VerificationToken)
	if err != nil {
		writeVerifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challengeEnvelope(ch, nil))
}

func challengeEnvelope(ch *auth.Challenge, u *domain.User) ChallengeEnvelope {
	env := ChallengeEnvelope{
		Message:           fmt.Sprintf("verification code sent to %s", ch.MaskedIdentifier),
		VerificationToken: ch.VerificationToken,
		Method:            string(ch.Method),
		MaskedIdentifier:  ch.MaskedIdentifier,
	}
	if u != nil {
		env.User = toSafeUser(u)
	}
	return env
}
