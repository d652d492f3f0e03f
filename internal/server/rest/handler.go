// Package rest is the HTTP boundary: JSON codec, bearer-token middleware
// and the mapping from error kinds to status codes.
package rest

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// SessionService is the part of services.SessionManager the handlers use.
type SessionService interface {
	Signup(ctx context.Context, email, password, name string) (*models.UserPublic, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

type Handler struct {
	sessions SessionService
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewHandler(s SessionService, m *metrics.Metrics, l logging.Logger) *Handler {
	return &Handler{sessions: s, metrics: m, logger: l.With("module", "rest")}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signupResponse struct {
	Message string            `json:"message"`
	User    models.UserPublic `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message      string            `json:"message"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         models.UserPublic `json:"user"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if decodeJSON(w, r, &req) != nil {
		respondMessage(w, http.StatusBadRequest, msgMalformedBody)
		return
	}

	user, err := h.sessions.Signup(r.Context(), req.Email, req.Password, req.Name)
	h.metrics.ObserveSession(services.OpSignup, err)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, signupResponse{Message: "User created successfully", User: *user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if decodeJSON(w, r, &req) != nil {
		respondMessage(w, http.StatusBadRequest, msgMalformedBody)
		return
	}

	res, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	h.metrics.ObserveSession(services.OpLogin, err)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		Message:      "Login successful",
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
	})
}

// Logout runs behind RequireAccessToken.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if decodeJSON(w, r, &req) != nil {
		respondMessage(w, http.StatusBadRequest, msgMalformedBody)
		return
	}

	err := h.sessions.Logout(r.Context(), req.RefreshToken)
	h.metrics.ObserveSession(services.OpLogout, err)
	if err != nil {
		respondError(w, err)
		return
	}

	if claims, ok := ClaimsFromContext(r.Context()); ok {
		h.logger.Info(r.Context(), "session closed", "user_id", claims.UserID)
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if decodeJSON(w, r, &req) != nil {
		respondMessage(w, http.StatusBadRequest, msgMalformedBody)
		return
	}

	token, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	h.metrics.ObserveSession(services.OpRefresh, err)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, refreshResponse{AccessToken: token})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
