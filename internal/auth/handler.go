package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskhub/backend/internal/accounts"
	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/httputil"
	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/validation"
)

// Request/response bodies use snake_case JSON.

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	User  *models.Account `json:"user"`
	Token string          `json:"token"`
}

// LoginObserver is told the outcome of every login attempt.
type LoginObserver interface {
	ObserveLogin(ok bool)
}

type nopObserver struct{}

func (nopObserver) ObserveLogin(bool) {}

type Handler struct {
	svc      Service
	validate *validation.Validator
	logins   LoginObserver
	log      *slog.Logger
}

func NewHandler(svc Service, validate *validation.Validator, logins LoginObserver, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if logins == nil {
		logins = nopObserver{}
	}
	return &Handler{svc: svc, validate: validate, logins: logins, log: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		httputil.WriteError(w, h.log, err)
		return
	}
	if _, err := h.validate.Decode(validation.AccountCreate, body); err != nil {
		httputil.WriteError(w, h.log, err)
		return
	}
	var req RegisterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteError(w, h.log, apperror.Validation("Invalid JSON"))
		return
	}

	acc, token, err := h.svc.Register(r.Context(), accounts.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Age:      req.Age,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SessionResponse{User: acc, Token: token})
}

// Login answers every credential problem with the same 400 "Unable to Login".
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(w, r)
	if err != nil {
		h.loginFailed(w)
		return
	}
	if _, err := h.validate.Decode(validation.Login, body); err != nil {
		h.loginFailed(w)
		return
	}
	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.loginFailed(w)
		return
	}

	acc, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperror.ErrUnableToLogin) {
			h.loginFailed(w)
			return
		}
		httputil.WriteError(w, h.log, err)
		return
	}
	h.logins.ObserveLogin(true)
	httputil.WriteJSON(w, http.StatusOK, SessionResponse{User: acc, Token: token})
}

func (h *Handler) loginFailed(w http.ResponseWriter) {
	h.logins.ObserveLogin(false)
	httputil.WriteErrorMessage(w, http.StatusBadRequest, apperror.Message(apperror.ErrUnableToLogin))
}

// Logout revokes the token the request was authorized with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		httputil.WriteError(w, h.log, ErrUnauthenticated)
		return
	}
	if err := h.svc.Logout(r.Context(), acc.ID, middleware.TokenFromCtx(r.Context())); err != nil {
		httputil.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// LogoutAll revokes every token of the caller, including the current one.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		httputil.WriteError(w, h.log, ErrUnauthenticated)
		return
	}
	if err := h.svc.LogoutAll(r.Context(), acc.ID); err != nil {
		httputil.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
