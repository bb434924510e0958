package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/avatar"
	"github.com/taskhub/backend/internal/httputil"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/validation"
)

// AccountService is the subset of accounts.Service needed by the handler.
type AccountService interface {
	Update(ctx context.Context, acc *models.Account, fields map[string]any) (*models.Account, error)
	Delete(ctx context.Context, acc *models.Account) error
	SetAvatar(ctx context.Context, accountID uuid.UUID, data []byte) error
	ClearAvatar(ctx context.Context, accountID uuid.UUID) error
	Avatar(ctx context.Context, accountID uuid.UUID) ([]byte, error)
}

// DeleteObserver is told about every completed account deletion.
type DeleteObserver interface {
	ObserveAccountDeleted()
}

// multipartOverhead leaves room for boundaries and part headers on top of the
// file itself.
const multipartOverhead = 64 << 10

var errAvatarNotFound = apperror.NotFound("Avatar not found")

// AccountHandler serves /users/me and the avatar endpoints.
type AccountHandler struct {
	Accounts  AccountService
	Validator *validation.Validator
	Deletions DeleteObserver
	Logger    *slog.Logger
}

// Me handles GET /users/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acc)
}

// UpdateMe handles PATCH /users/me.
func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	fields, ok := decodeBody(w, r, h.Validator, h.Logger, validation.AccountUpdate)
	if !ok {
		return
	}
	updated, err := h.Accounts.Update(r.Context(), acc, fields)
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// DeleteMe handles DELETE /users/me. The account and all of its tasks are
// removed together; the deleted account is echoed back.
func (h *AccountHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	if err := h.Accounts.Delete(r.Context(), acc); err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	if h.Deletions != nil {
		h.Deletions.ObserveAccountDeleted()
	}
	httputil.WriteJSON(w, http.StatusOK, acc)
}

// UploadAvatar handles POST /users/me/avatar with a multipart "avatar" field.
func (h *AccountHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, avatar.MaxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, h.Logger, apperror.Validation("File too large"))
			return
		}
		httputil.WriteError(w, h.Logger, apperror.Validation("Please upload an image"))
		return
	}
	defer file.Close()

	if err := avatar.CheckFilename(header.Filename); err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, avatar.MaxUploadBytes+1))
	if err != nil {
		httputil.WriteError(w, h.Logger, apperror.Validation("Please upload an image"))
		return
	}
	img, err := avatar.Normalize(data)
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	if err := h.Accounts.SetAvatar(r.Context(), acc.ID, img); err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteAvatar handles DELETE /users/me/avatar.
func (h *AccountHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	acc, ok := requireAccount(w, r)
	if !ok {
		return
	}
	if err := h.Accounts.ClearAvatar(r.Context(), acc.ID); err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetAvatar handles the public GET /users/{id}/avatar.
func (h *AccountHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, h.Logger, errAvatarNotFound)
		return
	}
	data, err := h.Accounts.Avatar(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, h.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
