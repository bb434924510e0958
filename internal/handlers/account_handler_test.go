package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/avatar"
	"github.com/taskhub/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockAccountService struct {
	avatars   map[uuid.UUID][]byte
	deleted   []uuid.UUID
	deleteErr error
}

func newMockAccountService() *mockAccountService {
	return &mockAccountService{avatars: make(map[uuid.UUID][]byte)}
}

func (m *mockAccountService) Update(_ context.Context, acc *models.Account, fields map[string]any) (*models.Account, error) {
	for k := range fields {
		switch k {
		case "name", "email", "age", "password":
		default:
			return nil, apperror.ErrInvalidUpdates
		}
	}
	updated := *acc
	if v, ok := fields["name"].(string); ok {
		updated.Name = v
	}
	return &updated, nil
}

func (m *mockAccountService) Delete(_ context.Context, acc *models.Account) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, acc.ID)
	return nil
}

func (m *mockAccountService) SetAvatar(_ context.Context, id uuid.UUID, data []byte) error {
	m.avatars[id] = data
	return nil
}

func (m *mockAccountService) ClearAvatar(_ context.Context, id uuid.UUID) error {
	delete(m.avatars, id)
	return nil
}

func (m *mockAccountService) Avatar(_ context.Context, id uuid.UUID) ([]byte, error) {
	data, ok := m.avatars[id]
	if !ok {
		return nil, errAvatarNotFound
	}
	return data, nil
}

type countingDeletions struct{ n int }

func (c *countingDeletions) ObserveAccountDeleted() { c.n++ }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestAccountHandler(t *testing.T) (*AccountHandler, *mockAccountService, *countingDeletions) {
	t.Helper()
	svc := newMockAccountService()
	obs := &countingDeletions{}
	return &AccountHandler{Accounts: svc, Validator: newTestValidator(t), Deletions: obs}, svc, obs
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestMe(t *testing.T) {
	h, _, _ := newTestAccountHandler(t)
	acc := &models.Account{ID: uuid.New(), Name: "Ann", PasswordHash: "secret-hash", Tokens: []string{"tok"}}

	rec := httptest.NewRecorder()
	h.Me(rec, asAccount(httptest.NewRequest(http.MethodGet, "/users/me", nil), acc))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-hash") || strings.Contains(rec.Body.String(), "tok") {
		t.Errorf("credentials leaked in %s", rec.Body.String())
	}
}

func TestUpdateMe(t *testing.T) {
	h, _, _ := newTestAccountHandler(t)
	acc := &models.Account{ID: uuid.New(), Name: "Ann"}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/users/me", strings.NewReader(`{"name":"Anna"}`))
	h.UpdateMe(rec, asAccount(req, acc))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Anna" {
		t.Errorf("expected Anna, got %q", got.Name)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/users/me", strings.NewReader(`{"name":"Anna","tokens":[]}`))
	h.UpdateMe(rec, asAccount(req, acc))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Invalid Updates" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestDeleteMe(t *testing.T) {
	h, svc, obs := newTestAccountHandler(t)
	acc := &models.Account{ID: uuid.New(), Name: "Ann"}

	rec := httptest.NewRecorder()
	h.DeleteMe(rec, asAccount(httptest.NewRequest(http.MethodDelete, "/users/me", nil), acc))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != acc.ID {
		t.Errorf("unexpected deletions %v", svc.deleted)
	}
	if obs.n != 1 {
		t.Errorf("expected 1 observed deletion, got %d", obs.n)
	}
}

func TestDeleteMe_CascadeFailure(t *testing.T) {
	h, svc, obs := newTestAccountHandler(t)
	svc.deleteErr = apperror.Cascade("Unable to delete account tasks", nil)

	rec := httptest.NewRecorder()
	h.DeleteMe(rec, asAccount(httptest.NewRequest(http.MethodDelete, "/users/me", nil), &models.Account{ID: uuid.New()}))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if obs.n != 0 {
		t.Error("failed delete must not be observed")
	}
}

func TestAvatarLifecycle(t *testing.T) {
	h, svc, _ := newTestAccountHandler(t)
	acc := &models.Account{ID: uuid.New()}
	id := acc.ID.String()

	rec := httptest.NewRecorder()
	h.UploadAvatar(rec, asAccount(multipartUpload(t, "avatar", "me.png", pngBytes(t, 40, 20)), acc))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(svc.avatars[acc.ID]))
	if err != nil {
		t.Fatalf("stored avatar is not a png: %v", err)
	}
	if cfg.Width != avatar.Size || cfg.Height != avatar.Size {
		t.Errorf("expected %dx%d, got %dx%d", avatar.Size, avatar.Size, cfg.Width, cfg.Height)
	}

	rec = httptest.NewRecorder()
	h.GetAvatar(rec, withID(httptest.NewRequest(http.MethodGet, "/users/"+id+"/avatar", nil), id))
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}

	rec = httptest.NewRecorder()
	h.DeleteAvatar(rec, asAccount(httptest.NewRequest(http.MethodDelete, "/users/me/avatar", nil), acc))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetAvatar(rec, withID(httptest.NewRequest(http.MethodGet, "/users/"+id+"/avatar", nil), id))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestUploadAvatar_Rejects(t *testing.T) {
	cases := []struct {
		name     string
		field    string
		filename string
		data     func(t *testing.T) []byte
	}{
		{"wrong extension", "avatar", "me.gif", func(t *testing.T) []byte { return pngBytes(t, 4, 4) }},
		{"not an image", "avatar", "me.png", func(*testing.T) []byte { return []byte("hello") }},
		{"wrong field", "upload", "me.png", func(t *testing.T) []byte { return pngBytes(t, 4, 4) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, svc, _ := newTestAccountHandler(t)
			acc := &models.Account{ID: uuid.New()}

			rec := httptest.NewRecorder()
			h.UploadAvatar(rec, asAccount(multipartUpload(t, tc.field, tc.filename, tc.data(t)), acc))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if _, stored := svc.avatars[acc.ID]; stored {
				t.Error("rejected upload must not be stored")
			}
		})
	}
}

func TestGetAvatar_MalformedID(t *testing.T) {
	h, _, _ := newTestAccountHandler(t)

	rec := httptest.NewRecorder()
	h.GetAvatar(rec, withID(httptest.NewRequest(http.MethodGet, "/users/abc/avatar", nil), "abc"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
