// Package accounts manages account records: creation, profile updates,
// avatars, and deletion together with every task the account owns.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/repository"
)

// Repository is the account storage used by Service.
type Repository interface {
	Create(ctx context.Context, a *models.Account) error
	UpdateProfile(ctx context.Context, a *models.Account) error
	SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error
	GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// TaskPurger removes all tasks of an owner inside a transaction.
type TaskPurger interface {
	DeleteByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error)
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier is told about account lifecycle events. Implementations must not
// block on delivery and must not fail the caller.
type Notifier interface {
	AccountCreated(ctx context.Context, email, name string)
	AccountDeleted(ctx context.Context, email, name string)
}

type nopNotifier struct{}

func (nopNotifier) AccountCreated(context.Context, string, string) {}
func (nopNotifier) AccountDeleted(context.Context, string, string) {}

// updatableFields is the allow-list for Update.
var updatableFields = map[string]bool{
	"name":     true,
	"email":    true,
	"age":      true,
	"password": true,
}

type CreateInput struct {
	Name     string
	Email    string
	Age      int
	Password string
}

type Service struct {
	repo     Repository
	tasks    TaskPurger
	db       TxBeginner
	creds    *Credentials
	notifier Notifier
	log      *slog.Logger
}

func NewService(repo Repository, tasks TaskPurger, db TxBeginner, creds *Credentials, notifier Notifier, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, tasks: tasks, db: db, creds: creds, notifier: notifier, log: log}
}

// Create validates in, hashes the password and stores a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Account, error) {
	name, err := NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidateAge(in.Age); err != nil {
		return nil, err
	}
	acc := &models.Account{
		ID:    uuid.New(),
		Name:  name,
		Email: email,
		Age:   in.Age,
	}
	if err := s.creds.SetPassword(acc, in.Password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperror.Conflict("Email is already registered")
		}
		return nil, apperror.Internal(fmt.Errorf("create account: %w", err))
	}
	s.notifier.AccountCreated(ctx, acc.Email, acc.Name)
	return acc, nil
}

// Update applies fields to acc. Any key outside the allow-list rejects the
// whole update before anything is changed. A new password is rehashed; other
// fields leave the stored hash as it is.
func (s *Service) Update(ctx context.Context, acc *models.Account, fields map[string]any) (*models.Account, error) {
	for k := range fields {
		if !updatableFields[k] {
			return nil, apperror.ErrInvalidUpdates
		}
	}

	next := *acc
	if v, ok := fields["name"]; ok {
		str, ok := v.(string)
		if !ok {
			return nil, apperror.Validation("Name must be a string")
		}
		name, err := NormalizeName(str)
		if err != nil {
			return nil, err
		}
		next.Name = name
	}
	if v, ok := fields["email"]; ok {
		str, ok := v.(string)
		if !ok {
			return nil, apperror.Validation("Email is invalid")
		}
		email, err := NormalizeEmail(str)
		if err != nil {
			return nil, err
		}
		next.Email = email
	}
	if v, ok := fields["age"]; ok {
		age, err := toAge(v)
		if err != nil {
			return nil, err
		}
		next.Age = age
	}
	if v, ok := fields["password"]; ok {
		str, ok := v.(string)
		if !ok {
			return nil, apperror.Validation("Password must be a string")
		}
		if err := s.creds.SetPassword(&next, str); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateProfile(ctx, &next); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperror.Conflict("Email is already registered")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.NotFound("Account not found")
		}
		return nil, apperror.Internal(fmt.Errorf("update account: %w", err))
	}
	return &next, nil
}

// Delete removes every task owned by acc and then acc itself in one
// transaction. If the tasks cannot be removed the account stays.
func (s *Service) Delete(ctx context.Context, acc *models.Account) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperror.Internal(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	// Lock the row so no task can be inserted for it while we delete.
	if _, err := s.repo.GetByIDForUpdate(ctx, tx, acc.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Account not found")
		}
		return apperror.Internal(fmt.Errorf("lock account: %w", err))
	}

	n, err := s.tasks.DeleteByOwner(ctx, tx, acc.ID)
	if err != nil {
		return apperror.Cascade("Unable to delete account tasks", err)
	}

	if err := s.repo.DeleteTx(ctx, tx, acc.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Account not found")
		}
		return apperror.Internal(fmt.Errorf("delete account: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.Internal(fmt.Errorf("commit account delete: %w", err))
	}
	s.log.Info("account deleted", slog.String("account_id", acc.ID.String()), slog.Int64("tasks_deleted", n))
	s.notifier.AccountDeleted(ctx, acc.Email, acc.Name)
	return nil
}

func (s *Service) SetAvatar(ctx context.Context, accountID uuid.UUID, data []byte) error {
	if len(data) == 0 {
		return apperror.Validation("Please upload an image")
	}
	return s.writeAvatar(ctx, accountID, data)
}

func (s *Service) ClearAvatar(ctx context.Context, accountID uuid.UUID) error {
	return s.writeAvatar(ctx, accountID, nil)
}

// Avatar returns the stored avatar, or NotFound when the account or the
// avatar does not exist.
func (s *Service) Avatar(ctx context.Context, accountID uuid.UUID) ([]byte, error) {
	data, err := s.repo.GetAvatar(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Avatar not found")
		}
		return nil, apperror.Internal(fmt.Errorf("get avatar: %w", err))
	}
	return data, nil
}

func (s *Service) writeAvatar(ctx context.Context, accountID uuid.UUID, data []byte) error {
	if err := s.repo.SetAvatar(ctx, accountID, data); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Account not found")
		}
		return apperror.Internal(fmt.Errorf("set avatar: %w", err))
	}
	return nil
}

func toAge(v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, apperror.Validation("Age must be a positive number")
		}
		f = parsed
	default:
		return 0, apperror.Validation("Age must be a positive number")
	}
	if f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, apperror.Validation("Age must be a positive number")
	}
	age := int(f)
	if err := ValidateAge(age); err != nil {
		return 0, err
	}
	return age, nil
}
