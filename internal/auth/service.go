package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/accounts"
	"github.com/taskhub/backend/internal/apperror"
	"github.com/taskhub/backend/internal/models"
	"github.com/taskhub/backend/internal/repository"
)

// ErrUnauthenticated is returned by Authorize for every rejected token.
var ErrUnauthenticated = apperror.Auth("Please authenticate.")

type Service interface {
	Register(ctx context.Context, in accounts.CreateInput) (*models.Account, string, error)
	Login(ctx context.Context, email, password string) (*models.Account, string, error)
	Authorize(ctx context.Context, token string) (*models.Account, string, error)
	Issue(ctx context.Context, accountID uuid.UUID) (string, error)
	Logout(ctx context.Context, accountID uuid.UUID, token string) error
	LogoutAll(ctx context.Context, accountID uuid.UUID) error
}

type service struct {
	store   AccountStore
	creator AccountCreator
	creds   *accounts.Credentials
	signer  *TokenSigner
	log     *slog.Logger
}

func NewService(store AccountStore, creator AccountCreator, creds *accounts.Credentials, signer *TokenSigner, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, creator: creator, creds: creds, signer: signer, log: log}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

// Register creates an account and opens its first session.
func (s *service) Register(ctx context.Context, in accounts.CreateInput) (*models.Account, string, error) {
	acc, err := s.creator.Create(ctx, in)
	if err != nil {
		return nil, "", err
	}
	token, err := s.Issue(ctx, acc.ID)
	if err != nil {
		return nil, "", err
	}
	acc.Tokens = append(acc.Tokens, token)
	return acc, token, nil
}

// Login resolves credentials to an account and issues a token. Unknown email
// and wrong password both yield apperror.ErrUnableToLogin.
func (s *service) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	normalized, err := accounts.NormalizeEmail(email)
	if err != nil {
		s.creds.Verify(nil, password)
		return nil, "", apperror.ErrUnableToLogin
	}
	acc, err := s.store.GetByEmail(ctx, normalized)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperror.Internal(fmt.Errorf("find account: %w", err))
	}
	if !s.creds.Verify(acc, password) {
		return nil, "", apperror.ErrUnableToLogin
	}
	token, err := s.Issue(ctx, acc.ID)
	if err != nil {
		return nil, "", err
	}
	acc.Tokens = append(acc.Tokens, token)
	return acc, token, nil
}

// Authorize verifies token and checks that it is still in the owner's
// active set. It returns the account and the token for later revocation.
func (s *service) Authorize(ctx context.Context, token string) (*models.Account, string, error) {
	id, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", ErrUnauthenticated
	}
	acc, err := s.store.GetByIDWithToken(ctx, id, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrUnauthenticated
		}
		return nil, "", apperror.Internal(fmt.Errorf("authorize: %w", err))
	}
	return acc, token, nil
}

// Issue signs a new token for accountID and appends it to the active set.
func (s *service) Issue(ctx context.Context, accountID uuid.UUID) (string, error) {
	token, err := s.signer.Sign(accountID)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("sign token: %w", err))
	}
	if err := s.store.AppendToken(ctx, accountID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperror.NotFound("Account not found")
		}
		return "", apperror.Internal(fmt.Errorf("store token: %w", err))
	}
	return token, nil
}

// Logout revokes one token. Revoking a token that is not active is a no-op.
func (s *service) Logout(ctx context.Context, accountID uuid.UUID, token string) error {
	if err := s.store.RemoveToken(ctx, accountID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Account not found")
		}
		return apperror.Internal(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

// LogoutAll revokes every token of the account.
func (s *service) LogoutAll(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.ClearTokens(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Account not found")
		}
		return apperror.Internal(fmt.Errorf("revoke tokens: %w", err))
	}
	return nil
}
