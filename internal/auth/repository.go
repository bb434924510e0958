package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskhub/backend/internal/accounts"
	"github.com/taskhub/backend/internal/models"
)

// AccountStore is the account storage the authenticator and the token
// registry need. Token methods must be single atomic updates of the stored
// set; Service does no read-modify-write on tokens.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByIDWithToken(ctx context.Context, id uuid.UUID, token string) (*models.Account, error)
	AppendToken(ctx context.Context, id uuid.UUID, token string) error
	RemoveToken(ctx context.Context, id uuid.UUID, token string) error
	ClearTokens(ctx context.Context, id uuid.UUID) error
}

// AccountCreator creates validated accounts for registration.
type AccountCreator interface {
	Create(ctx context.Context, in accounts.CreateInput) (*models.Account, error)
}
