package identity

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository persists user accounts.
// Find methods return shared.ErrNotFound when no account matches.
type AccountRepository interface {
	Save(ctx context.Context, acc *Account) error
	Update(ctx context.Context, acc *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailChangeToken(ctx context.Context, token string) (*Account, error)
	FindByGatewayCustomerID(ctx context.Context, customerID string) (*Account, error)
}
