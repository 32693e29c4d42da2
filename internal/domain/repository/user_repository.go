package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// Create returns ErrDuplicateKey when the email is taken.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// Update writes profile, role, status, password, refresh token and last
	// active. MFA state is left untouched; it changes only through SetMFA,
	// ActivateMFA and ConsumeBackupCode.
	Update(ctx context.Context, u *entity.User) error
	// SetMFA replaces the whole MFA state: setup and disable.
	SetMFA(ctx context.Context, userID string, enabled bool, secret string, codeHashes []string) error
	// ActivateMFA turns MFA on for a user with a stored secret. It reports false
	// when there is no secret or MFA is already on.
	ActivateMFA(ctx context.Context, userID string) (bool, error)
	// ConsumeBackupCode atomically removes codeHash from the user's backup codes.
	// It reports false when the code was not present.
	ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error)
	ClearRefreshToken(ctx context.Context, token string) error
}
