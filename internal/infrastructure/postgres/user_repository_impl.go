package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active,
	COALESCE(refresh_token, ''), mfa_enabled, COALESCE(mfa_secret, ''), mfa_backup_codes,
	last_active, created_at, updated_at`

type UserRepository struct {
	s *Store
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &u.IsActive,
		&u.RefreshToken, &u.MFAEnabled, &u.MFASecret, &u.MFABackupCodes,
		&u.LastActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Role = entity.Role(role)
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	row := r.s.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, refresh_token)
		VALUES (lower($1), $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, email, last_active, created_at, updated_at
	`, u.Email, u.PasswordHash, u.FirstName, u.LastName, string(u.Role), u.IsActive, u.RefreshToken)

	if err := row.Scan(&u.ID, &u.Email, &u.LastActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", repository.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	err := r.s.db.QueryRow(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, role = $4, is_active = $5,
		    refresh_token = NULLIF($6, ''), last_active = $7, password_hash = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.FirstName, u.LastName, string(u.Role), u.IsActive,
		u.RefreshToken, u.LastActive, u.PasswordHash).Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func (r *UserRepository) SetMFA(ctx context.Context, userID string, enabled bool, secret string, codeHashes []string) error {
	if codeHashes == nil {
		codeHashes = []string{}
	}
	tag, err := r.s.db.Exec(ctx, `
		UPDATE users
		SET mfa_enabled = $2, mfa_secret = NULLIF($3, ''), mfa_backup_codes = $4, updated_at = now()
		WHERE id = $1
	`, userID, enabled, secret, codeHashes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ActivateMFA(ctx context.Context, userID string) (bool, error) {
	tag, err := r.s.db.Exec(ctx, `
		UPDATE users SET mfa_enabled = TRUE, updated_at = now()
		WHERE id = $1 AND mfa_secret IS NOT NULL AND NOT mfa_enabled
	`, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) ConsumeBackupCode(ctx context.Context, userID, codeHash string) (bool, error) {
	tag, err := r.s.db.Exec(ctx, `
		UPDATE users
		SET mfa_backup_codes = array_remove(mfa_backup_codes, $2), updated_at = now()
		WHERE id = $1 AND $2 = ANY(mfa_backup_codes)
	`, userID, codeHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := r.s.db.Exec(ctx, `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE refresh_token = $1`, token)
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
