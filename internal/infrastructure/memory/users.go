package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	defer r.s.lock()()
	st := r.s.data()
	email := strings.ToLower(u.Email)
	for _, existing := range st.users {
		if strings.ToLower(existing.Email) == email {
			return repository.ErrDuplicateKey
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.LastActive.IsZero() {
		u.LastActive = now
	}
	st.users[u.ID] = copyUser(u)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data().users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	defer r.s.lock()()
	email = strings.ToLower(email)
	for _, u := range r.s.data().users {
		if strings.ToLower(u.Email) == email {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Update(_ context.Context, u *entity.User) error {
	defer r.s.lock()()
	st := r.s.data()
	cur, ok := st.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	next := copyUser(u)
	next.MFAEnabled = cur.MFAEnabled
	next.MFASecret = cur.MFASecret
	next.MFABackupCodes = cur.MFABackupCodes
	st.users[u.ID] = next
	return nil
}

func (r *userRepo) SetMFA(_ context.Context, userID string, enabled bool, secret string, codeHashes []string) error {
	defer r.s.lock()()
	u, ok := r.s.data().users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.MFAEnabled = enabled
	u.MFASecret = secret
	u.MFABackupCodes = append([]string(nil), codeHashes...)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) ActivateMFA(_ context.Context, userID string) (bool, error) {
	defer r.s.lock()()
	u, ok := r.s.data().users[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if u.MFASecret == "" || u.MFAEnabled {
		return false, nil
	}
	u.MFAEnabled = true
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *userRepo) ConsumeBackupCode(_ context.Context, userID, codeHash string) (bool, error) {
	defer r.s.lock()()
	u, ok := r.s.data().users[userID]
	if !ok {
		return false, repository.ErrNotFound
	}
	for i, c := range u.MFABackupCodes {
		if c == codeHash {
			u.MFABackupCodes = append(u.MFABackupCodes[:i:i], u.MFABackupCodes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepo) ClearRefreshToken(_ context.Context, token string) error {
	defer r.s.lock()()
	if token == "" {
		return nil
	}
	for _, u := range r.s.data().users {
		if u.RefreshToken == token {
			u.RefreshToken = ""
		}
	}
	return nil
}
