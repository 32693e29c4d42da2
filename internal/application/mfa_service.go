package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/helpers"
)

const (
	backupCodeCount = 10
	// covers the accepted window: one period either side of the current one
	totpReplayTTL = 90 * time.Second
)

type MFAService struct {
	store  repo.Store
	cache  cacheAside
	issuer string
	logger *logrus.Logger
	now    func() time.Time
}

func NewMFAService(store repo.Store, cache repo.Cache, issuer string, logger *logrus.Logger) *MFAService {
	ca := newCacheAside(cache, logger)
	return &MFAService{store: store, cache: ca, issuer: issuer, logger: ca.logger, now: time.Now}
}

// MFASetup is shown to the user once. BackupCodes are never retrievable again.
type MFASetup struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauthUrl"`
	QRCode      string   `json:"qrCode"`
	BackupCodes []string `json:"backupCodes"`
}

// Enable generates a secret and backup codes. MFA stays off until VerifyAndEnable.
func (s *MFAService) Enable(ctx context.Context, userID string) (*MFASetup, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.MFAEnabled {
		return nil, apperror.Validation("MFA is already enabled")
	}
	key, err := helpers.GenerateTOTP(s.issuer, u.Email)
	if err != nil {
		return nil, apperror.Internal("mfa setup failed", err)
	}
	qr, err := helpers.QRDataURL(key)
	if err != nil {
		return nil, apperror.Internal("mfa setup failed", err)
	}
	codes, err := helpers.GenerateBackupCodes(backupCodeCount)
	if err != nil {
		return nil, apperror.Internal("mfa setup failed", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = helpers.HashCode(c)
	}

	if err := s.store.Users().SetMFA(ctx, u.ID, false, key.Secret(), hashes); err != nil {
		return nil, storeErr(err, "user")
	}
	return &MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL(), QRCode: qr, BackupCodes: codes}, nil
}

func (s *MFAService) VerifyAndEnable(ctx context.Context, userID, token string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if u.MFASecret == "" {
		return apperror.Validation("MFA setup not initiated")
	}
	if u.MFAEnabled {
		return apperror.Validation("MFA is already enabled")
	}
	if !s.checkTOTP(ctx, u, token) {
		return apperror.Validation("invalid token")
	}
	ok, err := s.store.Users().ActivateMFA(ctx, u.ID)
	if err != nil {
		return storeErr(err, "user")
	}
	if !ok {
		return apperror.Validation("MFA is already enabled")
	}
	return nil
}

func (s *MFAService) Disable(ctx context.Context, userID, token, backupCode string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if !u.MFAEnabled {
		return apperror.Validation("MFA is not enabled")
	}
	ok, err := s.secondFactor(ctx, u, token, backupCode)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Validation("invalid token or backup code")
	}
	return storeErr(s.store.Users().SetMFA(ctx, u.ID, false, "", nil), "user")
}

func (s *MFAService) Verify(ctx context.Context, userID, token, backupCode string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if !u.MFAEnabled {
		return apperror.Validation("MFA is not enabled")
	}
	ok, err := s.secondFactor(ctx, u, token, backupCode)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Validation("invalid token or backup code")
	}
	return nil
}

// secondFactor accepts a fresh TOTP or consumes an unused backup code.
func (s *MFAService) secondFactor(ctx context.Context, u *entity.User, token, backupCode string) (bool, error) {
	if token != "" && s.checkTOTP(ctx, u, token) {
		return true, nil
	}
	if backupCode == "" {
		return false, nil
	}
	h := helpers.HashCode(backupCode)
	ok, err := s.store.Users().ConsumeBackupCode(ctx, u.ID, h)
	if err != nil {
		return false, storeErr(err, "user")
	}
	return ok, nil
}

// checkTOTP validates token and marks it used. The replay guard fails open.
func (s *MFAService) checkTOTP(ctx context.Context, u *entity.User, token string) bool {
	if !helpers.ValidateTOTP(token, u.MFASecret, s.now()) {
		return false
	}
	key := mfaUsedKey(u.ID, token)
	var used bool
	if s.cache.get(ctx, key, &used) {
		return false
	}
	s.cache.set(ctx, key, true, totpReplayTTL)
	return true
}

func (s *MFAService) user(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}
