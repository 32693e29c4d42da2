package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/helpers"
	mailtpl "github.com/oksasatya/go-ddd-ecommerce/pkg/mailer/templates"
)

const minPasswordLen = 8

type AuthService struct {
	store        repo.Store
	jwt          *helpers.JWTManager
	cache        cacheAside
	mfa          *MFAService
	notifier     Notifier
	logger       *logrus.Logger
	blacklistTTL time.Duration
	now          func() time.Time
}

func NewAuthService(store repo.Store, cache repo.Cache, jwt *helpers.JWTManager, mfa *MFAService, notifier Notifier, blacklistTTL time.Duration, logger *logrus.Logger) *AuthService {
	ca := newCacheAside(cache, logger)
	return &AuthService{
		store:        store,
		jwt:          jwt,
		cache:        ca,
		mfa:          mfa,
		notifier:     notifier,
		logger:       ca.logger,
		blacklistTTL: blacklistTTL,
		now:          time.Now,
	}
}

type TokenPair struct {
	AccessToken        string    `json:"accessToken"`
	AccessTokenExpiry  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken       string    `json:"refreshToken"`
	RefreshTokenExpiry time.Time `json:"refreshTokenExpiresAt"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	User   *entity.User `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type LoginInput struct {
	Email      string
	Password   string
	MFAToken   string
	BackupCode string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperror.Validation("email is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperror.Validation("password must be at least 8 characters")
	}
	hash, err := helpers.HashPassword(in.Password)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return nil, apperror.Validation("password is too long")
	}
	if err != nil {
		return nil, apperror.Internal("hash password", err)
	}
	now := s.now().UTC()
	u := &entity.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         entity.RoleUser,
		IsActive:     true,
		LastActive:   now,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, storeErr(err, "user")
	}

	pair, err := s.rotate(ctx, u)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		n := Notification{
			To:       u.Email,
			Template: TemplateWelcome,
			Data:     mailtpl.ToMap(mailtpl.NewEmailData(u.Email, mailtpl.WithName(u.FirstName))),
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.WithError(err).WithField("user_id", u.ID).Warn("welcome notification failed")
		}
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

// Login checks credentials and, for MFA users, the second factor before rotating tokens.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.Auth("invalid credentials")
		}
		return nil, storeErr(err, "user")
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, in.Password) {
		return nil, apperror.Auth("invalid credentials")
	}
	if !u.IsActive {
		return nil, apperror.Auth("account is deactivated")
	}

	if u.MFAEnabled {
		mfaRequired := map[string]any{"mfaRequired": true}
		if in.MFAToken == "" && in.BackupCode == "" {
			return nil, apperror.Auth("mfa token required").WithDetails(mfaRequired)
		}
		ok, err := s.mfa.secondFactor(ctx, u, in.MFAToken, in.BackupCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.Auth("invalid mfa token").WithDetails(mfaRequired)
		}
	}

	u.LastActive = s.now().UTC()
	pair, err := s.rotate(ctx, u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

// Refresh exchanges the current refresh token for a new pair. Only the most
// recently issued refresh token is accepted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperror.Validation("refresh token is required")
	}
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Auth("invalid refresh token")
	}
	u, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.Auth("invalid refresh token")
		}
		return nil, storeErr(err, "user")
	}
	if u.RefreshToken == "" || u.RefreshToken != refreshToken {
		return nil, apperror.Auth("invalid refresh token")
	}
	if !u.IsActive {
		return nil, apperror.Auth("account is deactivated")
	}
	pair, err := s.rotate(ctx, u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

// Logout blacklists the access token and drops the stored refresh token.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		s.cache.set(ctx, blacklistKey(accessToken), true, s.blacklistTTL)
	}
	if refreshToken != "" {
		if err := s.store.Users().ClearRefreshToken(ctx, refreshToken); err != nil {
			return storeErr(err, "user")
		}
	}
	return nil
}

// IsBlacklisted fails open: a cache outage lets the token through.
func (s *AuthService) IsBlacklisted(ctx context.Context, accessToken string) bool {
	var v bool
	return s.cache.get(ctx, blacklistKey(accessToken), &v)
}

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*entity.User, error) {
	if accessToken == "" {
		return nil, apperror.Auth("authentication required")
	}
	if s.IsBlacklisted(ctx, accessToken) {
		return nil, apperror.Auth("token no longer valid")
	}
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return nil, apperror.Auth("invalid token")
	}
	u, err := s.store.Users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.Auth("user not found")
		}
		return nil, storeErr(err, "user")
	}
	if !u.IsActive {
		return nil, apperror.Auth("account is deactivated")
	}
	return u, nil
}

// rotate issues a fresh pair and stores the refresh token, replacing any previous session.
func (s *AuthService) rotate(ctx context.Context, u *entity.User) (TokenPair, error) {
	access, aexp, err := s.jwt.GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return TokenPair{}, apperror.Internal("token generation failed", err)
	}
	refresh, rexp, err := s.jwt.GenerateRefreshToken(u.ID, string(u.Role))
	if err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		return TokenPair{}, apperror.Internal("token generation failed", err)
	}
	u.RefreshToken = refresh
	if err := s.store.Users().Update(ctx, u); err != nil {
		return TokenPair{}, storeErr(err, "user")
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}
