package application

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/helpers"
)

var backupCodePattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestEnableGeneratesSetup(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	u := e.user(t, "ada@example.com", entity.RoleUser)
	s := NewMFAService(e.store, e.cache, "Test Shop", e.log)

	setup, err := s.Enable(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.OTPAuthURL, "otpauth://totp/"))
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))

	require.Len(t, setup.BackupCodes, 10)
	seen := map[string]bool{}
	for _, c := range setup.BackupCodes {
		assert.Regexp(t, backupCodePattern, c)
		seen[c] = true
	}
	assert.Len(t, seen, 10)

	stored, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.MFAEnabled)
	assert.Equal(t, setup.Secret, stored.MFASecret)
	require.Len(t, stored.MFABackupCodes, 10)
	assert.NotContains(t, stored.MFABackupCodes, setup.BackupCodes[0])
	assert.Contains(t, stored.MFABackupCodes, helpers.HashCode(setup.BackupCodes[0]))
}

func TestVerifyAndEnable(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	u := e.user(t, "ada@example.com", entity.RoleUser)
	s := NewMFAService(e.store, e.cache, "Test Shop", e.log)

	requireKind(t, s.VerifyAndEnable(ctx, u.ID, "123456"), apperror.KindValidation)

	setup, err := s.Enable(ctx, u.ID)
	require.NoError(t, err)
	requireKind(t, s.VerifyAndEnable(ctx, u.ID, "12345"), apperror.KindValidation)

	code, err := helpers.TOTPCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.VerifyAndEnable(ctx, u.ID, code))

	stored, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.MFAEnabled)

	// accepted once, rejected on replay
	requireKind(t, s.Verify(ctx, u.ID, code, ""), apperror.KindValidation)
	_, err = s.Enable(ctx, u.ID)
	requireKind(t, err, apperror.KindValidation)
}

func TestBackupCodesAreSingleUse(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	u := e.user(t, "ada@example.com", entity.RoleUser)
	s := NewMFAService(e.store, e.cache, "Test Shop", e.log)

	setup, err := s.Enable(ctx, u.ID)
	require.NoError(t, err)
	code, err := helpers.TOTPCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.VerifyAndEnable(ctx, u.ID, code))

	backup := strings.ToLower(setup.BackupCodes[3])
	require.NoError(t, s.Verify(ctx, u.ID, "", backup))
	requireKind(t, s.Verify(ctx, u.ID, "", backup), apperror.KindValidation)

	stored, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, stored.MFABackupCodes, 9)
}

func TestDisable(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	u := e.user(t, "ada@example.com", entity.RoleUser)
	s := NewMFAService(e.store, e.cache, "Test Shop", e.log)

	requireKind(t, s.Disable(ctx, u.ID, "", "ABCDEF12"), apperror.KindValidation)

	setup, err := s.Enable(ctx, u.ID)
	require.NoError(t, err)
	code, err := helpers.TOTPCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.VerifyAndEnable(ctx, u.ID, code))

	requireKind(t, s.Disable(ctx, u.ID, "", "NOTACODE"), apperror.KindValidation)
	require.NoError(t, s.Disable(ctx, u.ID, "", setup.BackupCodes[0]))

	stored, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.MFAEnabled)
	assert.Empty(t, stored.MFASecret)
	assert.Empty(t, stored.MFABackupCodes)
}

func TestReplayGuardFailsOpen(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	u := e.user(t, "ada@example.com", entity.RoleUser)
	s := NewMFAService(e.store, downCache{}, "Test Shop", e.log)

	setup, err := s.Enable(ctx, u.ID)
	require.NoError(t, err)
	code, err := helpers.TOTPCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.VerifyAndEnable(ctx, u.ID, code))
	assert.NoError(t, s.Verify(ctx, u.ID, code, ""))
}

func TestStaleProfileUpdateKeepsBackupCodeSpent(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	u := e.user(t, "ada@example.com", entity.RoleUser)
	s := NewMFAService(e.store, e.cache, "Test Shop", e.log)

	setup, err := s.Enable(ctx, u.ID)
	require.NoError(t, err)
	code, err := helpers.TOTPCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.VerifyAndEnable(ctx, u.ID, code))

	stale, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, s.Verify(ctx, u.ID, "", setup.BackupCodes[0]))

	stale.FirstName = "Augusta"
	stale.MFAEnabled = false
	require.NoError(t, e.store.Users().Update(ctx, stale))

	requireKind(t, s.Verify(ctx, u.ID, "", setup.BackupCodes[0]), apperror.KindValidation)
	stored, err := e.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", stored.FirstName)
	assert.True(t, stored.MFAEnabled)
	assert.Len(t, stored.MFABackupCodes, 9)
}
