package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type mockAuthRepo struct {
	user             *models.User
	findErr          error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func newTestAuthService(t *testing.T, active bool) (*AuthService, *mockAuthRepo) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{user: &models.User{
		ID:           "user-1",
		Email:        "prof@example.com",
		PasswordHash: string(hash),
		FullName:     "Prof. Ana",
		Role:         models.RoleTeacher,
		Active:       active,
	}}
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "classquest",
	})
	return svc, repo
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, repo := newTestAuthService(t, true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.True(t, repo.lastLoginUpdated)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "other@example.com", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	svc, _ := newTestAuthService(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestAuthServiceLoginStorageFailure(t *testing.T) {
	svc, repo := newTestAuthService(t, true)
	repo.findErr = errors.New("dial tcp: connection refused")

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "prof@example.com", Password: "password123"})
	require.Error(t, err)
	assert.True(t, appErrors.FromError(err).Retryable())
}

func TestAuthServiceValidateTokenRejectsForeignTokens(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "classquest"},
	})
	signed, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID:           "user-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	signed, err = wrongIssuer.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceMe(t *testing.T) {
	svc, _ := newTestAuthService(t, true)

	info, err := svc.Me(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Prof. Ana", info.FullName)

	_, err = svc.Me(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
