package user

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupService(t *testing.T) (*Service, *auth.JWTManager, *DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = bunDB.NewCreateTable().Model((*models.User)(nil)).Exec(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	tokens, err := auth.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)

	store := &DB{Bun: bunDB}
	return NewService(store, tokens, logger.Discard()), tokens, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens, _ := setupService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, models.RegisterRequest{Username: "linh", Email: "Linh@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, "linh@example.com", u.Email)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	res, err := svc.Login(ctx, models.LoginRequest{Username: "linh", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)

	id, err := tokens.Verify(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, models.RoleUser, id.Role)

	got, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "linh", got.Username)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "", Email: "a@example.com", Password: "longenough"})
	assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))

	_, err = svc.Register(ctx, models.RegisterRequest{Username: "a", Email: "nope", Password: "longenough"})
	assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))

	_, err = svc.Register(ctx, models.RegisterRequest{Username: "a", Email: "a@example.com", Password: "short"})
	assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))

	_, err = svc.Register(ctx, models.RegisterRequest{Username: "a", Email: "a@example.com", Password: "longenough"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, models.RegisterRequest{Username: "b", Email: "a@example.com", Password: "longenough"})
	assert.Equal(t, apperror.Validation, apperror.CategoryOf(err))
}

func TestLoginFailures(t *testing.T) {
	svc, _, store := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Username: "linh", Email: "linh@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Username: "linh", Password: "wrong-horse"})
	assert.Equal(t, apperror.Unauthorized, apperror.CategoryOf(err))

	_, err = svc.Login(ctx, models.LoginRequest{Username: "ghost", Password: "whatever"})
	assert.Equal(t, apperror.Unauthorized, apperror.CategoryOf(err))

	// SSO accounts have no local password
	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "kc-1", Username: "sso", Email: "sso@example.com", Role: models.RoleUser, AuthProvider: models.AuthProviderOIDC, CreatedAt: time.Now()}))
	_, err = svc.Login(ctx, models.LoginRequest{Username: "sso", Password: ""})
	assert.Equal(t, apperror.Unauthorized, apperror.CategoryOf(err))

	_, err = svc.GetUser(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrUserNotFound))
}
