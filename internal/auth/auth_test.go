package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m, err := NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := m.Issue(models.User{ID: "u-1", Email: "a@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	id, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Email: "a@example.com", Role: models.RoleAdmin}, id)
}

func TestVerifyRejects(t *testing.T) {
	m, err := NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	user := models.User{ID: "u-1", Role: models.RoleUser}

	t.Run("expired", func(t *testing.T) {
		token, _, err := m.Issue(user)
		require.NoError(t, err)
		m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { m.now = time.Now }()
		_, err = m.Verify(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTManager("other-secret", time.Hour)
		require.NoError(t, err)
		token, _, err := other.Issue(user)
		require.NoError(t, err)
		_, err = m.Verify(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Role:             models.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Verify(context.Background(), raw)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Verify(context.Background(), "not-a-token")
		assert.Error(t, err)
	})
}

func TestNewJWTManagerNeedsSecret(t *testing.T) {
	_, err := NewJWTManager("", time.Hour)
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Token abc")
	_, err = ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "bearer abc")
	token, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPasswordHash("s3cret!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

type stubVerifier struct {
	id  Identity
	err error
}

func (s stubVerifier) Verify(context.Context, string) (Identity, error) {
	return s.id, s.err
}

func TestMiddlewareAndRequireRole(t *testing.T) {
	log := logger.Discard()
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "u-1", UserID(r.Context()))
		assert.Equal(t, models.RoleUser, id.Role)
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(v Verifier, header string, roles ...models.Role) int {
		h := Middleware(v, log)(RequireRole(log, roles...)(final))
		r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	user := stubVerifier{id: Identity{UserID: "u-1", Role: models.RoleUser}}
	assert.Equal(t, http.StatusNoContent, serve(user, "Bearer t", models.RoleUser))
	assert.Equal(t, http.StatusForbidden, serve(user, "Bearer t", models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, serve(user, "", models.RoleUser))
	assert.Equal(t, http.StatusUnauthorized, serve(stubVerifier{err: assertErr}, "Bearer t", models.RoleUser))
}

var assertErr = apperror.NewUnauthorized("bad token")

func TestRequireRoleWithoutIdentity(t *testing.T) {
	h := RequireRole(logger.Discard(), models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not be reached")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type stubUsers map[string]models.User

func (s stubUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return &u, nil
	}
	return nil, apperror.UserNotFound(id)
}

func TestOIDCVerifierResolvesLocalRole(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const issuer = "https://sso.example.test/realms/booking"
	v := &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}, &oidc.Config{SkipClientIDCheck: true}),
		users:    stubUsers{"kc-1": {ID: "kc-1", Email: "p@example.com", Role: models.RoleProvider}},
	}

	sign := func(sub string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
			"iss": issuer,
			"sub": sub,
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
		})
		raw, err := token.SignedString(key)
		require.NoError(t, err)
		return raw
	}

	id, err := v.Verify(context.Background(), sign("kc-1"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleProvider, id.Role)
	assert.Equal(t, "p@example.com", id.Email)

	_, err = v.Verify(context.Background(), sign("kc-unknown"))
	assert.Error(t, err)

	_, err = v.Verify(context.Background(), "garbage")
	assert.Error(t, err)
}
