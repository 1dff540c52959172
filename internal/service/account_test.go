package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/reelmark/internal/model"
	"github.com/user/reelmark/internal/repository"
)

const testSecret = "test-secret"

func newTestAccounts() *AccountService {
	return NewAccountService(repository.NewMemoryUserRepository(), testSecret, time.Hour, nil)
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("should create account with normalized email", func(t *testing.T) {
		s := newTestAccounts()
		a, err := s.Register(ctx, "  Ada@Example.com ", "correct-horse", "Ada")
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, "ada@example.com", a.Email)
		assert.Equal(t, "Ada", a.Name)
	})

	t.Run("should default name to email local part", func(t *testing.T) {
		s := newTestAccounts()
		a, err := s.Register(ctx, "grace@example.com", "correct-horse", "")
		require.NoError(t, err)
		assert.Equal(t, "grace", a.Name)
	})

	t.Run("should reject taken email", func(t *testing.T) {
		s := newTestAccounts()
		_, err := s.Register(ctx, "ada@example.com", "correct-horse", "Ada")
		require.NoError(t, err)
		_, err = s.Register(ctx, "ADA@example.com", "another-pass", "Ada 2")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("should validate input", func(t *testing.T) {
		s := newTestAccounts()
		_, err := s.Register(ctx, "not-an-email", "correct-horse", "")
		assert.ErrorIs(t, err, ErrInvalid)
		_, err = s.Register(ctx, "ada@example.com", "short", "")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestAccountService_Login(t *testing.T) {
	ctx := context.Background()
	s := newTestAccounts()
	registered, err := s.Register(ctx, "ada@example.com", "correct-horse", "Ada")
	require.NoError(t, err)

	t.Run("should issue a verifiable token", func(t *testing.T) {
		token, a, err := s.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, a.ID)

		verified, err := s.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, registered, verified)
	})

	t.Run("should reject wrong password or unknown email", func(t *testing.T) {
		_, _, err := s.Login(ctx, "ada@example.com", "wrong-horse")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		_, _, err = s.Login(ctx, "bob@example.com", "correct-horse")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("should reject revoked token", func(t *testing.T) {
		token, _, err := s.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)
		require.NoError(t, s.Logout(token))

		_, err = s.Verify(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestAccountService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject expired token", func(t *testing.T) {
		s := newTestAccounts()
		_, err := s.Register(ctx, "ada@example.com", "correct-horse", "Ada")
		require.NoError(t, err)
		token, _, err := s.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)

		s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = s.Verify(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("should reject token signed with another secret", func(t *testing.T) {
		s := newTestAccounts()
		claims := &Claims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		require.NoError(t, err)

		_, err = s.Verify(forged)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("should reject garbage", func(t *testing.T) {
		_, err := newTestAccounts().Verify("not.a.token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestAccountService_Refresh(t *testing.T) {
	ctx := context.Background()
	s := newTestAccounts()
	registered, err := s.Register(ctx, "ada@example.com", "correct-horse", "Ada")
	require.NoError(t, err)
	token, _, err := s.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	fresh, err := s.Refresh(token)
	require.NoError(t, err)
	assert.Empty(t, fresh, "token younger than half its lifetime is kept")

	s.now = func() time.Time { return time.Now().Add(40 * time.Minute) }
	fresh, err = s.Refresh(token)
	require.NoError(t, err)
	require.NotEmpty(t, fresh)

	a, err := s.Verify(fresh)
	require.NoError(t, err)
	assert.Equal(t, registered, a)
}

func TestAccountService_CurrentUser(t *testing.T) {
	ctx := context.Background()
	s := newTestAccounts()
	registered, err := s.Register(ctx, "ada@example.com", "correct-horse", "Ada")
	require.NoError(t, err)

	t.Run("should resolve the account in context", func(t *testing.T) {
		a, err := s.CurrentUser(model.WithAccount(ctx, registered))
		require.NoError(t, err)
		assert.Equal(t, registered, a)
	})

	t.Run("should fail without account", func(t *testing.T) {
		_, err := s.CurrentUser(ctx)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("should fail for deleted account", func(t *testing.T) {
		_, err := s.CurrentUser(model.WithAccount(ctx, &model.Account{ID: "ghost"}))
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}
