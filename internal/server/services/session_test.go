package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 8 * 24 * time.Hour,
		SessionValidityDuration:      7 * 24 * time.Hour,
		BcryptCost:                   bcrypt.MinCost,
	}
}

func newMemoryManager(t *testing.T, opts ...Option) (*SessionManager, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	m := repomanager.NewMemoryRepositoryManager()
	return NewSessionManager(nil, m, testConfig(), logging.Discard(), opts...), m
}

func TestSignup(t *testing.T) {
	s, m := newMemoryManager(t)
	ctx := context.Background()

	u, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "A", u.Name)
	assert.False(t, u.CreatedAt.IsZero())

	stored, err := m.Users(nil).GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw123456")))

	_, err = s.Signup(ctx, "a@x.com", "other", "B")
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Equal(t, "User already exists", common.MessageOf(err))
}

func TestSignup_Validation(t *testing.T) {
	s, _ := newMemoryManager(t)

	cases := [][3]string{
		{"", "pw", "A"},
		{"a@x.com", "", "A"},
		{"a@x.com", "pw", ""},
		{"   ", "pw", "A"},
	}
	for _, c := range cases {
		_, err := s.Signup(context.Background(), c[0], c[1], c[2])
		require.ErrorIs(t, err, common.ErrValidation, "%q", c)
		assert.Equal(t, "Email, password, and name are required", common.MessageOf(err))
	}

	_, err := s.Signup(context.Background(), "a@x.com", strings.Repeat("p", 73), "A")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSignup_ConcurrentSameEmail(t *testing.T) {
	s, _ := newMemoryManager(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Signup(context.Background(), "race@x.com", "pw", "R")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, common.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 7, conflicts)
}

func TestLogin(t *testing.T) {
	s, m := newMemoryManager(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)

	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, res.AccessToken, res.RefreshToken)
	assert.Equal(t, "a@x.com", res.User.Email)

	claims, err := s.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)

	row, err := m.RefreshTokens(nil).Find(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, row.UserID)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), row.ExpiresAt, time.Minute)

	second, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, second.RefreshToken)
	_, err = m.RefreshTokens(nil).Find(ctx, res.RefreshToken)
	assert.NoError(t, err, "earlier session survives a second login")
}

func TestLogin_Failures(t *testing.T) {
	s, _ := newMemoryManager(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)

	_, err = s.Login(ctx, "", "pw")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "Email and password are required", common.MessageOf(err))

	_, unknownErr := s.Login(ctx, "nobody@x.com", "pw123456")
	_, wrongErr := s.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, unknownErr, common.ErrAuth)
	assert.ErrorIs(t, wrongErr, common.ErrAuth)
	assert.Equal(t, common.MessageOf(unknownErr), common.MessageOf(wrongErr))
	assert.Equal(t, "Invalid credentials", common.MessageOf(wrongErr))
}

func TestRefresh(t *testing.T) {
	s, _ := newMemoryManager(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	access, err := s.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.AccessToken, access)

	claims, err := s.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	again, err := s.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err, "refresh token is not rotated")
	assert.NotEmpty(t, again)
}

func TestRefresh_Rejections(t *testing.T) {
	s, m := newMemoryManager(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := s.Refresh(ctx, " ")
		assert.ErrorIs(t, err, common.ErrValidation)
		assert.Equal(t, "Refresh token required", common.MessageOf(err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Refresh(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, common.ErrInvalidToken)
		assert.NotErrorIs(t, err, common.ErrTokenExpired)
		assert.Equal(t, "Invalid refresh token", common.MessageOf(err))
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := s.Refresh(ctx, res.AccessToken)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := s.Authenticate(ctx, res.RefreshToken)
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})

	t.Run("signed but never stored", func(t *testing.T) {
		orphan, _, err := auth.NewSigner("refresh-secret", time.Hour).Sign(res.User.ID, "")
		require.NoError(t, err)

		_, err = s.Refresh(ctx, orphan)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("after logout", func(t *testing.T) {
		other, err := s.Login(ctx, "a@x.com", "pw123456")
		require.NoError(t, err)
		require.NoError(t, s.Logout(ctx, other.RefreshToken))

		_, err = s.Refresh(ctx, other.RefreshToken)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})

	t.Run("user deleted", func(t *testing.T) {
		_, err := s.Signup(ctx, "gone@x.com", "pw", "G")
		require.NoError(t, err)
		gone, err := s.Login(ctx, "gone@x.com", "pw")
		require.NoError(t, err)

		m.DeleteUser(gone.User.ID)

		_, err = s.Refresh(ctx, gone.RefreshToken)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	})
}

func TestRefresh_ExpiredRowIsDeleted(t *testing.T) {
	s, m := newMemoryManager(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	// a row whose expiry passed while its JWT is still valid
	stale, _, err := auth.NewSigner("refresh-secret", time.Hour).Sign(res.User.ID, "")
	require.NoError(t, err)
	require.NoError(t, m.RefreshTokens(nil).Create(ctx, &models.RefreshToken{
		ID: "stale", UserID: res.User.ID, Token: stale, ExpiresAt: time.Now().Add(-time.Second),
	}))

	_, err = s.Refresh(ctx, stale)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Equal(t, "Refresh token expired", common.MessageOf(err))

	_, err = m.RefreshTokens(nil).Find(ctx, stale)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Refresh(ctx, stale)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.NotErrorIs(t, err, common.ErrTokenExpired)
}

func TestRefresh_SessionAgesOut(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s, m := newMemoryManager(t, WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	clock = func() time.Time { return now.Add(7*24*time.Hour - time.Second) }
	_, err = s.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)

	// past the stored session expiry, still inside the refresh JWT lifetime
	clock = func() time.Time { return now.Add(7*24*time.Hour + time.Second) }
	_, err = s.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	assert.Equal(t, "Refresh token expired", common.MessageOf(err))

	_, err = m.RefreshTokens(nil).Find(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.NotErrorIs(t, err, common.ErrTokenExpired)
	assert.Equal(t, "Invalid refresh token", common.MessageOf(err))
}

func TestNewSessionManager_SessionTTLFallsBackToRefreshTTL(t *testing.T) {
	cfg := testConfig()
	cfg.SessionValidityDuration = 0
	m := repomanager.NewMemoryRepositoryManager()
	s := NewSessionManager(nil, m, cfg, logging.Discard())
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	row, err := m.RefreshTokens(nil).Find(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(8*24*time.Hour), row.ExpiresAt, time.Minute)
}

func TestRefresh_JWTExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s, _ := newMemoryManager(t, WithClock(func() time.Time { return clock() }))
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	clock = func() time.Time { return now.Add(9 * 24 * time.Hour) }

	_, err = s.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = s.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.Equal(t, "Invalid or expired access token", common.MessageOf(err))
}

func TestLogout(t *testing.T) {
	s, m := newMemoryManager(t)
	ctx := context.Background()

	_, err := s.Signup(ctx, "a@x.com", "pw123456", "A")
	require.NoError(t, err)
	res, err := s.Login(ctx, "a@x.com", "pw123456")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, res.RefreshToken))
	_, err = m.RefreshTokens(nil).Find(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, s.Logout(ctx, res.RefreshToken), "logout is idempotent")
	require.NoError(t, s.Logout(ctx, "never-issued"))

	err = s.Logout(ctx, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	// access tokens outlive the session
	_, err = s.Authenticate(ctx, res.AccessToken)
	assert.NoError(t, err)
}

func TestAuthenticate_Empty(t *testing.T) {
	s, _ := newMemoryManager(t)

	_, err := s.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
	assert.Equal(t, "Access token required", common.MessageOf(err))
}

// --- store failures ---

func TestStoreFailuresAreInternal(t *testing.T) {
	boom := errors.New("connection reset")
	ctx := context.Background()

	t.Run("signup lookup", func(t *testing.T) {
		fm := newFakeManager()
		fm.users.getErr = boom
		s := NewSessionManager(nil, fm, testConfig(), logging.Discard())

		_, err := s.Signup(ctx, "a@x.com", "pw", "A")
		assert.ErrorIs(t, err, common.ErrInternal)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "Internal server error", common.MessageOf(err))
	})

	t.Run("signup create race", func(t *testing.T) {
		fm := newFakeManager()
		fm.users.createErr = common.ErrorAlreadyExists
		s := NewSessionManager(nil, fm, testConfig(), logging.Discard())

		_, err := s.Signup(ctx, "a@x.com", "pw", "A")
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("login token insert", func(t *testing.T) {
		fm := newFakeManager()
		hash, _ := auth.NewBcryptHasher(bcrypt.MinCost).Hash("pw")
		fm.users.user = &models.User{ID: "u1", Email: "a@x.com", PasswordHash: hash}
		fm.tokens.createErr = boom
		s := NewSessionManager(nil, fm, testConfig(), logging.Discard())

		_, err := s.Login(ctx, "a@x.com", "pw")
		assert.ErrorIs(t, err, common.ErrInternal)
	})

	t.Run("logout delete", func(t *testing.T) {
		fm := newFakeManager()
		fm.tokens.deleteErr = boom
		s := NewSessionManager(nil, fm, testConfig(), logging.Discard())

		assert.ErrorIs(t, s.Logout(ctx, "tok"), common.ErrInternal)
	})

	t.Run("refresh find", func(t *testing.T) {
		fm := newFakeManager()
		fm.tokens.findErr = boom
		s := NewSessionManager(nil, fm, testConfig(), logging.Discard())

		tok, _, err := auth.NewSigner("refresh-secret", time.Hour).Sign("u1", "")
		require.NoError(t, err)

		_, err = s.Refresh(ctx, tok)
		assert.ErrorIs(t, err, common.ErrInternal)
	})
}

func TestSignup_RunsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()

		s := NewSessionManager(db, newFakeManager(), testConfig(), logging.Discard())
		_, err := s.Signup(context.Background(), "a@x.com", "pw", "A")
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on conflict", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		fm := newFakeManager()
		fm.users.user = &models.User{ID: "u1", Email: "a@x.com"}
		s := NewSessionManager(db, fm, testConfig(), logging.Discard())
		_, err := s.Signup(context.Background(), "a@x.com", "pw", "A")
		require.ErrorIs(t, err, common.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
