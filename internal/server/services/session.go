// Package services contains server-side business logic. SessionManager
// implements the credential lifecycle: signup, login, logout, refresh and
// access-token authentication.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

const (
	OpSignup       = "signup"
	OpLogin        = "login"
	OpLogout       = "logout"
	OpRefresh      = "refresh"
	OpAuthenticate = "authenticate"
)

const (
	msgSignupFieldsRequired = "Email, password, and name are required"
	msgPasswordTooLong      = "Password must be at most 72 bytes"
	msgUserExists           = "User already exists"
	msgLoginFieldsRequired  = "Email and password are required"
	msgInvalidCredentials   = "Invalid credentials"
	msgRefreshRequired      = "Refresh token required"
	msgInvalidRefresh       = "Invalid refresh token"
	msgRefreshExpired       = "Refresh token expired"
	msgAccessRequired       = "Access token required"
	msgInvalidAccess        = "Invalid or expired access token"
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         models.UserPublic
}

// SessionManager issues and revokes sessions. A session is live while its
// refresh-token row exists and has not expired; deleting the row is the
// only way to revoke it. Access tokens are stateless and stay valid until
// their own expiry.
type SessionManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	access      *auth.Signer
	refresh     *auth.Signer
	hasher      *auth.BcryptHasher
	sessionTTL  time.Duration
	now         func() time.Time
	log         logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

type Option func(*SessionManager)

// WithClock sets the time source for token issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *SessionManager) { s.now = now }
}

// NewSessionManager wires the manager to its stores and signing secrets.
// db may be nil when m is the in-memory manager. A zero
// SessionValidityDuration falls back to the refresh JWT lifetime.
func NewSessionManager(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger, opts ...Option) *SessionManager {
	s := &SessionManager{
		db:          db,
		repomanager: m,
		hasher:      auth.NewBcryptHasher(cfg.BcryptCost),
		sessionTTL:  cfg.SessionValidityDuration,
		now:         time.Now,
		log:         log.With("module", "services"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = cfg.RefreshTokenValidityDuration
	}
	s.access = auth.NewSigner(cfg.AccessTokenSecret, cfg.AccessTokenValidityDuration, auth.WithClock(s.now))
	s.refresh = auth.NewSigner(cfg.RefreshTokenSecret, cfg.RefreshTokenValidityDuration, auth.WithClock(s.now))
	return s
}

// Signup registers a user and returns its public projection.
func (s *SessionManager) Signup(ctx context.Context, email, password, name string) (*models.UserPublic, error) {
	if blank(email) || blank(password) || blank(name) {
		return nil, common.New(common.KindValidation, OpSignup, msgSignupFieldsRequired)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, common.New(common.KindValidation, OpSignup, msgPasswordTooLong)
		}
		return nil, s.internal(ctx, OpSignup, err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    s.now().UTC(),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return common.New(common.KindConflict, OpSignup, msgUserExists)
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		// the unique constraint catches a concurrent signup that passed the lookup
		if _, err := repo.Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.New(common.KindConflict, OpSignup, msgUserExists)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if common.KindOf(err) == common.KindConflict {
			return nil, err
		}
		return nil, s.internal(ctx, OpSignup, err)
	}

	s.log.Info(ctx, "user created", "user_id", user.ID)
	pub := user.Public()
	return &pub, nil
}

// Login checks credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *SessionManager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if blank(email) || blank(password) {
		return nil, common.New(common.KindValidation, OpLogin, msgLoginFieldsRequired)
	}

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummy())
			return nil, common.New(common.KindAuth, OpLogin, msgInvalidCredentials)
		}
		return nil, s.internal(ctx, OpLogin, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.New(common.KindAuth, OpLogin, msgInvalidCredentials)
	}

	accessToken, _, err := s.access.Sign(user.ID, user.Email)
	if err != nil {
		return nil, s.internal(ctx, OpLogin, err)
	}
	refreshToken, _, err := s.refresh.Sign(user.ID, "")
	if err != nil {
		return nil, s.internal(ctx, OpLogin, err)
	}

	now := s.now().UTC()
	row := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.repomanager.RefreshTokens(s.db).Create(ctx, row); err != nil {
		return nil, s.internal(ctx, OpLogin, err)
	}

	s.log.Info(ctx, "session opened", "user_id", user.ID)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// Logout revokes the session behind refreshToken. Revoking an unknown or
// already revoked token succeeds.
func (s *SessionManager) Logout(ctx context.Context, refreshToken string) error {
	if blank(refreshToken) {
		return common.New(common.KindValidation, OpLogout, msgRefreshRequired)
	}

	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return s.internal(ctx, OpLogout, err)
	}
	return nil
}

// Refresh exchanges a live refresh token for a new access token. The
// refresh token itself is not rotated.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if blank(refreshToken) {
		return "", common.New(common.KindValidation, OpRefresh, msgRefreshRequired)
	}

	claims, err := s.refresh.Verify(refreshToken)
	if err != nil {
		return "", common.Wrap(common.KindInvalidToken, OpRefresh, msgInvalidRefresh, err)
	}

	repo := s.repomanager.RefreshTokens(s.db)
	row, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.New(common.KindInvalidToken, OpRefresh, msgInvalidRefresh)
		}
		return "", s.internal(ctx, OpRefresh, err)
	}
	if row.UserID != claims.UserID {
		return "", common.New(common.KindInvalidToken, OpRefresh, msgInvalidRefresh)
	}

	if row.Expired(s.now()) {
		if err := repo.Delete(ctx, refreshToken); err != nil {
			return "", s.internal(ctx, OpRefresh, err)
		}
		return "", common.New(common.KindTokenExpired, OpRefresh, msgRefreshExpired)
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.New(common.KindInvalidToken, OpRefresh, msgInvalidRefresh)
		}
		return "", s.internal(ctx, OpRefresh, err)
	}

	accessToken, _, err := s.access.Sign(user.ID, user.Email)
	if err != nil {
		return "", s.internal(ctx, OpRefresh, err)
	}
	return accessToken, nil
}

// Authenticate verifies an access token and returns its claims.
func (s *SessionManager) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	if blank(accessToken) {
		return nil, common.New(common.KindUnauthenticated, OpAuthenticate, msgAccessRequired)
	}

	claims, err := s.access.Verify(accessToken)
	if err != nil {
		return nil, common.Wrap(common.KindUnauthenticated, OpAuthenticate, msgInvalidAccess, err)
	}
	return claims, nil
}

// internal logs the cause and returns the opaque error callers see.
func (s *SessionManager) internal(ctx context.Context, op string, cause error) error {
	s.log.Error(ctx, "session operation failed", "op", op, "error", cause)
	return common.Wrap(common.KindInternal, op, common.InternalMessage, cause)
}

// dummy is a hash compared against on unknown emails, so that the response
// time does not reveal whether the account exists.
func (s *SessionManager) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("gophauth-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}
