// Package services holds the CLI's application logic. AuthService drives
// the server's session endpoints and keeps the resulting session in the
// local metadata store so that it survives restarts.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Session is the locally stored view of the signed-in user.
type Session struct {
	User            models.UserPublic
	AccessExpiresAt time.Time
}

type AuthService interface {
	Signup(ctx context.Context, email string, password []byte, name string) (*models.UserPublic, error)
	Login(ctx context.Context, email string, password []byte) (*models.UserPublic, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*Session, error)
	Ping(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

func NewAuthService(c client.Client, db *sql.DB) AuthService {
	return &authService{client: c, db: db}
}

func (a *authService) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) Signup(ctx context.Context, email string, password []byte, name string) (*models.UserPublic, error) {
	return a.client.Signup(ctx, email, password, name)
}

// Login authenticates against the server and replaces whatever session
// was stored before.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.UserPublic, error) {
	tokens, user, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := a.repo(tx)
		if err := r.Clear(ctx); err != nil {
			return err
		}
		if err := r.Set(ctx, keyAccessToken, []byte(tokens.AccessToken)); err != nil {
			return err
		}
		if err := r.Set(ctx, keyRefreshToken, []byte(tokens.RefreshToken)); err != nil {
			return err
		}
		return r.Set(ctx, keyUser, userJSON)
	})
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return user, nil
}

// Refresh swaps the stored access token for a fresh one. When the server
// rejects the refresh token the local session is dropped.
func (a *authService) Refresh(ctx context.Context) error {
	_, refresh, err := a.tokens(ctx)
	if err != nil {
		return err
	}

	access, err := a.client.Refresh(ctx, refresh)
	if err != nil {
		if isSessionGone(err) {
			if cerr := a.repo(a.db).Clear(ctx); cerr != nil {
				return errors.Join(err, cerr)
			}
		}
		return err
	}

	return a.repo(a.db).Set(ctx, keyAccessToken, []byte(access))
}

// Logout revokes the session on the server and forgets it locally. An
// expired access token is refreshed once before giving up. If the server
// cannot be reached the local session is kept so that logout can be retried.
func (a *authService) Logout(ctx context.Context) error {
	access, refresh, err := a.tokens(ctx)
	if err != nil {
		return err
	}

	err = a.client.Logout(ctx, access, refresh)
	if client.IsUnauthorized(err) {
		if fresh, rerr := a.client.Refresh(ctx, refresh); rerr == nil {
			err = a.client.Logout(ctx, fresh, refresh)
		}
	}
	if errors.Is(err, client.ErrUnavailable) {
		return err
	}

	if cerr := a.repo(a.db).Clear(ctx); cerr != nil {
		return errors.Join(err, cerr)
	}
	if isSessionGone(err) {
		return nil
	}
	return err
}

func (a *authService) Current(ctx context.Context) (*Session, error) {
	r := a.repo(a.db)

	raw, err := r.Get(ctx, keyUser)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotLoggedIn
	}

	s := &Session{}
	if err := json.Unmarshal(raw, &s.User); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}

	access, err := r.Get(ctx, keyAccessToken)
	if err != nil {
		return nil, err
	}
	s.AccessExpiresAt = expiresAt(string(access))
	return s, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) tokens(ctx context.Context) (access, refresh string, err error) {
	r := a.repo(a.db)

	accessRaw, err := r.Get(ctx, keyAccessToken)
	if err != nil {
		return "", "", err
	}
	refreshRaw, err := r.Get(ctx, keyRefreshToken)
	if err != nil {
		return "", "", err
	}
	if refreshRaw == nil {
		return "", "", ErrNotLoggedIn
	}
	return string(accessRaw), string(refreshRaw), nil
}

// expiresAt reads exp without checking the signature; the client does not
// hold the server's key and only uses this for display.
func expiresAt(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func isSessionGone(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}
