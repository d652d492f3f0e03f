package client

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Tokens is the pair handed out by a successful login.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type Client interface {
	Signup(ctx context.Context, email string, password []byte, name string) (*models.UserPublic, error)
	Login(ctx context.Context, email string, password []byte) (*Tokens, *models.UserPublic, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Ping(ctx context.Context) error
}
