package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type fakeUsersRepo struct {
	user      *models.User
	getErr    error
	createErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return u, nil
}

func (f *fakeUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.user == nil || f.user.Email != email {
		return nil, common.ErrorNotFound
	}
	return f.user, nil
}

func (f *fakeUsersRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.user == nil || f.user.ID != id {
		return nil, common.ErrorNotFound
	}
	return f.user, nil
}

type fakeTokensRepo struct {
	row       *models.RefreshToken
	createErr error
	findErr   error
	deleteErr error
}

func (f *fakeTokensRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	return f.createErr
}

func (f *fakeTokensRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.row == nil {
		return nil, common.ErrorNotFound
	}
	return f.row, nil
}

func (f *fakeTokensRepo) Delete(ctx context.Context, token string) error {
	return f.deleteErr
}

type fakeManager struct {
	users  *fakeUsersRepo
	tokens *fakeTokensRepo
}

func newFakeManager() *fakeManager {
	return &fakeManager{users: &fakeUsersRepo{}, tokens: &fakeTokensRepo{}}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.tokens }
