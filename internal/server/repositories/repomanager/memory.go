package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out the same in-memory stores whatever
// DBTX it is given; state lives for the lifetime of the manager.
type MemoryRepositoryManager struct {
	users  *users.MemoryRepository
	tokens *refreshtokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:  users.NewMemoryRepository(),
		tokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.tokens }

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// DeleteUser stands in for the out-of-band admin removal of a user, which
// no session operation performs. Like ON DELETE CASCADE in the SQL schemas
// it also drops the user's refresh tokens.
func (m *MemoryRepositoryManager) DeleteUser(id string) {
	m.users.Delete(id)
	m.tokens.DeleteByUser(id)
}
