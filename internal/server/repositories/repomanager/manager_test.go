package repomanager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func TestOpen_SQLiteMigratesAndServes(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db") + "?_pragma=foreign_keys(1)"

	db, m, err := Open(ctx, "sqlite", dsn)
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { _ = db.Close() })
	assert.IsType(t, &SQLiteRepositoryManager{}, m)

	now := time.Now().UTC()
	_, err = m.Users(db).Create(ctx, &models.User{ID: "u1", Email: "a@x.com", PasswordHash: "h", Name: "A", CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, m.RefreshTokens(db).Create(ctx, &models.RefreshToken{ID: "r1", UserID: "u1", Token: "t", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))

	got, err := m.RefreshTokens(db).Find(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	// migrations are idempotent
	require.NoError(t, m.RunMigrations(ctx, db))
}

func TestOpen_Memory(t *testing.T) {
	db, m, err := Open(context.Background(), "memory", "")
	require.NoError(t, err)
	assert.Nil(t, db)

	mem, ok := m.(*MemoryRepositoryManager)
	require.True(t, ok)

	ctx := context.Background()
	_, err = m.Users(nil).Create(ctx, &models.User{ID: "u1", Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, m.RefreshTokens(nil).Create(ctx, &models.RefreshToken{ID: "r1", UserID: "u1", Token: "t"}))

	mem.DeleteUser("u1")
	_, err = m.RefreshTokens(nil).Find(ctx, "t")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = m.Users(nil).GetUserByID(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database driver")
}
