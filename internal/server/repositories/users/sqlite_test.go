package users

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "users.db") + "?_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.SQLite)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	created := time.Now().UTC().Truncate(time.Second)
	u := &models.User{ID: "u-1", Email: "a@x.com", PasswordHash: "hash", Name: "A", CreatedAt: created}

	_, err := repo.Create(ctx, u)
	require.NoError(t, err)

	byEmail, err := repo.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	assert.True(t, created.Equal(byEmail.CreatedAt), "created_at %v != %v", byEmail.CreatedAt, created)

	byID, err := repo.GetUserByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)
}

func TestSQLiteRepository_DuplicateEmail(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{ID: "u-1", Email: "a@x.com", PasswordHash: "h", Name: "A", CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{ID: "u-2", Email: "a@x.com", PasswordHash: "h", Name: "B", CreatedAt: time.Now()})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSQLiteRepository_EmailIsCaseSensitive(t *testing.T) {
	db := setupSQLite(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{ID: "u-1", Email: "a@x.com", PasswordHash: "h", Name: "A", CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = repo.GetUserByEmail(ctx, "A@X.COM")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupSQLite(t))

	_, err := repo.GetUserByID(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
