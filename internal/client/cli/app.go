package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
)

type App struct {
	config *config.Config
	auth   services.AuthService
	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer
	user   string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDB)
	if err != nil {
		return nil, err
	}

	api, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		config: c,
		auth:   services.NewAuthService(api, db),
		db:     db,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	a.restoreSession(ctx)
	return a, nil
}

func (a *App) restoreSession(ctx context.Context) {
	if s, err := a.auth.Current(ctx); err == nil {
		a.user = s.User.Email
	}
}

func (a *App) isLoggedIn() bool {
	return a.user != ""
}

func (a *App) status() string {
	if a.user == "" {
		return ""
	}
	return "(" + a.user + ")"
}

// Run blocks in the REPL until the user quits or stdin closes.
func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()

	fmt.Fprintf(a.out, "gophauth CLI, server %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.status, a.reader, a.out)
	return nil
}
