package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are swapped out in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) Signup(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeBytes(password)

	user, err := a.auth.Signup(ctx, email, password, name)
	if err != nil {
		return a.report(ctx, "signup", err)
	}
	fmt.Fprintf(a.out, "Account %s created. Use 'login' to sign in.\n", user.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeBytes(password)

	user, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return a.report(ctx, "login", err)
	}
	a.user = user.Email
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	s, err := a.auth.Current(ctx)
	if err != nil {
		return a.report(ctx, "whoami", err)
	}
	fmt.Fprintf(a.out, "%s <%s>, id %s\n", s.User.Name, s.User.Email, s.User.ID)
	if !s.AccessExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "Access token expires %s\n", s.AccessExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.auth.Refresh(ctx); err != nil {
		return a.report(ctx, "refresh", err)
	}
	fmt.Fprintln(a.out, "Access token refreshed")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return a.report(ctx, "logout", err)
	}
	a.user = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.auth.Ping(ctx); err != nil {
		return a.report(ctx, "ping", err)
	}
	fmt.Fprintln(a.out, "Server is up")
	return nil
}

// report prints err for the user and syncs the prompt with the stored
// session, which the service may have dropped.
func (a *App) report(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, services.ErrNotLoggedIn):
		fmt.Fprintln(a.out, "Not logged in")
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintf(a.out, "%s failed: server unavailable\n", op)
	default:
		fmt.Fprintf(a.out, "%s failed: %v\n", op, err)
	}

	a.user = ""
	a.restoreSession(ctx)
	return err
}
