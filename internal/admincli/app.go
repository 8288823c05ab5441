// Package admincli implements coursesell-admin, the operator command line
// for bootstrapping administrators and inspecting statistics without going
// through the HTTP API.
package admincli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/dmitrijs2005/coursesell/internal/server/services"
)

var ErrUsage = errors.New("usage")

// Accounts is the part of the account service the CLI drives.
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, *services.Session, error)
	ToggleRoleByEmail(ctx context.Context, email string) (*models.User, error)
}

// Stats recomputes and lists statistics snapshots.
type Stats interface {
	Recompute(ctx context.Context) (*models.Stats, error)
	Recent(ctx context.Context, limit int) ([]*models.Stats, error)
}

type App struct {
	accounts Accounts
	stats    Stats
	in       *bufio.Reader
	out      io.Writer
}

func NewApp(a Accounts, s Stats, in io.Reader, out io.Writer) *App {
	return &App{accounts: a, stats: s, in: bufio.NewReader(in), out: out}
}

const usage = `Usage: coursesell-admin <command> [args]

Commands:
  create-admin          register a new account and grant it the admin role
  toggle-role <email>   switch an account between user and admin
  recompute             recount users and subscriptions now
  stats [limit]         print the latest statistics snapshots
`

// Execute runs the command named by args[0].
func (a *App) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "create-admin":
		return a.createAdmin(ctx)
	case "toggle-role":
		if len(args) != 2 {
			fmt.Fprint(a.out, usage)
			return ErrUsage
		}
		return a.toggleRole(ctx, args[1])
	case "recompute":
		return a.recompute(ctx)
	case "stats":
		limit := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("%w: limit must be a positive number", ErrUsage)
			}
			limit = n
		}
		return a.list(ctx, limit)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "unknown command %q\n\n%s", args[0], usage)
		return ErrUsage
	}
}

func (a *App) createAdmin(ctx context.Context) error {
	name, err := GetSimpleText(a.in, "Name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.in, "Email", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := GetPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	user, _, err := a.accounts.Register(ctx, services.RegisterInput{
		Name:     name,
		Email:    email,
		Password: string(password),
	})
	if err != nil {
		return err
	}

	if !user.IsAdmin() {
		if user, err = a.accounts.ToggleRoleByEmail(ctx, user.Email); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Admin %s <%s> created (id %s)\n", user.Name, user.Email, user.ID)
	return nil
}

func (a *App) toggleRole(ctx context.Context, email string) error {
	user, err := a.accounts.ToggleRoleByEmail(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", user.Email, user.Role)
	return nil
}

func (a *App) recompute(ctx context.Context) error {
	s, err := a.stats.Recompute(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "users=%d subscriptions=%d\n", s.Users, s.Subscriptions)
	return nil
}

func (a *App) list(ctx context.Context, limit int) error {
	list, err := a.stats.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no statistics yet")
		return nil
	}
	for _, s := range list {
		fmt.Fprintf(a.out, "%s  users=%d subscriptions=%d views=%d\n",
			s.CreatedAt.Format("2006-01-02 15:04:05"), s.Users, s.Subscriptions, s.Views)
	}
	return nil
}
