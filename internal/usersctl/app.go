// Package usersctl implements the admin command line: adding a user through
// the regular signup flow and deleting one by username.
package usersctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/credentials"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/server/validation"
)

const usage = `usage: usersctl [server flags] <command> [flags]

commands:
  add    -u <username> -e <email> -f <first name> -l <last name>
  delete -u <username>
`

// UserAdmin is the subset of the auth service the CLI drives.
type UserAdmin interface {
	Signup(ctx context.Context, form validation.SignupForm) (*models.User, error)
	DeleteUser(ctx context.Context, username string) error
}

type App struct {
	users       UserAdmin
	out         io.Writer
	getPassword func(io.Writer) ([]byte, error)
}

func NewApp(users UserAdmin, out io.Writer) *App {
	return &App{users: users, out: out, getPassword: GetPassword}
}

// Open builds the auth service from the server configuration. The returned
// function releases the database pool.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*services.AuthService, func(), error) {
	rm, err := repomanager.NewRepositoryManager(cfg.DatabaseDriver)
	if err != nil {
		return nil, nil, err
	}

	db, err := repomanager.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	hasher, err := credentials.New(cfg.PasswordHasher, cfg.LegacyHMACKey)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return services.NewAuthService(rm.Store(db), rm, hasher, log), func() { _ = db.Close() }, nil
}

// SplitArgs separates the server flags in front of the command from the
// command and its own flags.
func SplitArgs(args []string) (global []string, command string, rest []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			return args[:i], a, args[i+1:]
		}
		if !strings.Contains(a, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return args, "", nil
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, command string, args []string) int {
	var err error
	switch command {
	case "add":
		err = a.add(ctx, args)
	case "delete":
		err = a.delete(ctx, args)
	default:
		fmt.Fprint(a.out, usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		return 1
	}
	return 0
}

func (a *App) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(a.out)
	var form validation.SignupForm
	fs.StringVar(&form.Username, "u", "", "username")
	fs.StringVar(&form.Email, "e", "", "email")
	fs.StringVar(&form.FirstName, "f", "", "first name")
	fs.StringVar(&form.LastName, "l", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := a.getPassword(a.out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	form.Password = string(pw)
	common.WipeByteArray(pw)
	form.Terms = "on"

	user, err := a.users.Signup(ctx, form)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			for _, msg := range vErr.Errors {
				fmt.Fprintln(a.out, msg)
			}
			return errors.New("user not created")
		}
		return err
	}

	fmt.Fprintf(a.out, "user %s created (id %d)\n", user.UserName, user.ID)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(a.out)
	username := fs.String("u", "", "username")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-u is required")
	}

	if err := a.users.DeleteUser(ctx, *username); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("no such user %q", *username)
		}
		return err
	}

	fmt.Fprintf(a.out, "user %s deleted\n", *username)
	return nil
}
