package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pressly/goose/v3"

	"github.com/atinyakov/ukarch-cms/internal/models"
)

// ErrUsage is returned for unknown commands or wrong arguments.
var ErrUsage = errors.New("usage error")

// Accounts provisions and repairs operator accounts.
type Accounts interface {
	CreateUser(ctx context.Context, username, email, password string, role models.Role) (*models.PublicUser, error)
	SetPassword(ctx context.Context, username, password string) error
}

// Settings reads and writes site settings.
type Settings interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, name, value string) error
}

// Runner dispatches siteadmin commands. Migrate is used by the migrate
// command; Accounts and Settings by the rest.
type Runner struct {
	Migrate  func(ctx context.Context) ([]*goose.MigrationResult, error)
	Accounts Accounts
	Settings Settings
	Prompt   *Prompter
	Out      io.Writer
}

const usage = `Usage: siteadmin [flags] <command> [args]

Commands:
  migrate                      apply pending schema migrations
  create-admin [user] [email]  create an admin account
  reset-admin [user]           set a new password for an account
  settings                     print all site settings
  set-setting <key> <value>    change one site setting
`

// Usage prints the command list.
func (r *Runner) Usage() {
	fmt.Fprint(r.Out, usage)
}

// Run executes the command in args[0].
func (r *Runner) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		r.Usage()
		return ErrUsage
	}
	switch args[0] {
	case "help":
		r.Usage()
		return nil
	case "migrate":
		return r.migrate(ctx)
	case "create-admin":
		return r.createAdmin(ctx, args[1:])
	case "reset-admin":
		return r.resetAdmin(ctx, args[1:])
	case "settings":
		return r.printSettings(ctx)
	case "set-setting":
		if len(args) != 3 {
			return fmt.Errorf("%w: set-setting <key> <value>", ErrUsage)
		}
		return r.setSetting(ctx, args[1], args[2])
	}
	r.Usage()
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func (r *Runner) migrate(ctx context.Context) error {
	results, err := r.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(r.Out, "schema is up to date")
		return nil
	}
	for _, res := range results {
		fmt.Fprintf(r.Out, "applied %05d %s (%s)\n", res.Source.Version, res.Source.Path, res.Duration)
	}
	return nil
}

func argOr(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

func (r *Runner) createAdmin(ctx context.Context, args []string) error {
	username := argOr(args, 0, "")
	email := argOr(args, 1, "")
	var err error
	if username == "" {
		if username, err = r.Prompt.Prompt("Username", "admin"); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = r.Prompt.Prompt("Email", ""); err != nil {
			return err
		}
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email %q", ErrUsage, email)
	}
	password, err := r.Prompt.Password("Password")
	if err != nil {
		return err
	}

	u, err := r.Accounts.CreateUser(ctx, username, email, password, models.RoleAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "created admin %q (id %d)\n", u.Username, u.ID)
	return nil
}

func (r *Runner) resetAdmin(ctx context.Context, args []string) error {
	username := argOr(args, 0, "")
	var err error
	if username == "" {
		if username, err = r.Prompt.Prompt("Username", "admin"); err != nil {
			return err
		}
	}
	password, err := r.Prompt.Password("New password")
	if err != nil {
		return err
	}
	if err := r.Accounts.SetPassword(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "password updated for %q\n", username)
	return nil
}

func (r *Runner) printSettings(ctx context.Context) error {
	values, err := r.Settings.GetAll(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(r.Out, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		v := strings.ReplaceAll(values[k], "\n", `\n`)
		fmt.Fprintf(tw, "%s\t%s\n", k, v)
	}
	return tw.Flush()
}

func (r *Runner) setSetting(ctx context.Context, key, value string) error {
	if err := r.Settings.Set(ctx, key, value); err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "%s updated\n", key)
	return nil
}
