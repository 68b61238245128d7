package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/sampleapp/internal/server/models"
)

// ErrUnknownCommand is returned by Run for a command it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// ErrPasswordMismatch is returned when the confirmation differs.
var ErrPasswordMismatch = errors.New("password confirmation doesn't match password")

// AdminCreator creates activated administrator accounts.
type AdminCreator interface {
	CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error)
}

type CLI struct {
	in    *bufio.Reader
	out   io.Writer
	users AdminCreator
}

func New(in io.Reader, out io.Writer, users AdminCreator) *CLI {
	return &CLI{in: bufio.NewReader(in), out: out, users: users}
}

// Run executes a single command.
func (c *CLI) Run(ctx context.Context, command string) error {
	switch command {
	case "create-admin":
		return c.CreateAdmin(ctx)
	case "", "help":
		c.usage()
		return nil
	default:
		c.usage()
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

// CreateAdmin prompts for a name, email and password and creates an
// activated administrator.
func (c *CLI) CreateAdmin(ctx context.Context) error {
	name, err := promptLine(c.in, "Name", c.out)
	if err != nil {
		return err
	}
	email, err := promptLine(c.in, "Email", c.out)
	if err != nil {
		return err
	}
	password, err := promptPassword("Password", c.out)
	if err != nil {
		return err
	}
	confirmation, err := promptPassword("Confirm password", c.out)
	if err != nil {
		return err
	}
	if password != confirmation {
		return ErrPasswordMismatch
	}

	u, err := c.users.CreateAdmin(ctx, name, email, password)
	if err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fmt.Fprintf(c.out, "  %s: %s\n", fe.Field, fe.Rule)
			}
		}
		return fmt.Errorf("error creating admin: %w", err)
	}

	fmt.Fprintf(c.out, "Admin %s <%s> created with id %s\n", u.Name, u.Email, u.ID)
	return nil
}

func (c *CLI) usage() {
	fmt.Fprintln(c.out, "Usage: admin <command> [flags]")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  create-admin   create an activated administrator account")
	fmt.Fprintln(c.out, "  help           show this message")
}
