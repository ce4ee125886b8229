package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dukerupert/potluck/internal/store"
)

const minPasswordLength = 8

// runUserAdd creates a user with a password and adds them to a household.
//
//	potluck user add -email ola@example.com -name Ola -password ... [-household 1] [-role admin]
func runUserAdd(ctx context.Context, db *sql.DB, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("user add", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "login email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "login password")
	householdID := fs.Int64("household", 1, "household ID to join")
	role := fs.String("role", "member", "household role: admin or member")
	if err := fs.Parse(args); err != nil {
		return err
	}

	*email = strings.TrimSpace(*email)
	*name = strings.TrimSpace(*name)
	switch {
	case *email == "" || !strings.Contains(*email, "@"):
		return errors.New("-email must be an email address")
	case *name == "":
		return errors.New("-name is required")
	case len(*password) < minPasswordLength:
		return fmt.Errorf("-password must be at least %d characters", minPasswordLength)
	case *role != "admin" && *role != "member":
		return fmt.Errorf("invalid -role %q", *role)
	}

	households := store.NewHouseholdStore(db)
	hh, err := households.GetByID(ctx, *householdID)
	if err != nil {
		return err
	}
	if hh == nil {
		return fmt.Errorf("household %d not found", *householdID)
	}

	users := store.NewUserStore(db)
	existing, err := users.GetByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("user %s already exists", *email)
	}

	u, err := users.Create(ctx, *email, *name)
	if err != nil {
		return err
	}
	if err := users.SetPassword(ctx, u.ID, *password); err != nil {
		return err
	}
	if _, err := households.AddMember(ctx, hh.ID, u.ID, *role); err != nil {
		return err
	}

	fmt.Fprintf(out, "created user %d (%s) as %s of %q\n", u.ID, u.Email, *role, hh.Name)
	return nil
}
