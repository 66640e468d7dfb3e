// grant-admin manages the admins table out of band. The portal never writes
// it; privilege is granted by an operator with shell access to the database.
//
//	grant-admin --db data/whynot.db grant <uid> [--email someone@example.com]
//	grant-admin --db data/whynot.db revoke <uid>
//	grant-admin --db data/whynot.db list
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/whynot-innovations/portal/internal/model"
	"github.com/whynot-innovations/portal/internal/repository"
	"github.com/whynot-innovations/portal/internal/repository/sqlite"
)

// operatorName is recorded as created_by for grants made with this tool.
const operatorName = "grant-admin"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var dbPath, email string

	flagSet := pflag.NewFlagSet("grant-admin", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&dbPath, "db", envOr("DB_PATH", "data/whynot.db"), "path to the portal's SQLite database")
	flagSet.StringVar(&email, "email", "", "email recorded with a grant (informational)")
	flagSet.Usage = func() { printUsage(out, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(out, flagSet)
		return errors.New("a command is required")
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch cmd, params := rest[0], rest[1:]; cmd {
	case "grant":
		uid, err := oneUID(cmd, params)
		if err != nil {
			return err
		}
		return grant(ctx, db, out, uid, email)
	case "revoke":
		uid, err := oneUID(cmd, params)
		if err != nil {
			return err
		}
		return revoke(ctx, db, out, uid)
	case "list":
		if len(params) > 0 {
			return fmt.Errorf("list takes no arguments, got %q", params)
		}
		return list(ctx, db, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func grant(ctx context.Context, privileges repository.PrivilegeRepository, out io.Writer, uid, email string) error {
	err := privileges.GrantAdmin(ctx, &model.Admin{
		UserID:    uid,
		Email:     email,
		CreatedAt: time.Now().UTC(),
		CreatedBy: operatorName,
	})
	if err != nil {
		return fmt.Errorf("granting admin to %s: %w", uid, err)
	}
	fmt.Fprintf(out, "granted admin to %s\n", uid)
	return nil
}

func revoke(ctx context.Context, privileges repository.PrivilegeRepository, out io.Writer, uid string) error {
	if err := privileges.RevokeAdmin(ctx, uid); err != nil {
		return fmt.Errorf("revoking admin from %s: %w", uid, err)
	}
	fmt.Fprintf(out, "revoked admin from %s\n", uid)
	return nil
}

func list(ctx context.Context, privileges repository.PrivilegeRepository, out io.Writer) error {
	admins, err := privileges.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	if len(admins) == 0 {
		fmt.Fprintln(out, "no admins")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tEMAIL\tGRANTED")
	for _, a := range admins {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.UserID, a.Email, a.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func oneUID(cmd string, params []string) (string, error) {
	if len(params) != 1 || params[0] == "" {
		return "", fmt.Errorf("%s takes exactly one <uid>", cmd)
	}
	return params[0], nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage(out io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(out, `grant-admin manages portal administrators.

Usage:
  grant-admin [--db PATH] grant <uid> [--email EMAIL]
  grant-admin [--db PATH] revoke <uid>
  grant-admin [--db PATH] list

Flags:
%s`, flagSet.FlagUsages())
}
