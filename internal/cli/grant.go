package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// GrantCommand gives an existing user a permission, or takes it away
// with -revoke.
type GrantCommand struct {
	Username     string
	Permission   string
	Revoke       bool
	DatabasePath string
}

func NewGrantCommand() *GrantCommand {
	return &GrantCommand{}
}

func (cmd *GrantCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)

	fs.StringVar(&cmd.Username, "username", "", "User to grant the permission to (required)")
	fs.StringVar(&cmd.Permission, "permission", string(entities.PermissionCanMarkReturned), "Permission codename")
	fs.BoolVar(&cmd.Revoke, "revoke", false, "Remove the permission instead of granting it")
	fs.StringVar(&cmd.DatabasePath, "db", "", "SQLite database path (default: $DATABASE_PATH)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s grant -username <name> [-permission <codename>] [-revoke]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Grant a permission. The only permission is %s, which lets\n", entities.PermissionCanMarkReturned)
		fmt.Fprintf(os.Stderr, "a user renew loans, see all borrowed books and edit the catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	return nil
}

func (cmd *GrantCommand) Run() error {
	db, cfg, err := openDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	return cmd.run(db, cfg.Auth, os.Stdout)
}

func (cmd *GrantCommand) run(db *database.Database, authCfg config.Auth, out io.Writer) error {
	service := auth.NewService(users.NewRepository(db.DB), authCfg)

	perm := entities.Permission(cmd.Permission)
	if cmd.Revoke {
		user, err := service.RevokePermission(cmd.Username, perm)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Revoked %q (%s) from %s\n", perm, perm.Name(), user.Username)
		return nil
	}

	user, err := service.GrantPermission(cmd.Username, perm)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Granted %q (%s) to %s\n", perm, perm.Name(), user.Username)
	return nil
}
