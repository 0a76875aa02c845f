package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/database/admins"
)

// CreateAdminCommand provisions an admin account without going through the
// HTTP setup endpoint.
type CreateAdminCommand struct {
	Email        string
	Name         string
	Password     string
	DatabasePath string
	Superadmin   bool
	BcryptCost   int
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Email, "email", "", "Admin email address (required)")
	fs.StringVar(&cmd.Name, "name", "", "Admin display name (required)")
	fs.StringVar(&cmd.Password, "password", "", "Admin password, at least 8 characters (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.Superadmin, "superadmin", false, "Grant superadmin rights")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost factor for the password hash")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -email <email> -name <name> -password <password> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an admin account for the HTTP API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-admin -email admin@example.com -name Admin -password 'secret phrase' -superadmin\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	if cmd.Name == "" {
		return fmt.Errorf("required flag -name not provided")
	}
	if cmd.Password == "" {
		return fmt.Errorf("required flag -password not provided")
	}

	return nil
}

func (cmd *CreateAdminCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := admins.NewRepository(db.DB, cmd.BcryptCost)
	admin, err := repo.Create(cmd.Email, cmd.Name, cmd.Password, cmd.Superadmin)
	if err != nil {
		return err
	}

	fmt.Printf("Created admin %s (id=%d, superadmin=%v)\n", admin.Email, admin.ID, admin.IsSuperadmin)
	return nil
}
