package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/securebase/internal/auth"
	"github.com/kozaktomas/securebase/internal/database"
	"github.com/kozaktomas/securebase/internal/facematch"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Long: `List registered users ordered by creation time.

Examples:
  securebase users list
  securebase users list --faces
  securebase users list --search zoe`,
	RunE: runUsersList,
}

var usersImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import users from a YAML or JSON file",
	Long: `Create users from a YAML or JSON list. Each entry has a name and email,
plus a password, a 128-value face descriptor, or both.

  - name: Ada Lovelace
    email: ada@example.com
    password: correct-horse
  - name: Grace Hopper
    email: grace@example.com
    descriptor: [0.01, -0.12, ...]

Existing emails are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersImport,
}

var usersClearFaceCmd = &cobra.Command{
	Use:   "clear-face <email>",
	Short: "Remove a user's registered face",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersClearFace,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete a user and their sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersImportCmd, usersClearFaceCmd, usersDeleteCmd)

	usersListCmd.Flags().String("search", "", "Filter by name or email substring")
	usersListCmd.Flags().Bool("faces", false, "Only list users with a registered face")
	usersListCmd.Flags().Int("limit", database.DefaultListLimit, "Maximum number of users")
	usersListCmd.Flags().Int("offset", 0, "Offset for pagination")

	usersImportCmd.Flags().Int("cost", 0, "bcrypt cost for imported passwords (default BCRYPT_COST)")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	users, err := database.GetUserReader(ctx)
	if err != nil {
		return err
	}
	list, err := users.List(ctx, database.UserFilter{
		FaceOnly: mustGetBool(cmd, "faces"),
		Search:   mustGetString(cmd, "search"),
		Limit:    mustGetInt(cmd, "limit"),
		Offset:   mustGetInt(cmd, "offset"),
	})
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tPASSWORD\tFACE\tCREATED")
	fmt.Fprintln(w, "--\t-----\t----\t--------\t----\t-------")
	for i := range list {
		u := &list[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Email, u.Name, yesNo(u.HasPassword()), yesNo(u.FaceRegistered), u.CreatedAt.Format(time.DateTime))
	}
	w.Flush()

	total, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	faces, err := users.CountFaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to count faces: %w", err)
	}
	fmt.Printf("\nShowing %d of %d users (%d with a registered face)\n", len(list), total, faces)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// importEntry is one user in an import file.
type importEntry struct {
	Name       string    `yaml:"name"`
	Email      string    `yaml:"email"`
	Password   string    `yaml:"password"`
	Descriptor []float64 `yaml:"descriptor"`
}

// parseImportFile reads a YAML list. JSON input parses as YAML too.
func parseImportFile(data []byte) ([]importEntry, error) {
	var entries []importEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	return entries, nil
}

// toStoredUser validates an entry the same way the signup endpoints do.
func (e importEntry) toStoredUser(hasher *auth.Hasher) (*database.StoredUser, error) {
	name := auth.NormalizeName(e.Name)
	email := auth.NormalizeEmail(e.Email)
	if e.Password == "" && e.Descriptor == nil {
		return nil, errors.New("password or descriptor is required")
	}

	user := &database.StoredUser{Name: name, Email: email}
	if e.Password != "" {
		if err := auth.ValidateSignup(auth.SignupInput{Name: name, Email: email, Password: e.Password}); err != nil {
			return nil, err
		}
		hash, err := hasher.Hash(e.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	} else if err := auth.ValidateFaceSignup(name, email); err != nil {
		return nil, err
	}

	if e.Descriptor != nil {
		d, err := facematch.Validate(e.Descriptor)
		if err != nil {
			return nil, err
		}
		user.FaceDescriptor = d
	}
	return user, nil
}

func runUsersImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	entries, err := parseImportFile(data)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	cost := cfg.Auth.BcryptCost
	if cmd.Flags().Changed("cost") {
		cost = mustGetInt(cmd, "cost")
	}
	hasher := auth.NewHasher(cost)

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	users, err := database.GetUserWriter(ctx)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Importing users"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("users"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var created, skipped, failed int
	for i, e := range entries {
		user, err := e.toStoredUser(hasher)
		if err == nil {
			err = users.Create(ctx, user)
		}
		switch {
		case err == nil:
			created++
		case errors.Is(err, database.ErrEmailTaken):
			skipped++
		default:
			failed++
			logger.Warn("failed to import user", zap.Int("entry", i), zap.String("email", e.Email), zap.Error(err))
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Printf("\nCreated: %d, skipped (existing email): %d, failed: %d\n", created, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d entries could not be imported", failed)
	}
	return nil
}

// lookupUser resolves an email to a stored user.
func lookupUser(ctx context.Context, users database.UserReader, email string) (*database.StoredUser, error) {
	u, err := users.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("no user with email %q", email)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return u, nil
}

func runUsersClearFace(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	users, err := database.GetUserWriter(ctx)
	if err != nil {
		return err
	}
	u, err := lookupUser(ctx, users, args[0])
	if err != nil {
		return err
	}
	if !u.FaceRegistered {
		fmt.Printf("%s has no registered face.\n", u.Email)
		return nil
	}
	if _, err := users.ClearFace(ctx, u.ID); err != nil {
		return fmt.Errorf("failed to clear face: %w", err)
	}
	fmt.Printf("Removed face for %s\n", u.Email)
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	b, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	users, err := database.GetUserWriter(ctx)
	if err != nil {
		return err
	}
	u, err := lookupUser(ctx, users, args[0])
	if err != nil {
		return err
	}
	if err := users.Delete(ctx, u.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	fmt.Printf("Deleted %s (%s)\n", u.Email, u.ID)
	return nil
}
