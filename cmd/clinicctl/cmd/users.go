package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/templui/docclinic/internal/model"
	"github.com/templui/docclinic/internal/repository"
	"github.com/templui/docclinic/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

func UsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and seed the user store",
	}

	cmd.AddCommand(usersListCmd())
	cmd.AddCommand(usersAddLegacyCmd())
	cmd.AddCommand(usersImportCmd())
	return cmd
}

func usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every user with link and password status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openUserStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			users, err := repo.All(cmd.Context())
			if err != nil {
				return err
			}
			return printUsers(cmd.OutOrStdout(), users)
		},
	}
}

func printUsers(out io.Writer, users []*model.User) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tPHONE\tGOOGLE\tPASSWORD\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Email, u.Name, u.Phone,
			yesNo(u.IsLinked()), yesNo(u.HasPassword()),
			u.CreatedAt.UTC().Format(time.DateOnly),
		)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func usersAddLegacyCmd() *cobra.Command {
	var name, email, phone, password string

	cmd := &cobra.Command{
		Use:   "add-legacy",
		Short: "Create a password account that predates Google sign-in",
		Long: `Create a password account that predates Google sign-in.
The account is linked (and its password dropped) the first time the
owner signs in with Google using the same email.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openUserStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			user, err := newLegacyUser(name, email, phone, password, time.Now())
			if err != nil {
				return err
			}

			err = repo.Create(cmd.Context(), user)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created legacy user %s <%s>\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "plain text password to hash (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLegacyUser(name, email, phone, password string, now time.Time) (*model.User, error) {
	email, err := validation.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name != "" {
		err = validation.ValidateName(name)
		if err != nil {
			return nil, err
		}
	}

	phone = strings.TrimSpace(phone)
	if phone != "" {
		err = validation.ValidatePhone(phone)
		if err != nil {
			return nil, err
		}
	}

	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)

	return &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: &hashed,
		CreatedAt:    now.UTC(),
	}, nil
}

func usersImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <users.json>",
		Short: "Replace the configured store with the contents of a users.json file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openUserStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := importUsers(cmd, args[0], repo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d users from %s\n", n, args[0])
			return nil
		},
	}
}

func importUsers(cmd *cobra.Command, path string, dst repository.UserRepository) (int, error) {
	// The JSON store creates missing files; an import must not
	_, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("cannot read %s: %w", path, err)
	}

	src, err := repository.NewJSONUserRepository(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	users, err := src.All(cmd.Context())
	if err != nil {
		return 0, err
	}

	err = dst.ReplaceAll(cmd.Context(), users)
	if err != nil {
		return 0, fmt.Errorf("failed to import users: %w", err)
	}
	return len(users), nil
}
