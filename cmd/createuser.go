package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"blog_backend/auth"
	"blog_backend/store"
)

var (
	userEmail    string
	userPassword string
	userStaff    bool
)

var createUserCmd = &cobra.Command{
	Use:   "createuser [username]",
	Short: "Create an account; --staff grants access to the admin and AI endpoints",
	Long: `Createuser adds a user to the database. Without --password the password
is read from the first line of stdin. An existing user only has its staff
flag updated when --staff is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateUser,
}

func init() {
	rootCmd.AddCommand(createUserCmd)
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	createUserCmd.Flags().StringVar(&userPassword, "password", "", "password (at least 8 characters)")
	createUserCmd.Flags().BoolVar(&userStaff, "staff", false, "mark the user as staff")
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Level(), true)

	st, err := store.Open(cfg.DatabaseDSN, &logger)
	if err != nil {
		return err
	}
	defer st.Close()

	username := strings.TrimSpace(args[0])
	out := cmd.OutOrStdout()

	if existing, err := st.GetUserByUsername(cmd.Context(), username); err == nil {
		if !userStaff {
			return fmt.Errorf("user %s already exists", username)
		}
		if err := st.SetStaff(cmd.Context(), existing.ID, true); err != nil {
			return err
		}
		fmt.Fprintf(out, "user %s is now staff\n", username)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	password := userPassword
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u := &store.User{Username: username, Email: userEmail, PasswordHash: hash, IsStaff: userStaff}
	if err := st.CreateUser(cmd.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("user %s already exists", username)
		}
		return err
	}
	logger.Info().Uint("id", u.ID).Str("username", u.Username).Bool("staff", u.IsStaff).Msg("user created")
	fmt.Fprintf(out, "created user %s (id %d)\n", u.Username, u.ID)
	return nil
}
