package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the platform API",
		Long: `Authenticate with the platform API using username and password.

The returned token pair is stored in ~/.japi/credentials.yml and renewed
automatically when it expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Username: ")
				username, _ = reader.ReadString('\n')
				username = strings.TrimSpace(username)
			}

			if password == "" {
				fmt.Print("Password: ")

				bytePassword, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}

				password = string(bytePassword)

				fmt.Println()
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			ctx := context.Background()

			if err := client.Login(ctx, username, password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			user, err := client.CurrentUser(ctx)
			if err != nil {
				// Tokens are stored; the whoami fetch is best-effort.
				fmt.Printf("Logged in (could not fetch user details: %v)\n", err)

				return nil
			}

			fmt.Printf("Logged in as %v\n", user["username"])

			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted if not provided)")

	return cmd
}
