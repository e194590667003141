package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			user, err := client.CurrentUser(context.Background())
			if err != nil {
				return fmt.Errorf("failed to fetch current user: %w", err)
			}

			return renderMap(user)
		},
	}
}
