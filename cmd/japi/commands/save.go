package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Static errors for err113 compliance.
var (
	ErrInvalidAttribute = errors.New("attributes must be key=value pairs")
)

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	var resourceID string

	cmd := &cobra.Command{
		Use:   "save TYPE [KEY=VALUE...]",
		Short: "Create or update a resource",
		Long: `Create or update a resource of the given type.

Without --id a new resource is created (POST). With --id the existing
resource is updated (PATCH), e.g.:

  japi save documents title="Release notes"
  japi save documents --id 5 title="Updated title"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes := make(map[string]interface{})

			for _, pair := range args[1:] {
				key, value, found := strings.Cut(pair, "=")
				if !found || key == "" {
					return fmt.Errorf("%w: %q", ErrInvalidAttribute, pair)
				}

				attributes[key] = value
			}

			if resourceID != "" {
				attributes["id"] = resourceID
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			resp, err := client.Save(context.Background(), args[0], attributes)
			if err != nil {
				return fmt.Errorf("failed to save %s: %w", args[0], err)
			}

			return renderBody(resp.Body)
		},
	}

	cmd.Flags().StringVar(&resourceID, "id", "", "resource id (update instead of create)")

	return cmd
}
