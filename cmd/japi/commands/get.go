package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	var queryParams []string

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Fetch a resource by path",
		Long: `Fetch a resource by its API path, e.g.:

  japi get documents
  japi get documents/5
  japi get documents -q "filter[title]=x" -q "page[size]=10"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			query := url.Values{}

			for _, param := range queryParams {
				parsed, err := url.ParseQuery(param)
				if err != nil {
					return fmt.Errorf("invalid query parameter %q: %w", param, err)
				}

				for key, values := range parsed {
					for _, value := range values {
						query.Add(key, value)
					}
				}
			}

			resp, err := client.Get(context.Background(), args[0], query)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", args[0], err)
			}

			return renderBody(resp.Body)
		},
	}

	cmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "query parameter (key=value, repeatable)")

	return cmd
}
