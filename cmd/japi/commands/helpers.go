// Package commands implements the japi CLI subcommands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/meridianhq/japi-client/internal/store"
	"github.com/meridianhq/japi-client/pkg/japi"
	"github.com/meridianhq/japi-client/pkg/japiclient"
)

// Static errors for err113 compliance.
var (
	ErrAPIRequired = errors.New("API base URL is required (use --api or set it in the config file)")
)

// credentialsPath returns the shared credential file used by CLI sessions.
func credentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, ".japi", "credentials.yml"), nil
}

// newClient builds a client from viper configuration, backed by the shared
// credential file so sessions survive between invocations.
func newClient() (japi.Client, error) {
	baseURL := viper.GetString("api")
	if baseURL == "" {
		return nil, ErrAPIRequired
	}

	config := &japi.Config{
		BaseURL: baseURL,
		APIKey:  viper.GetString("api_key"),
		Name:    viper.GetString("name"),
		Debug:   viper.GetBool("verbose"),
	}

	credsFile, err := credentialsPath()
	if err != nil {
		return nil, err
	}

	name := config.Name
	if name == "" {
		name = "japi"
	}

	credStore := store.NewFile(afero.NewOsFs(), credsFile, name, nil)

	return japiclient.NewWithStore(config, credStore)
}

// renderMap prints a key/value map in the configured output format.
func renderMap(values map[string]interface{}) error {
	switch viper.GetString("output") {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(values)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(values)
	default:
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")

		for _, key := range keys {
			_ = table.Append(key, fmt.Sprintf("%v", values[key]))
		}

		return table.Render()
	}
}

// renderBody pretty-prints a raw JSON response body in the configured
// output format.
func renderBody(body []byte) error {
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		// Not JSON; print raw.
		fmt.Println(string(body))

		return nil
	}

	switch viper.GetString("output") {
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(decoded)
	default:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(decoded)
	}
}
