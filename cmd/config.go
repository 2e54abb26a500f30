// file: cmd/config.go
// version: 1.0.0
// guid: 4843d3eb-7f90-4be3-a11e-4b8f6524445c

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/server/middleware"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or write configuration",
}

// configShowCmd prints the effective configuration with secrets masked
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.MarshalYAML(config.Masked(config.AppConfig))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// configInitCmd writes the effective configuration to the config file
var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the effective configuration to the config file",
	Annotations: map[string]string{annotationCreatesConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		secrets, _ := cmd.Flags().GetBool("include-secrets")

		path := config.ConfigFilePath(cfgFile)
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.SaveConfigToFile(config.AppConfig, path, secrets); err != nil {
			return err
		}
		green.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
		return nil
	},
}

// configHashTokenCmd prints a bcrypt hash usable as server.api_token
var configHashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Hash an API token for server.api_token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := middleware.HashToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configInitCmd.Flags().Bool("include-secrets", false, "write API keys and tokens to the file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configHashTokenCmd)
}
