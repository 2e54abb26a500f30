// file: cmd/root.go
// version: 2.0.0
// guid: 339d28e2-bf15-4986-94e7-83be44cb7374

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/logging"
)

// annotationCreatesConfig marks commands that may name a config file that does not exist yet
const annotationCreatesConfig = "creates-config"

var (
	cfgFile string

	// shutdownTracing flushes the exporter installed by --tracing
	shutdownTracing = func(context.Context) error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpe-resolver",
	Short: "Resolve installed-software names to canonical platform identifiers",
	Long: `cpe-resolver maps free-text application names reported by endpoint scans
to entries of a canonical CPE 2.3 catalog. Each alias is parsed into a
vendor/product/version identity, matched against catalog candidates,
scored and audited before a result is reported.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.Context(), cmd.Annotations[annotationCreatesConfig] == "")
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdownTracing(context.Background())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/"+config.DefaultConfigName+")")
	flags.String("db", "catalog.db", "path to the SQLite catalog database")
	flags.String("mode", "indexed", "retrieval mode: indexed, direct or nvd")
	flags.Int("concurrency", 3, "maximum aliases resolved at once")
	flags.Int("retries", 1, "maximum audit-driven restarts per alias")
	flags.String("provider", "local", "text-generation backend: local or openai")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("tracing", false, "print pipeline spans to stderr")

	viper.BindPFlag("database.path", flags.Lookup("db"))
	viper.BindPFlag("execution.retrieval_mode", flags.Lookup("mode"))
	viper.BindPFlag("execution.max_concurrent_resolutions", flags.Lookup("concurrency"))
	viper.BindPFlag("execution.max_retries", flags.Lookup("retries"))
	viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("tracing", flags.Lookup("tracing"))

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
}

// initConfig layers defaults, the config file, environment and flags into
// config.AppConfig and rejects invalid settings before any command runs.
// requireFile makes an explicitly named but missing config file an error.
func initConfig(ctx context.Context, requireFile bool) error {
	config.SetDefaults()
	if err := config.LoadConfigFromFile(config.ConfigFilePath(cfgFile), requireFile && cfgFile != ""); err != nil {
		return err
	}
	if err := config.InitConfig(); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	logging.SetLevel(logging.ParseLevel(config.AppConfig.LogLevel))

	if config.AppConfig.Tracing {
		shutdown, err := setupTracing(ctx)
		if err != nil {
			return fmt.Errorf("failed to enable tracing: %w", err)
		}
		shutdownTracing = shutdown
	}
	return nil
}
