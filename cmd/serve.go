// file: cmd/serve.go
// version: 2.1.0
// guid: 5567900f-fbb5-41af-86f9-519d4da2b9ff

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/cpe-resolver/internal/ai"
	"github.com/jdfalk/cpe-resolver/internal/config"
	"github.com/jdfalk/cpe-resolver/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Start the HTTP API exposing batch resolution, stored runs and catalog import.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.AppConfig
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := ai.Ping(cmd.Context(), a.llm); err != nil {
			yellow.Fprintf(cmd.ErrOrStderr(), "Warning: %s backend not reachable: %v\n", a.llm.Name(), err)
		}
		if a.index != nil {
			// load the index before the first request instead of inside it
			if _, err := a.index.Get(cmd.Context()); err != nil {
				yellow.Fprintf(cmd.ErrOrStderr(), "Warning: index not loaded: %v\n", err)
			}
		}

		srvCfg := server.Config{
			Host:              cfg.Server.Host,
			Port:              cfg.Server.Port,
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			MaxBatchSize:      cfg.Server.MaxBatchSize,
			APIToken:          cfg.Server.APIToken,
		}
		if wt, _ := cmd.Flags().GetDuration("write-timeout"); wt > 0 {
			srvCfg.WriteTimeout = wt
		}

		deps := server.Deps{
			Resolver: a.orchestrator,
			Runs:     a.store,
			Catalog:  a.store,
			Mode:     cfg.Execution.RetrievalMode,
		}
		if a.index != nil {
			deps.Index = a.index
		}
		srv := server.NewServer(deps, srvCfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s retrieval on %s:%d\n", cfg.Execution.RetrievalMode, cfg.Server.Host, cfg.Server.Port)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "host to bind the HTTP API to")
	serveCmd.Flags().Int("port", 8484, "port to run the HTTP API on")
	serveCmd.Flags().Int("rate-limit", 60, "requests per minute per client IP (0 disables)")
	serveCmd.Flags().Duration("write-timeout", 30*time.Minute, "response write timeout")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.requests_per_minute", serveCmd.Flags().Lookup("rate-limit"))
}
