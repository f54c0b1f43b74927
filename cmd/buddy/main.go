// Command buddy runs the onboarding bot and inspects its data from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/onboardbuddy/internal/config"
	"github.com/steveyegge/onboardbuddy/internal/storage"
	"github.com/steveyegge/onboardbuddy/internal/storage/factory"
	"github.com/steveyegge/onboardbuddy/internal/storage/sqlstore"
)

var (
	configFile string
	jsonOutput bool
)

// Command groups for help output.
const (
	GroupBot   = "bot"
	GroupData  = "data"
	GroupSetup = "setup"
)

var rootCmd = &cobra.Command{
	Use:   "buddy",
	Short: "buddy - Slack onboarding assistant",
	Long: `Buddy answers new hires' questions, sends role checklists and tracks
onboarding progress and team well-being in Slack.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.SetConfigFile(configFile)
		return config.Initialize()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			printVersion(cmd)
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupBot, Title: "Running the Bot:"},
		&cobra.Group{ID: GroupData, Title: "Checklists & Pulses:"},
		&cobra.Group{ID: GroupSetup, Title: "Setup & Configuration:"},
	)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./onboardbuddy.yaml, then $XDG_CONFIG_HOME/onboardbuddy/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	opts := factory.Options{Path: cfg.Storage.Path}
	if cfg.Storage.Backend == factory.BackendDolt && cfg.Storage.DSN != "" {
		server, err := sqlstore.ParseServerDSN(cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("storage.dsn: %w", err)
		}
		opts.Server = server
	}
	store, err := factory.New(ctx, cfg.Storage.Backend, opts)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
