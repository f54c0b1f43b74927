package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/onboardbuddy/internal/authz"
	"github.com/steveyegge/onboardbuddy/internal/config"
	"github.com/steveyegge/onboardbuddy/internal/storage/factory"
	"github.com/steveyegge/onboardbuddy/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Create or inspect the configuration",
	GroupID: GroupSetup,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file using an interactive form",
	Long: `Write a starter config file.

The form asks for the Slack credentials, storage backend, language model and
manager policy. Secrets are better left to the environment (SLACK_BOT_TOKEN,
SLACK_SIGNING_SECRET, ANTHROPIC_API_KEY); leave the fields blank to do so.

With --no-input the current settings are written as they are.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")
		noInput, _ := cmd.Flags().GetBool("no-input")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !noInput {
			if err := runConfigForm(cfg); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Config creation cancelled.")
					return nil
				}
				return fmt.Errorf("form error: %w", err)
			}
		}
		return writeConfig(cmd, cfg, path, force)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		redacted := cfg.Redacted()
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), redacted)
		}
		data, err := redacted.YAML()
		if err != nil {
			return err
		}
		source := config.ConfigFileUsed()
		if source == "" {
			source = "defaults and environment"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", ui.RenderMuted("# from "+source))
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().String("path", config.FileName, "Where to write the config file")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configInitCmd.Flags().Bool("no-input", false, "Write the current settings without prompting")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func writeConfig(cmd *cobra.Command, cfg *config.Config, path string, force bool) error {
	if err := cfg.Write(path, force); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", ui.RenderDone(ui.IconDone), path)

	if cfg.Authz.Mode == config.AuthzFile && cfg.Authz.PolicyFile != "" {
		if _, err := os.Stat(cfg.Authz.PolicyFile); os.IsNotExist(err) {
			if err := authz.WriteExample(cfg.Authz.PolicyFile); err != nil {
				return fmt.Errorf("writing policy file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", ui.RenderDone(ui.IconDone), cfg.Authz.PolicyFile)
		}
	}
	return nil
}

func runConfigForm(cfg *config.Config) error {
	port := strconv.Itoa(cfg.Server.Port)
	if cfg.Authz.PolicyFile == "" {
		cfg.Authz.PolicyFile = "managers.toml"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Slack bot token").
				Description("xoxb-... (leave blank to use SLACK_BOT_TOKEN)").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Slack.BotToken).
				Validate(func(s string) error {
					if s != "" && !strings.HasPrefix(s, "xoxb-") {
						return fmt.Errorf("bot tokens start with xoxb-")
					}
					return nil
				}),

			huh.NewInput().
				Title("Slack signing secret").
				Description("Leave blank to use SLACK_SIGNING_SECRET").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Slack.SigningSecret),

			huh.NewInput().
				Title("Port").
				Description("HTTP port for Slack callbacks").
				Value(&port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 || n > 65535 {
						return fmt.Errorf("port must be between 1 and 65535")
					}
					return nil
				}),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Storage").
				Description("Where checklists and pulse responses live").
				Options(
					huh.NewOption("Memory (lost on restart)", factory.BackendMemory),
					huh.NewOption("SQLite file", factory.BackendSQLite),
					huh.NewOption("Dolt sql-server", factory.BackendDolt),
				).
				Value(&cfg.Storage.Backend),

			huh.NewInput().
				Title("SQLite path").
				Description("Used by the sqlite backend").
				Value(&cfg.Storage.Path),

			huh.NewInput().
				Title("Dolt DSN").
				Description("Used by the dolt backend (optional)").
				Placeholder("root@tcp(127.0.0.1:3306)/onboardbuddy").
				Value(&cfg.Storage.DSN),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language model").
				Options(
					huh.NewOption("Anthropic Claude", "anthropic"),
					huh.NewOption("Google Gemini", "gemini"),
				).
				Value(&cfg.LLM.Provider),

			huh.NewInput().
				Title("Model").
				Description("Leave blank for the provider default").
				Value(&cfg.LLM.Model),

			huh.NewSelect[string]().
				Title("Who counts as a manager?").
				Options(
					huh.NewOption("Slack profile title contains a manager keyword", config.AuthzTitle),
					huh.NewOption("Listed in a policy file", config.AuthzFile),
					huh.NewOption("Everyone (development only)", config.AuthzAllowAll),
				).
				Value(&cfg.Authz.Mode),

			huh.NewInput().
				Title("Policy file").
				Description("Used when managers come from a policy file").
				Value(&cfg.Authz.PolicyFile),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable scheduled well-being check-ins?").
				Value(&cfg.Pulse.Enabled),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return err
	}
	cfg.Server.Port, _ = strconv.Atoi(port)
	if cfg.Authz.Mode != config.AuthzFile {
		cfg.Authz.PolicyFile = ""
	}
	return nil
}
