package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/onboardbuddy/internal/authz"
	"github.com/steveyegge/onboardbuddy/internal/config"
	"github.com/steveyegge/onboardbuddy/internal/llm"
	"github.com/steveyegge/onboardbuddy/internal/logging"
	"github.com/steveyegge/onboardbuddy/internal/slackbot"
	"github.com/steveyegge/onboardbuddy/internal/telemetry"
	"github.com/steveyegge/onboardbuddy/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the Slack webhook server",
	GroupID: GroupBot,
	Long: `Serve slash commands, events and interactive callbacks over HTTP.

Endpoints (also mounted under /slack):
  POST /commands       slash commands
  POST /events         Events API callbacks
  POST /interactions   Block Kit interactions
  GET  /health         liveness probe

Scheduled well-being check-ins run in the same process when pulse.enabled is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	if err := telemetry.Init(ctx, telemetry.Config{Enabled: cfg.Telemetry.Enabled, ServiceName: "onboardbuddy", Version: Version}); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	store = telemetry.WrapStore(store)
	defer func() { _ = store.Close() }()

	querier, err := llm.NewQuerier(ctx, llm.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return err
	}
	service := llm.NewService(querier, llm.Options{
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
		Logger:     logger,
	})

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	api := slack.New(cfg.Slack.BotToken)
	policy, watcher, err := buildPolicy(cfg, slackbot.NewGateway(api, logger), logger)
	if err != nil {
		return err
	}

	bot, err := slackbot.New(slackbot.Config{
		API:       api,
		Store:     store,
		LLM:       service,
		Policy:    policy,
		WorkStart: cfg.Pulse.WorkStart,
		WorkEnd:   cfg.Pulse.WorkEnd,
		Location:  loc,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := bot.Start(ctx); err != nil {
		return err
	}

	server, err := webhook.NewServer(webhook.ServerConfig{
		Dispatcher:       bot,
		SigningSecret:    cfg.Slack.SigningSecret,
		SkipVerification: cfg.Slack.SkipVerification,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	if cfg.Slack.SkipVerification {
		logger.Warn("slack signature verification disabled")
	}

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	logger.Info("buddy starting",
		"addr", addr,
		"storage", cfg.Storage.Backend,
		"llm", cfg.LLM.Provider,
		"authz", cfg.Authz.Mode,
		"pulse", cfg.Pulse.Enabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, addr) })
	if cfg.Pulse.Enabled {
		g.Go(func() error { return bot.Scheduler().Run(gctx) })
	}
	if watcher != nil {
		g.Go(func() error { return watcher.Watch(gctx) })
	}
	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), slackbot.DefaultJobTimeout)
	defer cancel()
	if werr := bot.Wait(drainCtx); werr != nil {
		logger.Warn("follow-up work still running at shutdown", "error", werr)
	}
	logger.Info("buddy stopped")
	return err
}

// buildPolicy returns the manager policy for cfg, plus the file policy when
// it needs watching.
func buildPolicy(cfg *config.Config, titles authz.TitleLookup, logger *slog.Logger) (authz.Policy, *authz.FilePolicy, error) {
	switch cfg.Authz.Mode {
	case config.AuthzAllowAll:
		logger.Warn("every user is treated as a manager")
		return authz.AllowAll{}, nil, nil
	case config.AuthzFile:
		p, err := authz.NewFilePolicy(cfg.Authz.PolicyFile, titles, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return authz.NewTitlePolicy(titles), nil, nil
	}
}
