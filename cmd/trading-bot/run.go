package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cenotaph26/trading-botv5/cmd/common"
	"github.com/Cenotaph26/trading-botv5/internal/api"
	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/internal/decision"
	"github.com/Cenotaph26/trading-botv5/internal/engine"
	boterrors "github.com/Cenotaph26/trading-botv5/internal/errors"
	"github.com/Cenotaph26/trading-botv5/internal/exchange"
	"github.com/Cenotaph26/trading-botv5/internal/logger"
	"github.com/Cenotaph26/trading-botv5/internal/market"
	"github.com/Cenotaph26/trading-botv5/internal/monitoring"
	"github.com/Cenotaph26/trading-botv5/internal/notifications"
	"github.com/Cenotaph26/trading-botv5/internal/position"
	"github.com/Cenotaph26/trading-botv5/internal/risk"
	"github.com/Cenotaph26/trading-botv5/internal/signal"
	"github.com/Cenotaph26/trading-botv5/internal/strategy"
	"github.com/Cenotaph26/trading-botv5/pkg/reporting"
)

const (
	shutdownTimeout = 10 * time.Second
	healthStaleness = 30 * time.Second
)

var (
	envFile   string
	port      int
	autoStart bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the agent and its HTTP API",
	Long: `Start the agent and its HTTP API.

Configuration is read from the environment (and the --env file):
  PORT, LOG_LEVEL, LOG_DIR, FEED_PROVIDER (binance|bybit), BYBIT_TESTNET,
  START_BALANCE, AUTO_START, CLOSE_ON_STOP, RISK_MANAGER_ENABLED,
  RISK_PROFILE (yaml), TELEGRAM_TOKEN, TELEGRAM_CHAT_ID

Examples:
  trading-bot run
  trading-bot run --port 9090
  trading-bot run --auto-start=false --env prod.env`,
	RunE: runBot,
}

func init() {
	runCmd.Flags().StringVar(&envFile, "env", ".env", "Environment file path")
	runCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port (overrides PORT)")
	runCmd.Flags().BoolVar(&autoStart, "auto-start", true, "Start trading immediately (overrides AUTO_START)")
}

// applyFlags lets explicitly set flags win over the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("auto-start") {
		cfg.Agent.AutoStart = autoStart
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := common.LoadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using process environment\n", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	log, err := logger.NewLogger("trading-bot", cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	riskCfg := config.DefaultRiskConfig()
	if cfg.RiskProfile != "" {
		if riskCfg, err = config.LoadRiskProfile(cfg.RiskProfile); err != nil {
			return err
		}
		log.Info("risk profile loaded from %s", cfg.RiskProfile)
	}
	store := config.NewRiskStore(riskCfg)

	source, err := exchange.NewSource(exchange.SourceConfig{
		Provider: cfg.Feed.Provider,
		Testnet:  cfg.Feed.Testnet,
	})
	if err != nil {
		return err
	}

	feed := market.NewFeed(source,
		market.WithLogger(log.Named("feed")),
		market.WithErrorHook(func(e *boterrors.BotError) {
			monitoring.RecordError(strings.ToLower(string(e.Category)))
		}),
	)
	log.Info("connecting to %s...", source.Name())
	feed.Bootstrap(ctx)
	log.Info("%d symbols loaded", len(feed.Symbols()))

	weights := strategy.NewWeights(strategy.DefaultNames(), nil)
	scorer := signal.NewScorer(feed, func() float64 { return store.Get().MaxATRPct }, log.Named("signal"))
	filter := decision.NewFilter(scorer, weights, store)

	posOpts := []position.Option{position.WithReporter(reporting.NewConsoleReporter(os.Stdout))}
	if cfg.Agent.RiskManagerEnabled {
		posOpts = append(posOpts, position.WithCollaborator(risk.NewManager(cfg.Agent.StartBalance, risk.DefaultLimits())))
		log.Info("risk manager enabled")
	}

	var notifier notifications.Notifier = notifications.Nop{}
	if cfg.Notifications.Enabled() {
		notifier = notifications.NewTelegramNotifier(cfg.Notifications.Token, cfg.Notifications.ChatID)
		log.Info("telegram alerts enabled")
	}

	health := monitoring.NewHealthChecker(healthStaleness)
	eng := engine.New(engine.Config{
		StartBalance: cfg.Agent.StartBalance,
		CloseOnStop:  cfg.Agent.CloseOnStop,
	}, engine.Deps{
		Feed:     feed,
		Analyzer: scorer,
		Decider:  filter,
		Weights:  weights,
		Risk:     store,
	},
		engine.WithLogger(log),
		engine.WithNotifier(notifier),
		engine.WithHealth(health),
		engine.WithPositionOptions(posOpts...),
	)

	srv := api.NewServer(ctx, cfg.Server, eng, feed, store, health, log.Named("api"))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if cfg.Agent.AutoStart {
		if err := eng.Start(ctx); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			eng.Stop()
			return err
		}
	}

	eng.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.LogError("http shutdown", err)
	}
	log.Status("final balance $%.2f", eng.Positions().Balance())
	return nil
}
