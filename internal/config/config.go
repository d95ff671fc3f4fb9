package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// Feed providers selectable with FEED_PROVIDER.
const (
	ProviderBinance = "binance"
	ProviderBybit   = "bybit"
)

// Config is the process configuration read from the environment.
type Config struct {
	Server        ServerConfig
	Log           LogConfig `env:", prefix=LOG_"`
	Feed          FeedConfig
	Agent         AgentConfig
	Notifications NotificationsConfig `env:", prefix=TELEGRAM_"`

	// RiskProfile is an optional YAML file overriding the default RiskConfig.
	RiskProfile string `env:"RISK_PROFILE"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=30s"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `env:"LEVEL, default=info" validate:"oneof=debug info warn error"`
	Dir   string `env:"DIR, default=logs"`
}

// FeedConfig selects and configures the market data source
type FeedConfig struct {
	Provider string `env:"FEED_PROVIDER, default=binance" validate:"oneof=binance bybit"`
	Testnet  bool   `env:"BYBIT_TESTNET, default=false"`
}

// AgentConfig holds paper trading settings
type AgentConfig struct {
	StartBalance       float64 `env:"START_BALANCE, default=10000" validate:"gt=0"`
	AutoStart          bool    `env:"AUTO_START, default=true"`
	CloseOnStop        bool    `env:"CLOSE_ON_STOP, default=false"`
	RiskManagerEnabled bool    `env:"RISK_MANAGER_ENABLED, default=true"`
}

// NotificationsConfig holds Telegram credentials. Empty token disables alerts.
type NotificationsConfig struct {
	Token  string `env:"TOKEN"`
	ChatID string `env:"CHAT_ID"`
}

// Enabled reports whether both token and chat id are set.
func (n NotificationsConfig) Enabled() bool {
	return n.Token != "" && n.ChatID != ""
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration using the given lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
