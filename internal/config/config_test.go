package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "logs", cfg.Log.Dir)
	assert.Equal(t, ProviderBinance, cfg.Feed.Provider)
	assert.Equal(t, 10000.0, cfg.Agent.StartBalance)
	assert.True(t, cfg.Agent.AutoStart)
	assert.False(t, cfg.Agent.CloseOnStop)
	assert.False(t, cfg.Notifications.Enabled())
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORT":             "9090",
		"LOG_LEVEL":        "debug",
		"FEED_PROVIDER":    "bybit",
		"BYBIT_TESTNET":    "true",
		"START_BALANCE":    "2500",
		"CLOSE_ON_STOP":    "true",
		"TELEGRAM_TOKEN":   "t",
		"TELEGRAM_CHAT_ID": "42",
		"RISK_PROFILE":     "risk.yaml",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ProviderBybit, cfg.Feed.Provider)
	assert.True(t, cfg.Feed.Testnet)
	assert.Equal(t, 2500.0, cfg.Agent.StartBalance)
	assert.True(t, cfg.Agent.CloseOnStop)
	assert.True(t, cfg.Notifications.Enabled())
	assert.Equal(t, "risk.yaml", cfg.RiskProfile)
}

func TestLoadWith_RejectsUnknownProvider(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"FEED_PROVIDER": "kraken",
	}))
	assert.Error(t, err)
}

func TestDefaultRiskConfig(t *testing.T) {
	cfg := DefaultRiskConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7, cfg.MaxPositions)
	assert.Equal(t, 9.0, cfg.PositionSizePct)
	assert.Equal(t, 0, cfg.Leverage)
	assert.Equal(t, 2.0, cfg.TPPct)
	assert.Equal(t, 0.8, cfg.SLPct)
	assert.Equal(t, 4, cfg.MinScore)
	assert.Equal(t, 50.0, cfg.MinConf)
	assert.Equal(t, 6.0, cfg.MaxATRPct)
	assert.Equal(t, 20, cfg.ScanSize)
	assert.Equal(t, 2, cfg.ScanInterval)
	assert.True(t, cfg.ProfitProtect)
	assert.Equal(t, 0.5, cfg.MaxPnLDrawdown)
	assert.True(t, cfg.LossRecovery)
	assert.Equal(t, -3, cfg.SmartExitScore)
}

func TestRiskStore_ApplyCoercesTypes(t *testing.T) {
	store := NewRiskStore(DefaultRiskConfig())

	applied, err := store.Apply(map[string]any{
		"max_positions":  float64(3.9),
		"tp_pct":         "2.5",
		"leverage":       5,
		"profit_protect": "false",
		"unknown_key":    123,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"max_positions", "tp_pct", "leverage", "profit_protect"}, applied)

	cfg := store.Get()
	assert.Equal(t, 3, cfg.MaxPositions)
	assert.Equal(t, 2.5, cfg.TPPct)
	assert.Equal(t, 5, cfg.Leverage)
	assert.False(t, cfg.ProfitProtect)
}

func TestRiskStore_ApplyIsAllOrNothing(t *testing.T) {
	store := NewRiskStore(DefaultRiskConfig())

	_, err := store.Apply(map[string]any{
		"tp_pct":   3.0,
		"min_conf": "lots",
	})
	assert.Error(t, err)
	assert.Equal(t, 2.0, store.Get().TPPct)

	_, err = store.Apply(map[string]any{
		"tp_pct":        3.0,
		"max_positions": 0,
	})
	assert.Error(t, err)
	assert.Equal(t, DefaultRiskConfig(), store.Get())
}

func TestRiskStore_ConcurrentAccess(t *testing.T) {
	store := NewRiskStore(DefaultRiskConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = store.Apply(map[string]any{"scan_size": i + 1})
		}(i)
		go func() {
			defer wg.Done()
			_ = store.Get()
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, store.Get().ScanSize, 1)
}

func TestLoadRiskProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_positions: 3\ntp_pct: 1.5\nloss_recovery: false\n"), 0644))

	cfg, err := LoadRiskProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxPositions)
	assert.Equal(t, 1.5, cfg.TPPct)
	assert.False(t, cfg.LossRecovery)
	assert.Equal(t, 0.8, cfg.SLPct)
}

func TestLoadRiskProfile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_pnl_drawdown: 4\n"), 0644))

	cfg, err := LoadRiskProfile(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultRiskConfig(), cfg)

	_, err = LoadRiskProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
