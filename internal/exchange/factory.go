package exchange

import (
	"fmt"
	"strings"

	"github.com/Cenotaph26/trading-botv5/internal/exchange/bybit"
)

// Supported providers.
const (
	ProviderBinance = "binance"
	ProviderBybit   = "bybit"
)

// SourceConfig selects the market data venue.
type SourceConfig struct {
	Provider  string
	APIKey    string
	APISecret string
	Testnet   bool
}

// GetSupportedProviders returns the accepted provider names.
func GetSupportedProviders() []string {
	return []string{ProviderBinance, ProviderBybit}
}

// NewSource creates the source for the configured provider. An empty
// provider means Binance.
func NewSource(cfg SourceConfig) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderBinance:
		return NewBinanceSource(cfg.APIKey, cfg.APISecret), nil
	case ProviderBybit:
		client := bybit.NewClient(bybit.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Testnet:   cfg.Testnet,
		})
		return bybit.NewSource(client), nil
	default:
		return nil, fmt.Errorf("provider %q is not supported, supported providers: %v",
			cfg.Provider, GetSupportedProviders())
	}
}
