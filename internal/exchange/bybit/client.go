package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client reads public market data from the Bybit v5 API. Keys are optional;
// the endpoints it calls are unauthenticated.
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
	retry      RetryConfig
}

// Config selects the venue environment.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// NewClient creates a client for mainnet or testnet.
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}
	return &Client{
		httpClient: bybit_api.NewBybitHttpClient(config.APIKey, config.APISecret, bybit_api.WithBaseURL(baseURL)),
		testnet:    config.Testnet,
		retry:      DefaultRetryConfig(),
	}
}

// Environment is "testnet" or "mainnet".
func (c *Client) Environment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}
