package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_bot_trades_total",
			Help: "Total number of closed paper trades",
		},
		[]string{"symbol", "direction", "outcome"},
	)

	tradePnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_bot_trade_pnl",
			Help:    "Net PnL of closed trades in USD",
			Buckets: []float64{-200, -100, -50, -20, -10, -5, 0, 5, 10, 20, 50, 100, 200},
		},
		[]string{"strategy"},
	)

	// Account metrics
	balance = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_balance",
		Help: "Virtual account balance in USD",
	})

	drawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_drawdown_pct",
		Help: "Drawdown from peak balance in percent",
	})

	openPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trading_bot_open_positions",
		Help: "Number of open positions",
	})

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_bot_current_price",
			Help: "Last price of a symbol with an open position",
		},
		[]string{"symbol"},
	)

	// Strategy metrics
	strategyWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_bot_strategy_weight",
			Help: "Adaptive selection weight of a strategy",
		},
		[]string{"strategy"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_bot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradePnL)
	prometheus.MustRegister(balance)
	prometheus.MustRegister(drawdown)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(strategyWeight)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTrade records a closed trade.
func RecordTrade(symbol, direction, strategy string, pnl float64, won bool) {
	outcome := "loss"
	if won {
		outcome = "win"
	}
	tradesTotal.WithLabelValues(symbol, direction, outcome).Inc()
	tradePnL.WithLabelValues(strategy).Observe(pnl)
}

// UpdateAccount sets the account gauges.
func UpdateAccount(bal, drawdownPct float64, open int) {
	balance.Set(bal)
	drawdown.Set(drawdownPct)
	openPositions.Set(float64(open))
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// ClearPrice drops the price series of a closed symbol.
func ClearPrice(symbol string) {
	currentPrice.DeleteLabelValues(symbol)
}

// UpdateStrategyWeight updates the strategy weight metric
func UpdateStrategyWeight(strategy string, weight float64) {
	strategyWeight.WithLabelValues(strategy).Set(weight)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
