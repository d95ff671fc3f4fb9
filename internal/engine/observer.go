package engine

import (
	"fmt"

	"github.com/Cenotaph26/trading-botv5/internal/monitoring"
	"github.com/Cenotaph26/trading-botv5/internal/notifications"
	"github.com/Cenotaph26/trading-botv5/internal/position"
)

// OnOpen is called by the position manager after a position opens.
func (e *Engine) OnOpen(pos position.Position) {
	monitoring.UpdatePrice(pos.Symbol, pos.Entry)
	e.alert(notifications.LevelInfo, fmt.Sprintf("OPEN %s %s %dx @ %.4f | $%.0f | %s (AI %.0f%%)",
		pos.Symbol, pos.Direction, pos.Leverage, pos.Entry, pos.Size, pos.Strategy, pos.Confidence))
}

// OnClose is called by the position manager after a trade settles.
func (e *Engine) OnClose(rec position.TradeRecord) {
	monitoring.RecordTrade(rec.Symbol, string(rec.Direction), rec.Strategy, rec.PnL, rec.Won)
	monitoring.ClearPrice(rec.Symbol)
	if w := e.weights.Weight(rec.Strategy); w > 0 {
		monitoring.UpdateStrategyWeight(rec.Strategy, w)
	}

	level, tag := LevelSuccess, "WIN"
	if !rec.Won {
		level, tag = LevelWarn, "LOSS"
	}
	msg := fmt.Sprintf("%s %s %s | $%.2f (%.2f%%) | %s", tag, rec.Symbol, rec.Direction, rec.PnL, rec.PnLPct, rec.ExitReason)
	e.events.Add(level, msg)

	alertLevel := notifications.LevelSuccess
	if !rec.Won {
		alertLevel = notifications.LevelWarning
	}
	e.alert(alertLevel, msg)
}

// OnError is called when a single position update fails.
func (e *Engine) OnError(symbol string, err error) {
	msg := fmt.Sprintf("Error: %s: %v", symbol, err)
	e.events.Add(LevelError, msg)
	monitoring.RecordError("position_update")
	if e.health != nil {
		e.health.RecordError(msg)
	}
}

// alert delivers off the trading loop; a slow notifier never delays a step.
func (e *Engine) alert(level, msg string) {
	e.alerts.Add(1)
	go func() {
		defer e.alerts.Done()
		if err := e.notifier.SendAlert(level, msg); err != nil {
			e.log.LogWarning("notifier", "alert failed: %v", err)
		}
	}()
}
