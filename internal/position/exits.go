package position

import (
	"fmt"
	"math"

	"github.com/Cenotaph26/trading-botv5/internal/config"
	"github.com/Cenotaph26/trading-botv5/pkg/types"
)

// Exit thresholds not exposed through RiskConfig.
const (
	profitProtectMinTicks = 5
	lossCutMinTicks       = 2
	hardLossPct           = 2.0
	recoveryLossPct       = 1.5
	nearStopPct           = 1.5
	nearTargetPct         = 0.5
	recoveryScore         = 2
)

// Rescorer returns a fresh score for the position's symbol. ok is false when
// no signal could be produced.
type Rescorer func() (score int, ok bool)

// Targets returns take-profit and stop-loss prices. Both distances scale with
// leverage/3.
func Targets(direction types.Direction, entry float64, leverage int, tpPct, slPct float64) (tp, sl float64) {
	scale := float64(leverage) / 3
	tpM := tpPct / 100 * scale
	slM := slPct / 100 * scale
	if direction == types.Short {
		return entry * (1 - tpM), entry * (1 + slM)
	}
	return entry * (1 + tpM), entry * (1 - slM)
}

// LeveragedPnLPct returns the signed, leveraged percentage move from entry.
func LeveragedPnLPct(direction types.Direction, entry, price float64, leverage int) float64 {
	if entry <= 0 {
		return 0
	}
	return direction.Sign() * (price - entry) / entry * 100 * float64(leverage)
}

// ExitReason evaluates profit protection, loss containment and the standard
// targets in that order against an already updated position. rescore is
// called lazily and at most as often as a policy needs it.
func ExitReason(pos Position, cfg config.RiskConfig, rescore Rescorer) (string, bool) {
	price := pos.Current
	if price <= 0 {
		return "", false
	}

	tpDistance := math.Abs(pos.TakeProfit-price) / price * 100
	slDistance := math.Abs(price-pos.StopLoss) / price * 100
	lossPct := math.Abs(pos.PnLPct)

	if cfg.ProfitProtect && pos.PnL > 0 && pos.Ticks > profitProtectMinTicks {
		if score, ok := rescore(); ok {
			reason := ""
			switch {
			case pos.Direction == types.Long && score <= cfg.SmartExitScore:
				reason = fmt.Sprintf("strong reverse momentum (score %d)", score)
			case pos.Direction == types.Short && score >= -cfg.SmartExitScore:
				reason = fmt.Sprintf("strong reverse momentum (score %d)", score)
			}
			if pos.MaxPnL > 0 && pos.PnL <= pos.MaxPnL*(1-cfg.MaxPnLDrawdown) {
				reason = fmt.Sprintf("retraced %.0f%%+ from max PnL", cfg.MaxPnLDrawdown*100)
			}
			if tpDistance < nearTargetPct && math.Abs(float64(score)) < 1 {
				reason = "near TP, locking profit"
			}
			if reason != "" {
				return "Smart Exit: " + reason, true
			}
		}
	}

	if pos.PnL < 0 && pos.Ticks > lossCutMinTicks {
		reason := ""
		switch {
		case lossPct >= hardLossPct:
			reason = fmt.Sprintf("loss above %.0f%% (%.1f%%)", hardLossPct, pos.PnLPct)
		case slDistance < nearStopPct:
			reason = "too close to SL"
		case cfg.LossRecovery && lossPct >= recoveryLossPct:
			if score, ok := rescore(); ok {
				if (pos.Direction == types.Long && score < recoveryScore) ||
					(pos.Direction == types.Short && score > -recoveryScore) {
					reason = fmt.Sprintf("loss growing, no recovery (score %d)", score)
				}
			}
		}
		if reason != "" {
			return "Loss Cut: " + reason, true
		}
	}

	if pos.Direction == types.Long {
		if price >= pos.TakeProfit {
			return "TP", true
		}
		if price <= pos.StopLoss {
			return "SL", true
		}
		return "", false
	}

	if price <= pos.TakeProfit {
		return "TP", true
	}
	if price >= pos.StopLoss {
		return "SL", true
	}
	return "", false
}
