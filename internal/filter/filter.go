// Package filter applies the coarse legitimacy heuristic to enriched
// candidates. This is a placeholder threshold check, not a fraud
// detector: it only weeds out tokens with obviously weak metrics.
package filter

import "listing-radar/internal/domain"

// Thresholds are the configured minimums a candidate must clear.
type Thresholds struct {
	MinFDV       float64
	MinLiquidity float64
}

// DefaultThresholds mirror the historical defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinFDV:       1_000_000,
		MinLiquidity: 5_000,
	}
}

// Evaluate accepts a candidate when both fully diluted value and
// liquidity exceed their thresholds. A missing value on either field is
// a rejection, never a pass by default.
func Evaluate(c *domain.TokenCandidate, t Thresholds) domain.Verdict {
	v := domain.Verdict{
		FullyDilutedValue: c.FullyDilutedValue,
		LiquidityUSD:      c.LiquidityUSD,
	}

	switch {
	case c.FullyDilutedValue == nil:
		v.Reason = "missing fully diluted value"
	case c.LiquidityUSD == nil:
		v.Reason = "missing liquidity"
	case *c.FullyDilutedValue <= t.MinFDV:
		v.Reason = "fully diluted value below threshold"
	case *c.LiquidityUSD <= t.MinLiquidity:
		v.Reason = "liquidity below threshold"
	default:
		v.Accepted = true
	}
	return v
}
