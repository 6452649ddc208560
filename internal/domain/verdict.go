package domain

// Verdict is the outcome of the legitimacy filter for one candidate.
// Derived, never stored; the field values that produced the decision are
// carried for observability.
type Verdict struct {
	Accepted          bool     `json:"accepted"`
	FullyDilutedValue *float64 `json:"fully_diluted_value,omitempty"`
	LiquidityUSD      *float64 `json:"liquidity_usd,omitempty"`
	Reason            string   `json:"reason,omitempty"`
}
