package model

// GridPriceExpensive is the price above which grid import is considered
// costly.
const GridPriceExpensive = 1400.0

// State is the externally visible controller state after the last tick.
type State struct {
	RunID         string  `json:"run_id"`
	SOCPct        float64 `json:"soc_pct"`
	Status        Status  `json:"status"`
	Reason        string  `json:"reason"`
	GridActive    bool    `json:"grid_active"`
	SimulatedTime int64   `json:"simulated_time"`
	Running       bool    `json:"running"`
	// HighCostAlert is set while the grid is importing at an expensive price.
	HighCostAlert bool    `json:"high_cost_alert"`
	LastSample    *Sample `json:"last_sample,omitempty"`
}

// InitialReason is reported before the first tick.
const InitialReason = "Initializing..."

// IsHighCost reports whether importing at price is flagged as costly.
func IsHighCost(gridActive bool, price float64) bool {
	return gridActive && price > GridPriceExpensive
}
