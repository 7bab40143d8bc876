// Package controller contains the rule-based dispatch policy deciding, for
// one tick, whether the battery charges, discharges, holds, or the grid
// supplies the deficit.
package controller

import (
	"fmt"

	"github.com/kilianp07/hres/core/battery"
	"github.com/kilianp07/hres/core/model"
)

// Thresholds parametrize the rule set.
type Thresholds struct {
	// SOCMaxLimit stops charging at or above this SOC.
	SOCMaxLimit float64 `json:"soc_max_limit"`
	// SOCMinLimit forbids discharging at or below this SOC.
	SOCMinLimit float64 `json:"soc_min_limit"`
	// GridPriceExpensive switches deficits to the battery above this price.
	GridPriceExpensive float64 `json:"grid_price_expensive"`
}

// DefaultThresholds returns the reference limits 80 %, 20 % and 1400.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SOCMaxLimit:        80,
		SOCMinLimit:        20,
		GridPriceExpensive: model.GridPriceExpensive,
	}
}

// Validate checks the limits are ordered and inside [0,100].
func (t Thresholds) Validate() error {
	if t.SOCMinLimit < 0 || t.SOCMaxLimit > 100 || t.SOCMinLimit >= t.SOCMaxLimit {
		return fmt.Errorf("invalid soc limits min=%g max=%g", t.SOCMinLimit, t.SOCMaxLimit)
	}
	if t.GridPriceExpensive <= 0 {
		return fmt.Errorf("grid_price_expensive must be positive")
	}
	return nil
}

// Decision is the outcome of one dispatch evaluation.
type Decision struct {
	Action  model.Action
	Status  model.Status
	Reason  string
	UseGrid bool
	NewSOC  float64
}

// Policy maps net load, SOC and grid price to a Decision.
type Policy interface {
	Decide(netLoadKW, socPct, gridPrice float64) Decision
}

// RuleBased is the deterministic threshold policy. It holds no state
// between calls.
type RuleBased struct {
	Thresholds Thresholds
}

// NewRuleBased returns a RuleBased policy using t.
func NewRuleBased(t Thresholds) RuleBased {
	return RuleBased{Thresholds: t}
}

// Decide evaluates the rules using the default thresholds.
func Decide(netLoadKW, socPct, gridPrice float64) Decision {
	return RuleBased{Thresholds: DefaultThresholds()}.Decide(netLoadKW, socPct, gridPrice)
}

// Decide evaluates the rule tree. The surplus test is strict, so an exactly
// balanced tick is handled as a deficit.
func (p RuleBased) Decide(netLoadKW, socPct, gridPrice float64) Decision {
	t := p.Thresholds
	if netLoadKW < 0 {
		if socPct < t.SOCMaxLimit {
			return Decision{
				Action: model.ActionCharge,
				Status: model.StatusCharging,
				Reason: "Surplus energy & SOC below limit",
				NewSOC: battery.Charge(socPct, -netLoadKW),
			}
		}
		return Decision{
			Action: model.ActionIdle,
			Status: model.StatusBatteryLimitReached,
			Reason: fmt.Sprintf("SOC at or above %g%% — holding", t.SOCMaxLimit),
			NewSOC: socPct,
		}
	}
	if gridPrice > t.GridPriceExpensive {
		if socPct > t.SOCMinLimit {
			return Decision{
				Action: model.ActionDischarge,
				Status: model.StatusDischarging,
				Reason: "Generation low & grid expensive",
				NewSOC: battery.Discharge(socPct, netLoadKW),
			}
		}
		return Decision{
			Action:  model.ActionIdle,
			Status:  model.StatusForcedGrid,
			Reason:  fmt.Sprintf("Battery critical (<%g%%) — safety fallback", t.SOCMinLimit),
			UseGrid: true,
			NewSOC:  socPct,
		}
	}
	return Decision{
		Action:  model.ActionIdle,
		Status:  model.StatusUsingGrid,
		Reason:  "Grid price low — conserving battery",
		UseGrid: true,
		NewSOC:  socPct,
	}
}
