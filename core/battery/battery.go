// Package battery implements the state-of-charge model of the storage unit.
package battery

import (
	"math"

	"github.com/kilianp07/hres/core/model"
)

const (
	// CapacityKWh is the usable energy of the battery.
	CapacityKWh = 100.0
	// RateFactor scales a kW mismatch into the SOC change of one tick.
	RateFactor = 5.0
)

// Charge returns the SOC after absorbing surplusKW for one tick, capped at
// 100 %. The sign of surplusKW is ignored.
func Charge(soc, surplusKW float64) float64 {
	return model.ClampSOC(math.Min(100, soc+Delta(surplusKW)))
}

// Discharge returns the SOC after supplying deficitKW for one tick, floored
// at 0 %. The sign of deficitKW is ignored.
func Discharge(soc, deficitKW float64) float64 {
	return model.ClampSOC(math.Max(0, soc-Delta(deficitKW)))
}

// Delta is the SOC change in percentage points for a mismatch of kw over
// one tick.
func Delta(kw float64) float64 {
	return math.Abs(kw) / CapacityKWh * RateFactor
}
