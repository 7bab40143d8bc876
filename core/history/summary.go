package history

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/hres/core/model"
)

// Stats describes one series over the window.
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary aggregates a window of samples.
type Summary struct {
	Count         int                  `json:"count"`
	NetLoadKW     Stats                `json:"net_load_kw"`
	SOCPct        Stats                `json:"soc_pct"`
	GenerationKW  Stats                `json:"generation_kw"`
	Actions       map[string]int       `json:"actions"`
	Statuses      map[model.Status]int `json:"statuses"`
	GridTicks     int                  `json:"grid_ticks"`
	HighCostTicks int                  `json:"high_cost_ticks"`
	SOCChangePct  float64              `json:"soc_change_pct"`
}

// Summarize computes window statistics. An empty slice yields a zero
// Summary with empty maps.
func Summarize(samples []model.Sample) Summary {
	sum := Summary{
		Count:    len(samples),
		Actions:  map[string]int{},
		Statuses: map[model.Status]int{},
	}
	if len(samples) == 0 {
		return sum
	}
	net := make([]float64, len(samples))
	soc := make([]float64, len(samples))
	gen := make([]float64, len(samples))
	for i, s := range samples {
		net[i] = s.NetLoadKW
		soc[i] = s.SOCPct
		gen[i] = s.SolarKW + s.WindKW
		sum.Actions[s.Action.String()]++
		sum.Statuses[s.Status]++
		if s.Status == model.StatusUsingGrid || s.Status == model.StatusForcedGrid {
			sum.GridTicks++
			if model.IsHighCost(true, s.GridPrice) {
				sum.HighCostTicks++
			}
		}
	}
	sum.NetLoadKW = describe(net)
	sum.SOCPct = describe(soc)
	sum.GenerationKW = describe(gen)
	sum.SOCChangePct = model.Round(soc[len(soc)-1]-soc[0], 1)
	return sum
}

func describe(xs []float64) Stats {
	mean, std := stat.MeanStdDev(xs, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Stats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
	}
}
