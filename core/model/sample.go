package model

import (
	"math"
	"time"
)

// Sample is the telemetry record produced once per tick. It is never
// mutated after creation.
type Sample struct {
	Tick      int64     `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
	SolarKW   float64   `json:"solar_kw"`
	WindKW    float64   `json:"wind_kw"`
	LoadKW    float64   `json:"load_kw"`
	SOCPct    float64   `json:"soc_pct"`
	GridPrice float64   `json:"grid_price"`
	Action    Action    `json:"action"`
	NetLoadKW float64   `json:"net_load_kw"`
	Status    Status    `json:"status"`
}

// NewSample builds a Sample, rounding power values to two decimals and
// the SOC to one.
func NewSample(tick int64, ts time.Time, solar, wind, load, soc, price, net float64, action Action, status Status) Sample {
	return Sample{
		Tick:      tick,
		Timestamp: ts,
		SolarKW:   Round(solar, 2),
		WindKW:    Round(wind, 2),
		LoadKW:    Round(load, 2),
		SOCPct:    Round(soc, 1),
		GridPrice: price,
		Action:    action,
		NetLoadKW: Round(net, 2),
		Status:    status,
	}
}

// Round rounds f to the given number of decimals.
func Round(f float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(f*p) / p
}
