package model

import "fmt"

// Status is the operational state reported by the dispatch controller.
type Status int

const (
	StatusIdle Status = iota
	StatusCharging
	StatusDischarging
	StatusUsingGrid
	StatusForcedGrid
	StatusBatteryLimitReached
)

var statusLabels = map[Status]string{
	StatusIdle:                "SYSTEM IDLE",
	StatusCharging:            "CHARGING",
	StatusDischarging:         "DISCHARGING",
	StatusUsingGrid:           "USING GRID",
	StatusForcedGrid:          "FORCED GRID",
	StatusBatteryLimitReached: "BATTERY LIMIT REACHED",
}

// String returns the display label of the status.
func (s Status) String() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "unknown"
}

// MarshalText encodes the status as its display label.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a display label.
func (s *Status) UnmarshalText(b []byte) error {
	v, ok := ParseStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown status %q", string(b))
	}
	*s = v
	return nil
}

// ParseStatus maps a display label back to its Status.
func ParseStatus(label string) (Status, bool) {
	for st, l := range statusLabels {
		if l == label {
			return st, true
		}
	}
	return StatusIdle, false
}

// Action encodes the battery action of a tick: -1 charging, 1 discharging,
// 0 idle or grid only.
type Action int

const (
	ActionCharge    Action = -1
	ActionIdle      Action = 0
	ActionDischarge Action = 1
)

// String returns a lower-case name for logs and metric labels.
func (a Action) String() string {
	switch a {
	case ActionCharge:
		return "charge"
	case ActionDischarge:
		return "discharge"
	case ActionIdle:
		return "idle"
	default:
		return "unknown"
	}
}
