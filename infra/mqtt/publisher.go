package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kilianp07/hres/core/engine"
	"github.com/kilianp07/hres/core/model"
	"github.com/kilianp07/hres/infra/logger"
)

// Publisher sends raw payloads to a topic.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// TickSource yields committed ticks.
type TickSource interface {
	Subscribe() <-chan engine.TickEvent
	Unsubscribe(<-chan engine.TickEvent)
}

// StateMessage is the JSON document published on the state topic.
type StateMessage struct {
	RunID  string       `json:"run_id"`
	State  StatePayload `json:"state"`
	Sample model.Sample `json:"sample"`
}

// StatePayload is the controller state without the embedded last sample.
type StatePayload struct {
	SOCPct        float64      `json:"soc_pct"`
	Status        model.Status `json:"status"`
	Reason        string       `json:"reason"`
	GridActive    bool         `json:"grid_active"`
	HighCostAlert bool         `json:"high_cost_alert"`
	SimulatedTime int64        `json:"simulated_time"`
	Running       bool         `json:"running"`
}

// NewStateMessage flattens a tick event for publication.
func NewStateMessage(ev engine.TickEvent) StateMessage {
	st := ev.State
	return StateMessage{
		RunID: ev.RunID,
		State: StatePayload{
			SOCPct:        model.Round(st.SOCPct, 1),
			Status:        st.Status,
			Reason:        st.Reason,
			GridActive:    st.GridActive,
			HighCostAlert: st.HighCostAlert,
			SimulatedTime: st.SimulatedTime,
			Running:       st.Running,
		},
		Sample: ev.Sample,
	}
}

// StatePublisher publishes every tick on the state topic.
type StatePublisher struct {
	pub    Publisher
	topic  string
	retain bool
	log    logger.Logger
}

// NewStatePublisher creates a publisher writing to cfg.StateTopic().
func NewStatePublisher(pub Publisher, cfg Config) *StatePublisher {
	cfg.SetDefaults()
	return &StatePublisher{
		pub:    pub,
		topic:  cfg.StateTopic(),
		retain: cfg.RetainState,
		log:    logger.New("mqtt_state_publisher"),
	}
}

// PublishTick encodes and sends one tick.
func (p *StatePublisher) PublishTick(ev engine.TickEvent) error {
	payload, err := json.Marshal(NewStateMessage(ev))
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return p.pub.Publish(p.topic, p.retain, payload)
}

// Run forwards ticks from src until ctx is done or the source closes.
func (p *StatePublisher) Run(ctx context.Context, src TickSource) error {
	ch := src.Subscribe()
	defer src.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := p.PublishTick(ev); err != nil {
				p.log.Errorf("publish tick %d: %v", ev.Sample.Tick, err)
			}
		}
	}
}
