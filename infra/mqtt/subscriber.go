package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hres/core/engine"
	"github.com/kilianp07/hres/core/model"
	"github.com/kilianp07/hres/infra/logger"
)

// ErrEmptyMessage is returned for a message carrying neither settings nor
// a command.
var ErrEmptyMessage = errors.New("message has no settings and no command")

// Controller is the engine surface driven by remote messages.
type Controller interface {
	PatchSettings(p model.SettingsPatch) model.Settings
	Execute(cmd engine.Command) error
}

// Subscriber registers topic handlers.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// SettingsMessage is accepted on the settings topic. Settings fields are
// optional and the command, when present, runs after they are applied.
type SettingsMessage struct {
	model.SettingsPatch
	Command string `json:"command,omitempty"`
}

// SettingsSubscriber applies remote settings and commands to the engine.
type SettingsSubscriber struct {
	ctl   Controller
	topic string
	log   logger.Logger
}

// NewSettingsSubscriber creates a subscriber for cfg.SettingsTopic().
func NewSettingsSubscriber(ctl Controller, cfg Config) *SettingsSubscriber {
	cfg.SetDefaults()
	return &SettingsSubscriber{ctl: ctl, topic: cfg.SettingsTopic(), log: logger.New("mqtt_settings")}
}

// Topic returns the topic the subscriber listens on.
func (s *SettingsSubscriber) Topic() string { return s.topic }

// Register subscribes the handler on the client.
func (s *SettingsSubscriber) Register(sub Subscriber) error {
	return sub.Subscribe(s.topic, s.onMessage)
}

func (s *SettingsSubscriber) onMessage(_ paho.Client, msg paho.Message) {
	if err := s.Handle(msg.Payload()); err != nil {
		s.log.Warnf("reject message on %s: %v", msg.Topic(), err)
	}
}

// Handle decodes and applies one message.
func (s *SettingsSubscriber) Handle(payload []byte) error {
	var m SettingsMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return fmt.Errorf("decode settings message: %w", err)
	}
	if m.Empty() && m.Command == "" {
		return ErrEmptyMessage
	}
	var cmd engine.Command
	if m.Command != "" {
		c, err := engine.ParseCommand(m.Command)
		if err != nil {
			return err
		}
		cmd = c
	}
	if !m.Empty() {
		applied := s.ctl.PatchSettings(m.SettingsPatch)
		s.log.Infow("settings updated", map[string]any{
			"solar_intensity_pct": applied.SolarIntensityPct,
			"wind_speed_pct":      applied.WindSpeedPct,
			"load_demand_kw":      applied.LoadDemandKW,
			"grid_price":          applied.GridPrice,
			"initial_soc_pct":     applied.InitialSOCPct,
		})
	}
	if cmd != "" {
		if err := s.ctl.Execute(cmd); err != nil {
			return fmt.Errorf("execute %s: %w", cmd, err)
		}
		s.log.Infof("executed command %s", cmd)
	}
	return nil
}
