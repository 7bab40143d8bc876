package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hres/core/engine"
	"github.com/kilianp07/hres/core/model"
)

type fakeController struct {
	patches  []model.SettingsPatch
	commands []engine.Command
	err      error
}

func (f *fakeController) PatchSettings(p model.SettingsPatch) model.Settings {
	f.patches = append(f.patches, p)
	return p.Apply(model.DefaultSettings())
}

func (f *fakeController) Execute(c engine.Command) error {
	f.commands = append(f.commands, c)
	return f.err
}

func TestSettingsSubscriber_Handle(t *testing.T) {
	ctl := &fakeController{}
	s := NewSettingsSubscriber(ctl, Config{})
	assert.Equal(t, "hres/settings/set", s.Topic())

	require.NoError(t, s.Handle([]byte(`{"grid_price":1800,"load_demand_kw":90}`)))
	require.Len(t, ctl.patches, 1)
	require.NotNil(t, ctl.patches[0].GridPrice)
	assert.Equal(t, 1800.0, *ctl.patches[0].GridPrice)
	assert.Nil(t, ctl.patches[0].SolarIntensityPct)
	assert.Empty(t, ctl.commands)

	require.NoError(t, s.Handle([]byte(`{"command":"PAUSE"}`)))
	assert.Equal(t, []engine.Command{engine.CommandPause}, ctl.commands)
	assert.Len(t, ctl.patches, 1)

	require.NoError(t, s.Handle([]byte(`{"solar_intensity_pct":0,"command":"reset"}`)))
	assert.Len(t, ctl.patches, 2)
	assert.Equal(t, engine.CommandReset, ctl.commands[1])
}

func TestSettingsSubscriber_Rejects(t *testing.T) {
	ctl := &fakeController{}
	s := NewSettingsSubscriber(ctl, Config{})

	assert.Error(t, s.Handle([]byte(`not json`)))
	assert.ErrorIs(t, s.Handle([]byte(`{}`)), ErrEmptyMessage)
	assert.ErrorIs(t, s.Handle([]byte(`{"grid_price":1200,"command":"fly"}`)), engine.ErrUnknownCommand)
	assert.Empty(t, ctl.patches, "invalid command rejects the whole message")

	ctl.err = engine.ErrClosed
	assert.ErrorIs(t, s.Handle([]byte(`{"command":"start"}`)), engine.ErrClosed)
}

func TestSettingsSubscriber_AppliesToEngine(t *testing.T) {
	mc := newMockClient()
	installMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	eng, err := engine.New(engine.Config{DisableNoise: true}, nil)
	require.NoError(t, err)
	defer eng.Close()

	s := NewSettingsSubscriber(eng, cli.Config())
	require.NoError(t, s.Register(cli))
	h := mc.handler("hres/settings/set")
	require.NotNil(t, h)

	h(mc, mockMessage{topic: "hres/settings/set", p: []byte(`{"wind_speed_pct":250,"grid_price":1949}`)})
	got := eng.Settings()
	assert.Equal(t, 100.0, got.WindSpeedPct)
	assert.Equal(t, 1900.0, got.GridPrice)
	assert.Equal(t, model.DefaultSettings().LoadDemandKW, got.LoadDemandKW)
}
