package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/hres/config"
	"github.com/kilianp07/hres/core/engine"
	"github.com/kilianp07/hres/core/history"
	"github.com/kilianp07/hres/core/model"
	"github.com/kilianp07/hres/pkg/export"
)

type simulateOptions struct {
	ticks   int
	seed    int64
	noNoise bool
	format  string
	solar   float64
	wind    float64
	load    float64
	price   float64
	soc     float64
}

// Report is the output of an offline run.
type Report struct {
	RunID    string          `json:"run_id"`
	Ticks    int             `json:"ticks"`
	Seed     int64           `json:"seed"`
	Settings model.Settings  `json:"settings"`
	Final    model.State     `json:"final_state"`
	Summary  history.Summary `json:"summary"`
	History  []model.Sample  `json:"history"`
}

var simOpts simulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a fixed number of ticks offline and print the history",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		flags := cmd.Flags()
		s := &cfg.Simulation.Initial
		if flags.Changed("solar") {
			s.SolarIntensityPct = simOpts.solar
		}
		if flags.Changed("wind") {
			s.WindSpeedPct = simOpts.wind
		}
		if flags.Changed("load") {
			s.LoadDemandKW = simOpts.load
		}
		if flags.Changed("price") {
			s.GridPrice = simOpts.price
		}
		if flags.Changed("soc") {
			s.InitialSOCPct = simOpts.soc
		}
		rep, err := runSimulation(cfg.Simulation, simOpts)
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), rep, simOpts.format)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.IntVarP(&simOpts.ticks, "ticks", "n", 30, "number of ticks to run")
	f.Int64Var(&simOpts.seed, "seed", 1, "noise seed")
	f.BoolVar(&simOpts.noNoise, "no-noise", false, "disable generation and load noise")
	f.StringVarP(&simOpts.format, "output", "o", "json", "output format: json, yaml or csv")
	f.Float64Var(&simOpts.solar, "solar", 0, "solar intensity in percent")
	f.Float64Var(&simOpts.wind, "wind", 0, "wind speed in percent")
	f.Float64Var(&simOpts.load, "load", 0, "load demand in kW")
	f.Float64Var(&simOpts.price, "price", 0, "grid price")
	f.Float64Var(&simOpts.soc, "soc", 0, "initial state of charge in percent")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulation(cfg engine.Config, opts simulateOptions) (Report, error) {
	if opts.ticks <= 0 {
		return Report{}, fmt.Errorf("ticks must be positive, got %d", opts.ticks)
	}
	cfg.Seed = opts.seed
	cfg.DisableNoise = cfg.DisableNoise || opts.noNoise
	if cfg.HistoryCapacity < opts.ticks {
		cfg.HistoryCapacity = opts.ticks
	}
	eng, err := engine.New(cfg, nil)
	if err != nil {
		return Report{}, err
	}
	defer eng.Close()

	start := time.Unix(0, 0).UTC()
	tick := 0
	eng.SetClock(func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * cfg.TickPeriod())
	})
	for i := 0; i < opts.ticks; i++ {
		eng.Step()
	}
	st, samples := eng.Snapshot()
	return Report{
		RunID:    eng.RunID(),
		Ticks:    opts.ticks,
		Seed:     cfg.Seed,
		Settings: eng.Settings(),
		Final:    st,
		Summary:  history.Summarize(samples),
		History:  samples,
	}, nil
}

func writeReport(w io.Writer, rep Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml", "yml":
		return encodeYAML(w, rep)
	case "csv":
		return export.WriteCSV(w, rep.History)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// encodeYAML renders v through its JSON form so field names follow the
// json tags, then re-emits it in block style.
func encodeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
