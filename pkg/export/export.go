// Package export writes sample histories in interchange formats.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/hres/core/model"
)

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{
	"tick", "timestamp", "solar_kw", "wind_kw", "load_kw", "net_load_kw",
	"soc_pct", "grid_price", "action", "status",
}

// WriteCSV writes the samples to w with a header row.
func WriteCSV(w io.Writer, samples []model.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, s := range samples {
		rec := []string{
			strconv.FormatInt(s.Tick, 10),
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			formatFloat(s.SolarKW),
			formatFloat(s.WindKW),
			formatFloat(s.LoadKW),
			formatFloat(s.NetLoadKW),
			formatFloat(s.SOCPct),
			formatFloat(s.GridPrice),
			strconv.Itoa(int(s.Action)),
			s.Status.String(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
