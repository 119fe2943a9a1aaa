package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/chpsim/core/scenario"
)

// WriteJSON writes the scenario result to w in JSON format.
func WriteJSON(w io.Writer, res *scenario.Result) error {
	enc := json.NewEncoder(w)
	return enc.Encode(res)
}

// WriteCSV writes the result table to w. Column names are stable and
// follow the configured unit order: timestamp, per-unit heat and power,
// grid offtake/injection, total cost and the infeasibility flag.
func WriteCSV(w io.Writer, res *scenario.Result) error {
	cw := csv.NewWriter(w)
	header := []string{"timestamp"}
	for _, name := range res.UnitNames() {
		header = append(header, name+"_heat_mw", name+"_power_mw")
	}
	header = append(header, "grid_offtake_mw", "grid_injection_mw", "total_cost", "infeasible")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, step := range res.Steps {
		rec := []string{step.Timestamp.Format(time.RFC3339)}
		for _, out := range step.Decision.Outputs {
			rec = append(rec, formatMW(out.HeatMW), formatMW(out.PowerMW))
		}
		rec = append(rec,
			formatMW(step.Decision.OfftakeMW),
			formatMW(step.Decision.InjectionMW),
			strconv.FormatFloat(step.Decision.CostEUR, 'f', -1, 64),
			strconv.FormatBool(step.Decision.Infeasible),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMW(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
