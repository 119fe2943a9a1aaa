package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kilianp07/chpsim/core/model"
)

// Required and optional columns of the demand/price table. Injection
// defaults to the spot price and CO2 to zero when absent.
var (
	requiredColumns = []string{
		"timestamp", "heat_demand_mw", "power_demand_mw",
		"gas_price_eur_mwh", "power_price_eur_mwh", "ambient_temp_c",
	}
	optionalColumns = []string{"injection_price_eur_mwh", "co2_price_eur_t"}
)

// ReadFile loads a demand/price feed from a CSV file.
func ReadFile(path string) ([]model.DemandPricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pts, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}

// Read parses a demand/price feed. Rows must carry strictly increasing
// timestamps; a violation is a configuration error, never skipped.
func Read(r io.Reader) ([]model.DemandPricePoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := idx[name]; !ok {
			return nil, &model.ConfigError{Err: fmt.Errorf("feed is missing column %q", name)}
		}
	}

	var pts []model.DemandPricePoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pt, err := parseRow(rec, idx)
		if err != nil {
			return nil, &model.ConfigError{Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if err := pt.Validate(); err != nil {
			return nil, &model.ConfigError{Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if len(pts) > 0 && !pt.Timestamp.After(pts[len(pts)-1].Timestamp) {
			return nil, &model.ConfigError{Err: fmt.Errorf("line %d: timestamp %s not after previous row",
				line, pt.Timestamp.Format(time.RFC3339))}
		}
		pts = append(pts, pt)
	}
	if len(pts) == 0 {
		return nil, &model.ConfigError{Err: fmt.Errorf("feed has no rows")}
	}
	return pts, nil
}

func parseRow(rec []string, idx map[string]int) (model.DemandPricePoint, error) {
	field := func(name string) (string, bool) {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return rec[i], true
	}
	num := func(name string) (float64, error) {
		s, ok := field(name)
		if !ok {
			return 0, fmt.Errorf("missing value for %s", name)
		}
		return strconv.ParseFloat(s, 64)
	}

	var pt model.DemandPricePoint
	tsStr, _ := field("timestamp")
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return pt, fmt.Errorf("timestamp %q: %w", tsStr, err)
	}
	pt.Timestamp = ts
	if pt.HeatDemandMW, err = num("heat_demand_mw"); err != nil {
		return pt, err
	}
	if pt.PowerDemandMW, err = num("power_demand_mw"); err != nil {
		return pt, err
	}
	if pt.GasPrice, err = num("gas_price_eur_mwh"); err != nil {
		return pt, err
	}
	if pt.PowerPrice, err = num("power_price_eur_mwh"); err != nil {
		return pt, err
	}
	if pt.AmbientTempC, err = num("ambient_temp_c"); err != nil {
		return pt, err
	}
	pt.InjectionPrice = pt.PowerPrice
	if _, ok := field("injection_price_eur_mwh"); ok {
		if pt.InjectionPrice, err = num("injection_price_eur_mwh"); err != nil {
			return pt, err
		}
	}
	if _, ok := field("co2_price_eur_t"); ok {
		if pt.CO2Price, err = num("co2_price_eur_t"); err != nil {
			return pt, err
		}
	}
	return pt, nil
}
