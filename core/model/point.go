package model

import (
	"fmt"
	"math"
	"time"
)

// DemandPricePoint is one immutable row of the demand/price feed.
// Prices are EUR per MWh except CO2Price which is EUR per tonne.
type DemandPricePoint struct {
	Timestamp       time.Time `json:"timestamp"`
	HeatDemandMW    float64   `json:"heat_demand_mw"`
	PowerDemandMW   float64   `json:"power_demand_mw"`
	GasPrice        float64   `json:"gas_price"`
	PowerPrice      float64   `json:"power_price"`
	InjectionPrice  float64   `json:"injection_price"`
	CO2Price        float64   `json:"co2_price"`
	AmbientTempC    float64   `json:"ambient_temp_c"`
}

// Validate checks that the row is well formed. A violation makes the
// whole run abort, it is never skipped silently.
func (p DemandPricePoint) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("feed row has no timestamp")
	}
	for name, v := range map[string]float64{
		"heat_demand":     p.HeatDemandMW,
		"power_demand":    p.PowerDemandMW,
		"gas_price":       p.GasPrice,
		"power_price":     p.PowerPrice,
		"injection_price": p.InjectionPrice,
		"co2_price":       p.CO2Price,
		"ambient_temp":    p.AmbientTempC,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feed row %s: %s is not finite", p.Timestamp.Format(time.RFC3339), name)
		}
	}
	if p.HeatDemandMW < 0 || p.PowerDemandMW < 0 {
		return fmt.Errorf("feed row %s: negative demand", p.Timestamp.Format(time.RFC3339))
	}
	if p.InjectionPrice > p.PowerPrice {
		return fmt.Errorf("feed row %s: injection price %g above offtake price %g",
			p.Timestamp.Format(time.RFC3339), p.InjectionPrice, p.PowerPrice)
	}
	return nil
}

// EffectiveGasPrice is the gas price including the CO2 allowance cost
// for the given emission factor in tonnes per MWh of fuel.
func (p DemandPricePoint) EffectiveGasPrice(co2Factor float64) float64 {
	return p.GasPrice + p.CO2Price*co2Factor
}
