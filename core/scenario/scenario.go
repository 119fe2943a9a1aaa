package scenario

import (
	"fmt"

	"github.com/kilianp07/chpsim/core/model"
)

// Contract is a linear price transform applied to a raw market price:
// price = A*market + B. The zero value is treated as identity.
type Contract struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// Apply returns the contract price for the given market price.
func (c Contract) Apply(market float64) float64 {
	if c.A == 0 && c.B == 0 {
		return market
	}
	return c.A*market + c.B
}

// Scenario describes one simulation case: a name and the commercial
// parameters translating raw market prices into effective plant prices.
// Unit definitions and the feed are shared across scenarios and stay
// read-only for the run's duration.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Electricity offtake: contract on the spot price plus grid cost
	// and energy tax per MWh.
	Offtake         Contract `json:"offtake"`
	OfftakeGridCost float64  `json:"offtake_grid_cost"`
	OfftakeTax      float64  `json:"offtake_tax"`

	// Electricity injection: contract on the spot price.
	Injection Contract `json:"injection"`

	// Gas offtake: contract on the TTF price plus grid cost per MWh.
	Gas         Contract `json:"gas"`
	GasGridCost float64  `json:"gas_grid_cost"`
}

// Validate checks mandatory fields.
func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	return nil
}

// Transform returns a copy of the feed row with scenario prices applied.
// The raw row carries the day-ahead spot price in PowerPrice and the
// raw TTF price in GasPrice.
func (s Scenario) Transform(pt model.DemandPricePoint) model.DemandPricePoint {
	spot := pt.PowerPrice
	pt.PowerPrice = s.Offtake.Apply(spot) + s.OfftakeGridCost + s.OfftakeTax
	pt.InjectionPrice = s.Injection.Apply(spot)
	pt.GasPrice = s.Gas.Apply(pt.GasPrice) + s.GasGridCost
	return pt
}
