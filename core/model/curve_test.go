package model

import (
	"math"
	"testing"
)

func TestCurveInterpolation(t *testing.T) {
	c := Curve{{Load: 0.4, Eff: 0.30}, {Load: 1.0, Eff: 0.42}}
	got, err := c.At(0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-0.36) > 1e-12 {
		t.Fatalf("expected 0.36 got %v", got)
	}
}

func TestCurveEndpoints(t *testing.T) {
	c := Curve{{Load: 0.4, Eff: 0.30}, {Load: 1.0, Eff: 0.42}}
	for _, tc := range []struct{ load, want float64 }{
		{0.4, 0.30},
		{1.0, 0.42},
	} {
		got, err := c.At(tc.load)
		if err != nil {
			t.Fatalf("load %v: %v", tc.load, err)
		}
		if got != tc.want {
			t.Fatalf("load %v: expected %v got %v", tc.load, tc.want, got)
		}
	}
}

func TestCurveOutsideDomain(t *testing.T) {
	c := Curve{{Load: 0.4, Eff: 0.30}, {Load: 1.0, Eff: 0.42}}
	if _, err := c.At(0.2); err == nil {
		t.Fatal("expected error below domain")
	}
	if _, err := c.At(1.1); err == nil {
		t.Fatal("expected error above domain")
	}
}

func TestCurveValidate(t *testing.T) {
	cases := map[string]Curve{
		"single point":   {{Load: 0.5, Eff: 0.4}},
		"eff above one":  {{Load: 0, Eff: 0.4}, {Load: 1, Eff: 1.2}},
		"zero eff":       {{Load: 0, Eff: 0}, {Load: 1, Eff: 0.4}},
		"not increasing": {{Load: 0.5, Eff: 0.4}, {Load: 0.5, Eff: 0.5}},
		"load above one": {{Load: 0, Eff: 0.4}, {Load: 1.5, Eff: 0.5}},
	}
	for name, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	ok := Curve{{Load: 0.4, Eff: 0.38}, {Load: 0.7, Eff: 0.40}, {Load: 1, Eff: 0.42}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid curve rejected: %v", err)
	}
}
