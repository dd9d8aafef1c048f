package quotes

import (
	"errors"
	"fmt"
)

// Insulation levels accepted by the calculator.
const (
	InsulationPoor    = "matig"
	InsulationAverage = "gemiddeld"
	InsulationGood    = "goed"
)

// Product lines offered on the public site.
const (
	LineBasis   = "basis"
	LineComfort = "comfort"
	LinePremium = "premium"
)

// ErrInvalidInput is returned for out-of-range calculator input.
var ErrInvalidInput = errors.New("invalid quote input")

// Heat demand per square metre, by insulation level, in watts.
var wattPerM2 = map[string]int{
	InsulationPoor:    90,
	InsulationAverage: 70,
	InsulationGood:    50,
}

// Base unit price per product line, in cents, excluding VAT.
var baseUnitCents = map[string]int64{
	LineBasis:   289_500,
	LineComfort: 399_500,
	LinePremium: 529_500,
}

const (
	minCapacityKW = 3.5
	maxCapacityKW = 16.0

	// Surcharge per 0.5 kW above the minimum unit, in cents.
	capacityStepCents = 22_500

	// Base installation labor plus a per-step allowance, in cents.
	laborBaseCents = 52_000
	laborStepCents = 2_600

	materialsCents = 38_500

	vatPermille = 210 // 21% BTW
)

// LineItem is one row of a quote estimate.
type LineItem struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amountCents"`
}

// Estimate is the deterministic outcome of the quote calculator.
type Estimate struct {
	CapacityKW    float64    `json:"capacityKw"`
	Lines         []LineItem `json:"lines"`
	SubtotalCents int64      `json:"subtotalCents"`
	VATCents      int64      `json:"vatCents"`
	TotalCents    int64      `json:"totalCents"`
}

// Calculate produces a price estimate for the given dwelling. The same input
// always yields the same estimate; quotes are reproducible from their stored
// parameters.
func Calculate(dwellingArea int, insulation, productLine string) (*Estimate, error) {
	if dwellingArea < 20 || dwellingArea > 1000 {
		return nil, fmt.Errorf("%w: woonoppervlak moet tussen 20 en 1000 m2 liggen", ErrInvalidInput)
	}
	watt, ok := wattPerM2[insulation]
	if !ok {
		return nil, fmt.Errorf("%w: onbekend isolatieniveau %q", ErrInvalidInput, insulation)
	}
	base, ok := baseUnitCents[productLine]
	if !ok {
		return nil, fmt.Errorf("%w: onbekende productlijn %q", ErrInvalidInput, productLine)
	}

	// Required capacity, rounded up to the next half kW and clamped to the
	// range of units we install.
	neededKW := float64(dwellingArea*watt) / 1000.0
	steps := 0
	capacity := minCapacityKW
	for capacity < neededKW && capacity < maxCapacityKW {
		capacity += 0.5
		steps++
	}

	lines := []LineItem{
		{Description: fmt.Sprintf("Warmtepomp %s (%.1f kW)", productLine, capacity), AmountCents: base},
		{Description: "Capaciteitstoeslag", AmountCents: int64(steps) * capacityStepCents},
		{Description: "Installatie en inbedrijfstelling", AmountCents: laborBaseCents + int64(steps)*laborStepCents},
		{Description: "Montagemateriaal en leidingwerk", AmountCents: materialsCents},
	}

	var subtotal int64
	for _, l := range lines {
		subtotal += l.AmountCents
	}
	vat := (subtotal*vatPermille + 500) / 1000
	return &Estimate{
		CapacityKW:    capacity,
		Lines:         lines,
		SubtotalCents: subtotal,
		VATCents:      vat,
		TotalCents:    subtotal + vat,
	}, nil
}
