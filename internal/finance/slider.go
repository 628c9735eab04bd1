package finance

import "math"

const (
	// MinAmountFraction of an offer's maximum is the lowest selectable amount.
	MinAmountFraction = 0.2
	// SliderStep is the slider granularity in rupees.
	SliderStep = 1000
)

// Bounds of the amount slider for one offer.
type Bounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// SliderBounds returns [0.2 × max, max] with a 1000 step.
func SliderBounds(maxAmount float64) Bounds {
	return Bounds{
		Min:  maxAmount * MinAmountFraction,
		Max:  maxAmount,
		Step: SliderStep,
	}
}

// Contains reports whether amount is selectable. Both ends are inclusive and the
// floor is compared exactly.
func (b Bounds) Contains(amount float64) bool {
	return amount >= b.Min && amount <= b.Max && b.Max > 0
}

// Snap maps a raw slider value onto the nearest selectable amount. Positions
// are counted in steps from Min, so Min itself is always returned unchanged.
func (b Bounds) Snap(amount float64) float64 {
	if amount <= b.Min {
		return b.Min
	}
	if amount >= b.Max {
		return b.Max
	}
	steps := math.Round((amount - b.Min) / b.Step)
	snapped := b.Min + steps*b.Step
	if snapped > b.Max {
		return b.Max
	}
	return snapped
}

// Positions is the number of distinct slider stops, Max included.
func (b Bounds) Positions() int {
	if b.Max <= b.Min || b.Step <= 0 {
		return 1
	}
	n := int(math.Floor((b.Max - b.Min) / b.Step))
	if b.Min+float64(n)*b.Step < b.Max {
		n++
	}
	return n + 1
}
