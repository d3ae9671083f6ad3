package order

import "math"

// ShippingPrice returns the flat shipping rate for a total shipped weight.
// Weight is not validated.
func ShippingPrice(totalWeight int) int {
	switch {
	case totalWeight < 500:
		return 5
	case totalWeight < 2000:
		return 10
	default:
		return 25
	}
}

// LineWeight is the shipped weight of quantity units. It saturates at
// math.MaxInt instead of wrapping.
func LineWeight(unitWeight, quantity int) int {
	if unitWeight <= 0 || quantity <= 0 {
		return 0
	}
	if unitWeight > math.MaxInt/quantity {
		return math.MaxInt
	}
	return unitWeight * quantity
}
