package order

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShippingPrice(t *testing.T) {
	tests := []struct {
		weight int
		want   int
	}{
		{-10, 5},
		{0, 5},
		{20, 5},
		{499, 5},
		{500, 10},
		{1555, 10},
		{1999, 10},
		{2000, 25},
		{5000, 25},
		{math.MaxInt, 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ShippingPrice(tt.weight), "weight %d", tt.weight)
	}
}

func TestLineWeight(t *testing.T) {
	tests := []struct {
		name     string
		unit     int
		quantity int
		want     int
	}{
		{"single", 400, 1, 400},
		{"ten", 400, 10, 4000},
		{"weightless", 0, 1000, 0},
		{"zero quantity", 400, 0, 0},
		{"negative quantity", 400, -3, 0},
		{"largest column values", math.MaxInt32, math.MaxInt32, math.MaxInt32 * math.MaxInt32},
		{"wraps to small positive", 400, 23058430092136940, math.MaxInt},
		{"max quantity", 1, math.MaxInt, math.MaxInt},
		{"max both", math.MaxInt, math.MaxInt, math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineWeight(tt.unit, tt.quantity))
		})
	}
	assert.Equal(t, 25, ShippingPrice(LineWeight(400, 23058430092136940)))
}

func TestOrderState(t *testing.T) {
	email := "jgnault@uqac.ca"
	info := int64(1)

	o := &Order{ID: 1}
	assert.Equal(t, StateNew, o.State())
	assert.False(t, o.HasCustomer())

	o.ShippingInfoID = &info
	assert.Equal(t, StateNew, o.State())

	o.Email = &email
	assert.Equal(t, StateShipped, o.State())
	assert.True(t, o.HasCustomer())

	o.Paid = true
	assert.Equal(t, StatePaid, o.State())
}
