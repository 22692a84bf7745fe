package pricing

import (
	"testing"

	"eytstore/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPolicy_Quote_TwoLinesExample(t *testing.T) {
	p := DefaultPolicy()

	subtotal := LineTotal(d("10.00"), 2).Add(LineTotal(d("5.00"), 1))
	got := p.Quote(model.ShippingInfo{Country: "US"}, subtotal)

	assert.True(t, d("25.00").Equal(got.Subtotal))
	assert.True(t, d("5.00").Equal(got.Shipping))
	assert.True(t, d("1.50").Equal(got.Tax))
	assert.True(t, d("31.50").Equal(got.Total))
}

func TestPolicy_ShippingCost(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		country  string
		subtotal string
		want     string
	}{
		{"zone match", "us", "20.00", "5.00"},
		{"default zone", "JP", "20.00", "15.00"},
		{"free over threshold", "JP", "100.00", "0"},
		{"below threshold", "US", "99.99", "5.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ShippingCost(model.ShippingInfo{Country: tt.country}, d(tt.subtotal))
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestPolicy_FreeShippingDisabled(t *testing.T) {
	p := DefaultPolicy()
	p.FreeShippingOver = decimal.Zero

	got := p.ShippingCost(model.ShippingInfo{Country: "US"}, d("1000.00"))
	assert.True(t, d("5.00").Equal(got))
}

func TestPolicy_Tax_Rounds(t *testing.T) {
	p := DefaultPolicy()

	assert.True(t, d("0.60").Equal(p.Tax(d("9.99"))))
	assert.True(t, d("0").Equal(p.Tax(decimal.Zero)))
}
