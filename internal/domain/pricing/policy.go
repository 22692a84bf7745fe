// Package pricing は注文金額（小計・送料・税）の計算ルール。
package pricing

import (
	"strings"

	"eytstore/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 国コードごとの送料
type ShippingZone struct {
	Countries []string
	Cost      decimal.Decimal
}

type Policy struct {
	// 小計に掛ける税率（0.06 = 6%）
	TaxRate decimal.Decimal

	// どのゾーンにも当たらないときの送料
	DefaultShipping decimal.Decimal

	// 小計がこの金額以上なら送料無料。ゼロなら無効
	FreeShippingOver decimal.Decimal

	Zones []ShippingZone
}

// 注文の金額一式。Total = Subtotal + Shipping + Tax
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

func LineTotal(unitPrice decimal.Decimal, qty int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(qty))
}

func (p Policy) ShippingCost(dest model.ShippingInfo, subtotal decimal.Decimal) decimal.Decimal {
	if p.FreeShippingOver.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingOver) {
		return decimal.Zero
	}
	country := strings.ToUpper(strings.TrimSpace(dest.Country))
	for _, z := range p.Zones {
		for _, c := range z.Countries {
			if strings.EqualFold(c, country) {
				return z.Cost
			}
		}
	}
	return p.DefaultShipping
}

// 小数2桁で四捨五入
func (p Policy) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate).Round(2)
}

func (p Policy) Quote(dest model.ShippingInfo, subtotal decimal.Decimal) Totals {
	shipping := p.ShippingCost(dest, subtotal)
	tax := p.Tax(subtotal)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// 設定ファイルが無いときの値
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:          decimal.RequireFromString("0.06"),
		DefaultShipping:  decimal.RequireFromString("15.00"),
		FreeShippingOver: decimal.RequireFromString("100.00"),
		Zones: []ShippingZone{
			{Countries: []string{"US"}, Cost: decimal.RequireFromString("5.00")},
		},
	}
}
