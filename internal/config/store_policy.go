package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"eytstore/internal/domain/pricing"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// 注文番号・キャンセル期間・送料・税の店舗設定
type StorePolicy struct {
	OrderPrefix         string
	OrderNumberAttempts int
	CancelWindow        time.Duration
	Pricing             pricing.Policy
}

// YAMLの形。金額は丸め誤差を避けるため文字列で書く
type storePolicyFile struct {
	OrderNumber struct {
		Prefix      string `yaml:"prefix"`
		MaxAttempts int    `yaml:"max_attempts"`
	} `yaml:"order_number"`
	CancelWindow string `yaml:"cancel_window"`
	TaxRate      string `yaml:"tax_rate"`
	Shipping     struct {
		Default  string `yaml:"default"`
		FreeOver string `yaml:"free_over"`
		Zones    []struct {
			Countries []string `yaml:"countries"`
			Cost      string   `yaml:"cost"`
		} `yaml:"zones"`
	} `yaml:"shipping"`
}

// 注文番号の検索にLIKEを使うので英数字だけにする
var orderPrefixRe = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)

func DefaultStorePolicy() StorePolicy {
	return StorePolicy{
		OrderPrefix:         "EYT",
		OrderNumberAttempts: 5,
		CancelWindow:        24 * time.Hour,
		Pricing:             pricing.DefaultPolicy(),
	}
}

// pathが空なら既定値。書かれていない項目も既定値のまま
func LoadStorePolicy(path string) (StorePolicy, error) {
	if path == "" {
		return DefaultStorePolicy(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return StorePolicy{}, fmt.Errorf("read store policy: %w", err)
	}
	return ParseStorePolicy(b)
}

func ParseStorePolicy(b []byte) (StorePolicy, error) {
	var f storePolicyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return StorePolicy{}, fmt.Errorf("parse store policy: %w", err)
	}

	p := DefaultStorePolicy()

	if s := strings.TrimSpace(f.OrderNumber.Prefix); s != "" {
		if !orderPrefixRe.MatchString(s) {
			return StorePolicy{}, fmt.Errorf("order_number.prefix must be 1-10 letters or digits: %q", s)
		}
		p.OrderPrefix = s
	}
	if f.OrderNumber.MaxAttempts < 0 {
		return StorePolicy{}, fmt.Errorf("order_number.max_attempts must be >= 0")
	}
	if f.OrderNumber.MaxAttempts > 0 {
		p.OrderNumberAttempts = f.OrderNumber.MaxAttempts
	}

	if f.CancelWindow != "" {
		d, err := time.ParseDuration(f.CancelWindow)
		if err != nil || d <= 0 {
			return StorePolicy{}, fmt.Errorf("cancel_window must be a positive duration: %q", f.CancelWindow)
		}
		p.CancelWindow = d
	}

	if f.TaxRate != "" {
		d, err := parseAmount("tax_rate", f.TaxRate)
		if err != nil {
			return StorePolicy{}, err
		}
		p.Pricing.TaxRate = d
	}
	if f.Shipping.Default != "" {
		d, err := parseAmount("shipping.default", f.Shipping.Default)
		if err != nil {
			return StorePolicy{}, err
		}
		p.Pricing.DefaultShipping = d
	}
	if f.Shipping.FreeOver != "" {
		d, err := parseAmount("shipping.free_over", f.Shipping.FreeOver)
		if err != nil {
			return StorePolicy{}, err
		}
		p.Pricing.FreeShippingOver = d
	}
	if len(f.Shipping.Zones) > 0 {
		zones := make([]pricing.ShippingZone, 0, len(f.Shipping.Zones))
		for i, z := range f.Shipping.Zones {
			cost, err := parseAmount(fmt.Sprintf("shipping.zones[%d].cost", i), z.Cost)
			if err != nil {
				return StorePolicy{}, err
			}
			countries := make([]string, 0, len(z.Countries))
			for _, c := range z.Countries {
				countries = append(countries, strings.ToUpper(strings.TrimSpace(c)))
			}
			zones = append(zones, pricing.ShippingZone{Countries: countries, Cost: cost})
		}
		p.Pricing.Zones = zones
	}

	return p, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q", field, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be >= 0", field)
	}
	return d, nil
}
