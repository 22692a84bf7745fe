package validator

import (
	"regexp"
	"strings"

	"eytstore/internal/domain/model"
)

var countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)

// 前後の空白を落とし、国コードを大文字にそろえる
func NormalizeShipping(s model.ShippingInfo) model.ShippingInfo {
	return model.ShippingInfo{
		Name:       strings.TrimSpace(s.Name),
		Line1:      strings.TrimSpace(s.Line1),
		Line2:      strings.TrimSpace(s.Line2),
		City:       strings.TrimSpace(s.City),
		State:      strings.TrimSpace(s.State),
		PostalCode: strings.TrimSpace(s.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(s.Country)),
		Phone:      strings.TrimSpace(s.Phone),
	}
}

// 足りない必須項目を返す。空なら問題なし
func MissingShippingFields(s model.ShippingInfo) []string {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Line1 == "" {
		missing = append(missing, "line1")
	}
	if s.City == "" {
		missing = append(missing, "city")
	}
	if s.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if !countryCodeRe.MatchString(s.Country) {
		missing = append(missing, "country")
	}
	return missing
}
