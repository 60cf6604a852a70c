package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places money is stored with.
const PriceScale = 2

// VariantPrices maps a size to its override price. Sizes without an entry use the base price.
type VariantPrices map[string]decimal.Decimal

// ResolvePrice returns the unit price of product p in the given size, at
// PriceScale. Negative overrides are ignored.
func ResolvePrice(p *Product, size string) decimal.Decimal {
	if price, ok := p.VariantPrices[size]; ok && !price.IsNegative() {
		return price.Round(PriceScale)
	}
	return p.BasePrice.Round(PriceScale)
}

// CheckPrice rejects negative prices and prices with more than PriceScale decimals.
func CheckPrice(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return Errorf(KindInvalidInput, "%s cannot be negative", field)
	}
	if !d.Equal(d.Round(PriceScale)) {
		return Errorf(KindInvalidInput, "%s cannot have more than %d decimal places", field, PriceScale)
	}
	return nil
}

// Check applies CheckPrice to every override.
func (vp VariantPrices) Check() error {
	for size, price := range vp {
		if err := CheckPrice(fmt.Sprintf("variant price for %s", size), price); err != nil {
			return err
		}
	}
	return nil
}

// ParseVariantPrices decodes a stored variant price map. Null, non-numeric and
// negative entries are dropped; numeric strings are accepted. Prices are
// rounded to PriceScale. Anything that is not a JSON object (or null) is an error.
func ParseVariantPrices(raw []byte) (VariantPrices, error) {
	vp, err := decodeVariantPrices(raw)
	if err != nil {
		return nil, err
	}
	for size, price := range vp {
		if price.IsNegative() {
			delete(vp, size)
			continue
		}
		vp[size] = price.Round(PriceScale)
	}
	return vp, nil
}

func decodeVariantPrices(raw []byte) (VariantPrices, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return VariantPrices{}, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode variant prices: %w", err)
	}
	out := make(VariantPrices, len(entries))
	for size, v := range entries {
		if price, ok := parsePrice(v); ok {
			out[size] = price
		}
	}
	return out, nil
}

func parsePrice(v json.RawMessage) (decimal.Decimal, bool) {
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// UnmarshalJSON keeps prices as sent so writers can reject them with Check.
func (vp *VariantPrices) UnmarshalJSON(b []byte) error {
	m, err := decodeVariantPrices(b)
	if err != nil {
		return err
	}
	*vp = m
	return nil
}

// MarshalJSON writes prices as JSON numbers, the shape stored in variant_prices.
func (vp VariantPrices) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.Number, len(vp))
	for size, price := range vp {
		m[size] = json.Number(price.String())
	}
	return json.Marshal(m)
}
