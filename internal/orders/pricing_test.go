package orders

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariantPrices(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"empty", ``, map[string]string{}},
		{"null", `null`, map[string]string{}},
		{"empty object", `{}`, map[string]string{}},
		{"numbers", `{"M": 120, "L": 135.5}`, map[string]string{"M": "120", "L": "135.5"}},
		{"numeric strings", `{"S": "99.90", "M": " 100 "}`, map[string]string{"S": "99.9", "M": "100"}},
		{"drops null and junk", `{"S": null, "M": "abc", "L": true, "XL": 150}`, map[string]string{"XL": "150"}},
		{"drops negatives", `{"S": -5, "M": "-0.01", "L": 0}`, map[string]string{"L": "0"}},
		{"rounds to cents", `{"S": 10.005, "M": "99.994"}`, map[string]string{"S": "10.01", "M": "99.99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVariantPrices([]byte(tt.raw))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for size, price := range tt.want {
				assert.True(t, decimal.RequireFromString(price).Equal(got[size]), "size %s: got %s", size, got[size])
			}
		})
	}
}

func TestParseVariantPrices_NotObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"M"`, `42`, `{broken`} {
		_, err := ParseVariantPrices([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestResolvePrice(t *testing.T) {
	p := &Product{
		BasePrice:     decimal.NewFromInt(100),
		VariantPrices: VariantPrices{"M": decimal.NewFromInt(120)},
	}
	assert.True(t, decimal.NewFromInt(120).Equal(ResolvePrice(p, "M")))
	assert.True(t, decimal.NewFromInt(100).Equal(ResolvePrice(p, "S")))

	p.VariantPrices = nil
	assert.True(t, decimal.NewFromInt(100).Equal(ResolvePrice(p, "M")))
}

func TestResolvePrice_Normalizes(t *testing.T) {
	p := &Product{
		BasePrice: decimal.RequireFromString("19.999"),
		VariantPrices: VariantPrices{
			"M": decimal.RequireFromString("10.005"),
			"L": decimal.NewFromInt(-5),
		},
	}
	assert.Equal(t, "10.01", ResolvePrice(p, "M").StringFixed(2))
	assert.Equal(t, "20.00", ResolvePrice(p, "L").StringFixed(2))
	assert.Equal(t, "20.00", ResolvePrice(p, "S").StringFixed(2))
}

func TestCheckPrice(t *testing.T) {
	tests := []struct {
		price string
		ok    bool
	}{
		{"0", true},
		{"120", true},
		{"99.9", true},
		{"99.90", true},
		{"10.000", true},
		{"10.005", false},
		{"-1", false},
		{"-0.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			err := CheckPrice("price", decimal.RequireFromString(tt.price))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestVariantPrices_UnmarshalKeepsRawValues(t *testing.T) {
	var vp VariantPrices
	require.NoError(t, json.Unmarshal([]byte(`{"M": 10.005, "L": -5}`), &vp))
	assert.True(t, decimal.RequireFromString("10.005").Equal(vp["M"]))
	assert.True(t, decimal.NewFromInt(-5).Equal(vp["L"]))
	assert.ErrorIs(t, vp.Check(), ErrInvalidInput)
}

func TestVariantPrices_JSON(t *testing.T) {
	vp := VariantPrices{"M": decimal.RequireFromString("120.50"), "S": decimal.NewFromInt(90)}
	b, err := json.Marshal(vp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"M": 120.5, "S": 90}`, string(b))

	var back VariantPrices
	require.NoError(t, json.Unmarshal([]byte(`{"M": "120.5", "XL": null}`), &back))
	assert.Len(t, back, 1)
	assert.True(t, decimal.RequireFromString("120.5").Equal(back["M"]))
}
