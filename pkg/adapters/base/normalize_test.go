package base

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/dealer/pkg/dataset"
)

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 42, decimal.NewFromInt(42)},
		{"int64", int64(-7), decimal.NewFromInt(-7)},
		{"uint64 max", uint64(math.MaxUint64), decimal.RequireFromString("18446744073709551615")},
		{"float shortest repr", 19.99, decimal.RequireFromString("19.99")},
		{"float32", float32(0.5), decimal.RequireFromString("0.5")},
		{"time", ts, "2024-03-09 07:05:01"},
		{"time pointer", &ts, "2024-03-09 07:05:01"},
		{"string", "abc", "abc"},
		{"bool", true, true},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeValue(tt.in)
			if want, ok := tt.want.(decimal.Decimal); ok {
				dec, ok := got.(decimal.Decimal)
				require.True(t, ok, "expected decimal, got %T", got)
				assert.True(t, want.Equal(dec), "got %s, want %s", dec, want)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeValue_NaNPassesThrough(t *testing.T) {
	got := NormalizeValue(math.NaN())
	f, ok := got.(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))

	assert.Equal(t, math.Inf(1), NormalizeValue(math.Inf(1)))
}

func TestNormalize_Idempotent(t *testing.T) {
	rec := dataset.Record{
		"price": 19.99,
		"qty":   3,
		"at":    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"name":  "widget",
	}

	once := Normalize(rec)
	twice := Normalize(once)

	assert.Equal(t, once, twice)
	assert.Equal(t, "19.99", once["price"].(decimal.Decimal).String())
	// исходная запись не меняется
	assert.Equal(t, 19.99, rec["price"])
}

func TestColumnKinds(t *testing.T) {
	ds := dataset.New([]string{"id", "name", "price", "empty"},
		dataset.Record{"id": nil, "name": "a", "price": decimal.NewFromFloat(1.5)},
		dataset.Record{"id": 2, "name": "b", "price": 2.5},
	)

	kinds := ColumnKinds(ds)
	assert.Equal(t, []Kind{KindNumeric, KindText, KindNumeric, KindText}, kinds)
	assert.Equal(t, "numeric", KindNumeric.String())
	assert.Equal(t, "text", KindText.String())
}
