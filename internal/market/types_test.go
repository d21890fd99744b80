package market

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordPriceField(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    float64
		wantErr bool
	}{
		{"plain float price", map[string]any{"price": 1.25}, 1.25, false},
		{"priceUsd fallback", map[string]any{"priceUsd": 0.5}, 0.5, false},
		{"price wins over priceUsd", map[string]any{"price": 2.0, "priceUsd": 3.0}, 2.0, false},
		{"string-encoded price", map[string]any{"price": "104.5"}, 104.5, false},
		{"integer price", map[string]any{"price": 42}, 42.0, false},
		{"missing price", map[string]any{"liquidity": 1000.0}, 0, true},
		{"zero price", map[string]any{"price": 0.0}, 0, true},
		{"negative price", map[string]any{"price": -3.0}, 0, true},
		{"NaN price", map[string]any{"price": math.NaN()}, 0, true},
		{"infinite price", map[string]any{"price": math.Inf(1)}, 0, true},
		{"non-numeric string", map[string]any{"price": "n/a"}, 0, true},
		{"wrong type entirely", map[string]any{"price": []string{"1"}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseRecord(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, snap.Price)
		})
	}
}

func TestParseRecordOptionalFields(t *testing.T) {
	snap, err := ParseRecord(map[string]any{
		"price":          "1.5",
		"liquidity":      25000.0,
		"volume24h":      "900",
		"priceChange24h": -0.12,
	})
	require.NoError(t, err)
	assert.True(t, snap.HasLiquidity)
	assert.Equal(t, 25000.0, snap.Liquidity)
	assert.True(t, snap.HasVolume)
	assert.Equal(t, 900.0, snap.Volume24h)
	assert.Equal(t, -0.12, snap.PriceChange24h)

	// Negative liquidity and volume are garbage, not data: flags stay off.
	snap, err = ParseRecord(map[string]any{"price": 1.0, "liquidity": -5.0, "volume24h": -1.0})
	require.NoError(t, err)
	assert.False(t, snap.HasLiquidity)
	assert.False(t, snap.HasVolume)

	// Absent optionals leave the flags off without failing the record.
	snap, err = ParseRecord(map[string]any{"price": 1.0})
	require.NoError(t, err)
	assert.False(t, snap.HasLiquidity)
	assert.False(t, snap.HasVolume)
}

func TestParseTickSkipsMalformedSymbolsOnly(t *testing.T) {
	raw := map[string]map[string]any{
		"GOOD":   {"price": 10.0},
		"ALSOOK": {"priceUsd": "0.002"},
		"NOPX":   {"volume24h": 100.0},
		"NEGPX":  {"price": -1.0},
		"NANPX":  {"price": math.NaN()},
	}

	tick, skipped := ParseTick(raw)

	require.Len(t, tick, 2)
	assert.Equal(t, 10.0, tick["GOOD"].Price)
	assert.Equal(t, 0.002, tick["ALSOOK"].Price)

	sort.Strings(skipped)
	assert.Equal(t, []string{"NANPX", "NEGPX", "NOPX"}, skipped)
}

func TestParseTickEmptyBatch(t *testing.T) {
	tick, skipped := ParseTick(nil)
	assert.Empty(t, tick)
	assert.Empty(t, skipped)
}
