package market

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Snapshot is one validated per-symbol market record for a single tick.
// Price is mandatory; the remaining fields are optional and flagged.
type Snapshot struct {
	Price          float64
	Liquidity      float64
	Volume24h      float64
	PriceChange24h float64

	HasLiquidity bool
	HasVolume    bool
}

// Tick maps symbol to its validated snapshot for one delivery from the feed.
type Tick map[string]Snapshot

var ErrNoPrice = errors.New("snapshot has no usable price")

// ParseRecord converts a raw feed record (arbitrary keys, string or numeric
// values) into a typed Snapshot. The price may arrive under "price" or
// "priceUsd". A record without a positive, finite price is rejected.
func ParseRecord(raw map[string]any) (Snapshot, error) {
	var snap Snapshot

	price, ok := floatField(raw, "price")
	if !ok {
		price, ok = floatField(raw, "priceUsd")
	}
	if !ok || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return snap, ErrNoPrice
	}
	snap.Price = price

	if v, ok := floatField(raw, "liquidity"); ok && v >= 0 {
		snap.Liquidity = v
		snap.HasLiquidity = true
	}
	if v, ok := floatField(raw, "volume24h"); ok && v >= 0 {
		snap.Volume24h = v
		snap.HasVolume = true
	}
	if v, ok := floatField(raw, "priceChange24h"); ok {
		snap.PriceChange24h = v
	}

	return snap, nil
}

// ParseTick validates a whole feed batch. Malformed symbols are dropped and
// reported; the rest of the batch is unaffected.
func ParseTick(raw map[string]map[string]any) (Tick, []string) {
	tick := make(Tick, len(raw))
	var skipped []string
	for sym, rec := range raw {
		snap, err := ParseRecord(rec)
		if err != nil {
			skipped = append(skipped, sym)
			continue
		}
		tick[sym] = snap
	}
	return tick, skipped
}

func floatField(raw map[string]any, key string) (float64, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("price=%.8f liq=%.2f vol24h=%.2f", s.Price, s.Liquidity, s.Volume24h)
}
