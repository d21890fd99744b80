package market

import (
	"context"
	"log"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"strategy-core/internal/events"
)

// MockFeed generates synthetic snapshot batches for local development.
// Each symbol follows an independent random walk with occasional dips so the
// mean-reversion entry logic has something to react to.
type MockFeed struct {
	Bus         *events.Bus
	Symbols     []string
	StartPrice  float64
	Step        float64
	TicksPerSec float64

	rng *rand.Rand
}

func (m *MockFeed) Start(ctx context.Context) {
	if m.Bus == nil {
		log.Println("mock feed: bus not set")
		return
	}
	if len(m.Symbols) == 0 {
		m.Symbols = []string{"BTCUSDT"}
	}
	if m.StartPrice == 0 {
		m.StartPrice = 100.0
	}
	if m.Step == 0 {
		m.Step = 0.5
	}
	if m.TicksPerSec == 0 {
		m.TicksPerSec = 1
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	prices := make(map[string]float64, len(m.Symbols))
	for _, sym := range m.Symbols {
		prices[sym] = m.StartPrice * (0.9 + 0.2*m.rng.Float64())
	}

	limiter := rate.NewLimiter(rate.Limit(m.TicksPerSec), 1)

	go func() {
		for {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			tick := make(Tick, len(m.Symbols))
			for _, sym := range m.Symbols {
				p := prices[sym]
				p += (m.rng.Float64()*2 - 1) * m.Step
				// rare sharp dip to exercise entries
				if m.rng.Float64() < 0.02 {
					p *= 0.97
				}
				if p < 0.01 {
					p = 0.01
				}
				prices[sym] = p
				tick[sym] = Snapshot{
					Price:        p,
					Liquidity:    50_000 + m.rng.Float64()*10_000,
					Volume24h:    1_000_000 + m.rng.Float64()*100_000,
					HasLiquidity: true,
					HasVolume:    true,
				}
			}
			m.Bus.Publish(events.EventMarketData, tick)
		}
	}()
}
