// Package window maintains fixed-capacity rolling price windows per symbol.
package window

// Store keeps the most recent prices for each symbol, oldest evicted first.
type Store struct {
	capacity int
	minLen   int
	prices   map[string][]float64
	lastSeen map[string]int
}

// NewStore builds a store with the given capacity and minimum usable length.
// minLen defaults to capacity, which mirrors the common requirement that the
// window be full before statistics are trusted.
func NewStore(capacity, minLen int) *Store {
	if capacity <= 0 {
		capacity = 20
	}
	if minLen <= 0 || minLen > capacity {
		minLen = capacity
	}
	return &Store{
		capacity: capacity,
		minLen:   minLen,
		prices:   make(map[string][]float64),
		lastSeen: make(map[string]int),
	}
}

// Update appends a price for symbol, evicting the oldest entry at capacity.
func (s *Store) Update(symbol string, price float64, tick int) {
	arr := append(s.prices[symbol], price)
	if len(arr) > s.capacity {
		arr = arr[len(arr)-s.capacity:]
	}
	s.prices[symbol] = arr
	s.lastSeen[symbol] = tick
}

// Get returns the window for symbol, or nil until minLen prices accumulated.
// The returned slice is owned by the store; callers must not mutate it.
func (s *Store) Get(symbol string) []float64 {
	arr := s.prices[symbol]
	if len(arr) < s.minLen {
		return nil
	}
	return arr
}

// Len reports the current window length for symbol.
func (s *Store) Len(symbol string) int {
	return len(s.prices[symbol])
}

// Last returns the most recent price and whether any price exists.
func (s *Store) Last(symbol string) (float64, bool) {
	arr := s.prices[symbol]
	if len(arr) == 0 {
		return 0, false
	}
	return arr[len(arr)-1], true
}

// Prev returns the second most recent price if present.
func (s *Store) Prev(symbol string) (float64, bool) {
	arr := s.prices[symbol]
	if len(arr) < 2 {
		return 0, false
	}
	return arr[len(arr)-2], true
}

// EvictStale drops windows for symbols not updated within maxIdle ticks,
// unless the symbol is in keep (open positions must retain their history).
func (s *Store) EvictStale(now, maxIdle int, keep map[string]bool) int {
	if maxIdle <= 0 {
		return 0
	}
	evicted := 0
	for sym, seen := range s.lastSeen {
		if keep[sym] {
			continue
		}
		if now-seen > maxIdle {
			delete(s.prices, sym)
			delete(s.lastSeen, sym)
			evicted++
		}
	}
	return evicted
}

// Symbols lists symbols currently tracked.
func (s *Store) Symbols() []string {
	out := make([]string, 0, len(s.prices))
	for sym := range s.prices {
		out = append(out, sym)
	}
	return out
}
