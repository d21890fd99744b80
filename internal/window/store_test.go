package window

import "testing"

func TestUpdateEvictsOldest(t *testing.T) {
	s := NewStore(5, 5)

	for i := 1; i <= 8; i++ {
		s.Update("BTCUSDT", float64(i), i)
	}

	got := s.Get("BTCUSDT")
	if got == nil {
		t.Fatal("expected full window, got nil")
	}
	want := []float64{4, 5, 6, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("window length=%d, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window[%d]=%v, expected %v", i, got[i], want[i])
		}
	}
}

func TestGetNilUntilMinLen(t *testing.T) {
	s := NewStore(10, 5)

	for i := 1; i <= 4; i++ {
		s.Update("ETHUSDT", float64(i), i)
		if s.Get("ETHUSDT") != nil {
			t.Fatalf("expected nil window at len=%d", i)
		}
	}
	s.Update("ETHUSDT", 5, 5)
	if s.Get("ETHUSDT") == nil {
		t.Fatal("expected window once minLen reached")
	}
}

func TestLastAndPrev(t *testing.T) {
	s := NewStore(5, 5)

	if _, ok := s.Last("X"); ok {
		t.Fatal("Last on empty symbol should report false")
	}

	s.Update("X", 10, 1)
	s.Update("X", 11, 2)

	last, ok := s.Last("X")
	if !ok || last != 11 {
		t.Fatalf("Last=%v ok=%v, expected 11 true", last, ok)
	}
	prev, ok := s.Prev("X")
	if !ok || prev != 10 {
		t.Fatalf("Prev=%v ok=%v, expected 10 true", prev, ok)
	}
}

func TestEvictStaleKeepsOpenPositions(t *testing.T) {
	s := NewStore(5, 1)

	s.Update("AAA", 1, 1)
	s.Update("BBB", 1, 1)
	s.Update("CCC", 1, 9)

	keep := map[string]bool{"BBB": true}
	n := s.EvictStale(10, 5, keep)

	if n != 1 {
		t.Fatalf("evicted=%d, expected 1", n)
	}
	if s.Len("AAA") != 0 {
		t.Fatal("AAA should have been evicted")
	}
	if s.Len("BBB") == 0 {
		t.Fatal("BBB is protected by keep set")
	}
	if s.Len("CCC") == 0 {
		t.Fatal("CCC was recently updated and should survive")
	}
}
