package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-core/internal/engine"
)

type recordingConfirmer struct {
	executed []struct {
		symbol, side       string
		amount, price, fee float64
	}
	rejected []string
	fail     error
}

func (r *recordingConfirmer) OnTradeExecuted(symbol, side string, amount, price, fee float64) error {
	if r.fail != nil {
		return r.fail
	}
	r.executed = append(r.executed, struct {
		symbol, side       string
		amount, price, fee float64
	}{symbol, side, amount, price, fee})
	return nil
}

func (r *recordingConfirmer) OnTradeRejected(symbol string) {
	r.rejected = append(r.rejected, symbol)
}

func buyAction(symbol string, qty, price float64) engine.Action {
	return engine.Action{ID: "a1", Side: engine.SideBuy, Symbol: symbol, Amount: qty, Price: price}
}

func TestBuySlippageIsAlwaysAdverse(t *testing.T) {
	rec := &recordingConfirmer{}
	p := NewPaper(SimConfig{SlippageBps: 50}, rec)

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Execute(context.Background(), buyAction("AAA", 1, 100)))
	}
	for _, f := range rec.executed {
		assert.GreaterOrEqual(t, f.price, 100.0)
		assert.Less(t, f.price, 100.5)
	}
}

func TestSellSlippageFillsBelowDecisionPrice(t *testing.T) {
	rec := &recordingConfirmer{}
	p := NewPaper(SimConfig{SlippageBps: 50}, rec)

	act := engine.Action{ID: "s1", Side: engine.SideSell, Symbol: "AAA", Amount: 2, Price: 100}
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Execute(context.Background(), act))
	}
	for _, f := range rec.executed {
		assert.LessOrEqual(t, f.price, 100.0)
		assert.Greater(t, f.price, 99.5)
	}
}

func TestFeesAccumulate(t *testing.T) {
	rec := &recordingConfirmer{}
	p := NewPaper(SimConfig{FeeRate: 0.001}, rec)

	require.NoError(t, p.Execute(context.Background(), buyAction("AAA", 2, 100)))
	require.NoError(t, p.Execute(context.Background(), buyAction("BBB", 1, 50)))

	// no slippage configured, fills at decision price
	assert.InDelta(t, 0.25, p.FeesPaid(), 1e-9)
	require.Len(t, p.Fills(), 2)
	assert.Equal(t, "a1", p.Fills()[0].ActionID)
	assert.InDelta(t, 0.2, p.Fills()[0].Fee, 1e-9)

	// The confirmer sees the same fee the fill records.
	require.Len(t, rec.executed, 2)
	assert.InDelta(t, 0.2, rec.executed[0].fee, 1e-9)
	assert.InDelta(t, 0.05, rec.executed[1].fee, 1e-9)
}

func TestFullRejectRateSkipsConfirmation(t *testing.T) {
	rec := &recordingConfirmer{}
	p := NewPaper(SimConfig{RejectRate: 1}, rec)

	require.NoError(t, p.Execute(context.Background(), buyAction("AAA", 1, 100)))

	assert.Empty(t, rec.executed)
	assert.Equal(t, []string{"AAA"}, rec.rejected)
	assert.Equal(t, 1, p.Rejected())
	assert.Empty(t, p.Fills())
}

func TestMalformedActionIsRejected(t *testing.T) {
	rec := &recordingConfirmer{}
	p := NewPaper(SimConfig{}, rec)

	err := p.Execute(context.Background(), buyAction("AAA", 0, 100))
	assert.Error(t, err)
	assert.Equal(t, []string{"AAA"}, rec.rejected)
}

func TestConfirmerErrorPropagates(t *testing.T) {
	rec := &recordingConfirmer{fail: assert.AnError}
	p := NewPaper(SimConfig{}, rec)

	err := p.Execute(context.Background(), buyAction("AAA", 1, 100))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, p.Fills(), "failed confirmation must not log a fill")
}

func TestCancelledContextAbortsLatencySleep(t *testing.T) {
	rec := &recordingConfirmer{}
	p := NewPaper(SimConfig{LatencyMinMs: 500, LatencyMaxMs: 500}, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Execute(ctx, buyAction("AAA", 1, 100))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"AAA"}, rec.rejected)
}
