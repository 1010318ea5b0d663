package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuotes returns scripted prices per symbol; unlisted symbols error.
type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
	delay  time.Duration
}

func (f *fakeQuotes) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++

	price, ok := f.prices[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return price, nil
}

func newTestOracle(quotes QuoteClient) *Service {
	return New(quotes, nil, Config{Timeout: 2 * time.Second, CacheTTL: time.Minute}, zerolog.Nop())
}

func TestFetch_AssemblesSnapshot(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{
		"AAPL":     150,
		"MSFT":     300,
		"JPYUSD=X": 0.0068,
	}}
	svc := newTestOracle(quotes)

	snap := svc.Fetch(context.Background(), []string{"AAPL", "MSFT"}, []string{"USD", "JPY"})

	assert.Equal(t, 150.0, snap.Prices["AAPL"])
	assert.Equal(t, 300.0, snap.Prices["MSFT"])
	assert.Equal(t, 0.0068, snap.FX["JPYUSD=X"])
}

func TestFetch_SkipsUSD(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{}}
	svc := newTestOracle(quotes)

	snap := svc.Fetch(context.Background(), nil, []string{"USD"})

	assert.Empty(t, snap.FX)
	assert.Zero(t, quotes.calls["USDUSD=X"])
}

func TestFetch_FailedSymbolIsOmitted(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"GOOD": 10}}
	svc := newTestOracle(quotes)

	snap := svc.Fetch(context.Background(), []string{"GOOD", "BAD"}, []string{"JPY"})

	assert.Equal(t, 10.0, snap.Prices["GOOD"])
	_, ok := snap.Prices["BAD"]
	assert.False(t, ok)
	_, ok = snap.FX["JPYUSD=X"]
	assert.False(t, ok)
}

func TestFetch_TimeoutYieldsPartialSnapshot(t *testing.T) {
	quotes := &fakeQuotes{
		prices: map[string]float64{"SLOW": 10},
		delay:  200 * time.Millisecond,
	}
	svc := New(quotes, nil, Config{Timeout: 20 * time.Millisecond}, zerolog.Nop())

	start := time.Now()
	snap := svc.Fetch(context.Background(), []string{"SLOW"}, nil)

	assert.Empty(t, snap.Prices)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestFetch_DeduplicatesSymbols(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 150}}
	svc := newTestOracle(quotes)

	snap := svc.Fetch(context.Background(), []string{"AAPL", "AAPL", "AAPL"}, nil)

	require.Equal(t, 150.0, snap.Prices["AAPL"])
	assert.Equal(t, 1, quotes.calls["AAPL"])
}

func TestFetch_RejectsNonPositivePrices(t *testing.T) {
	quotes := &fakeQuotes{prices: map[string]float64{"ZERO": 0, "NEG": -3}}
	svc := newTestOracle(quotes)

	snap := svc.Fetch(context.Background(), []string{"ZERO", "NEG"}, nil)
	assert.Empty(t, snap.Prices)
}
