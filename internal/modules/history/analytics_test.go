package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func seriesOf(values ...float64) []Snapshot {
	out := make([]Snapshot, len(values))
	for i, v := range values {
		out[i] = Snapshot{Date: fmt.Sprintf("2026-01-%02d", i+1), NetWorth: v}
	}
	return out
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil)
	assert.Equal(t, 0, a.Points)
	assert.Equal(t, 0.0, a.TotalReturnPct)
}

func TestAnalyze_SinglePoint(t *testing.T) {
	a := Analyze(seriesOf(1000))
	assert.Equal(t, 1, a.Points)
	assert.Equal(t, 1000.0, a.StartNetWorth)
	assert.Equal(t, 1000.0, a.EndNetWorth)
	assert.Equal(t, 0.0, a.TotalReturnPct)
	assert.Equal(t, 0.0, a.MaxDrawdownPct)
}

func TestAnalyze_TotalReturn(t *testing.T) {
	a := Analyze(seriesOf(1000, 1100))
	assert.InDelta(t, 10, a.TotalReturnPct, 1e-9)
	assert.InDelta(t, 0.10, a.MeanDailyReturn, 1e-9)
}

func TestAnalyze_MaxDrawdown(t *testing.T) {
	// Peak 1200, trough 600: 50% drawdown despite the recovery.
	a := Analyze(seriesOf(1000, 1200, 900, 600, 1100))
	assert.InDelta(t, 50, a.MaxDrawdownPct, 1e-9)
}

func TestAnalyze_MonotonicSeriesHasNoDrawdown(t *testing.T) {
	a := Analyze(seriesOf(100, 110, 120, 130))
	assert.Equal(t, 0.0, a.MaxDrawdownPct)
}

func TestAnalyze_SmoothedCurve(t *testing.T) {
	short := Analyze(seriesOf(1, 2, 3))
	assert.Nil(t, short.SmoothedCurve)

	flat := Analyze(seriesOf(10, 10, 10, 10, 10, 10, 10, 10))
	assert.Len(t, flat.SmoothedCurve, 2)
	assert.InDelta(t, 10, flat.SmoothedCurve[0], 1e-9)
	assert.InDelta(t, 10, flat.SmoothedCurve[1], 1e-9)
}

func TestAnalyze_ZeroStartNetWorth(t *testing.T) {
	a := Analyze(seriesOf(0, 500))
	assert.Equal(t, 0.0, a.TotalReturnPct)
}
