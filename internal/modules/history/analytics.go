package history

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// smaPeriod is the window of the smoothed net worth curve.
const smaPeriod = 7

// Analytics summarizes the recorded net worth series.
type Analytics struct {
	Points          int       `json:"points"`
	StartNetWorth   float64   `json:"start_net_worth"`
	EndNetWorth     float64   `json:"end_net_worth"`
	TotalReturnPct  float64   `json:"total_return_pct"`
	MeanDailyReturn float64   `json:"mean_daily_return"`
	DailyVolatility float64   `json:"daily_volatility"`
	MaxDrawdownPct  float64   `json:"max_drawdown_pct"`
	SmoothedCurve   []float64 `json:"smoothed_curve"`
}

// Analyze derives summary statistics from a chronological snapshot series.
// Fewer than two points yields a zeroed summary with Points set.
func Analyze(snapshots []Snapshot) Analytics {
	a := Analytics{Points: len(snapshots)}
	if len(snapshots) == 0 {
		return a
	}

	values := make([]float64, len(snapshots))
	for i, s := range snapshots {
		values[i] = s.NetWorth
	}

	a.StartNetWorth = values[0]
	a.EndNetWorth = values[len(values)-1]
	if a.StartNetWorth > 0 {
		a.TotalReturnPct = (a.EndNetWorth/a.StartNetWorth - 1) * 100
	}
	a.MaxDrawdownPct = maxDrawdown(values) * 100

	if len(values) >= 2 {
		returns := make([]float64, 0, len(values)-1)
		for i := 1; i < len(values); i++ {
			if values[i-1] > 0 {
				returns = append(returns, values[i]/values[i-1]-1)
			}
		}
		if len(returns) > 0 {
			a.MeanDailyReturn = stat.Mean(returns, nil)
		}
		if len(returns) >= 2 {
			a.DailyVolatility = stat.StdDev(returns, nil)
		}
	}

	if len(values) >= smaPeriod {
		sma := talib.Sma(values, smaPeriod)
		// The first period-1 slots are zero padding, drop them.
		a.SmoothedCurve = sma[smaPeriod-1:]
	}

	return a
}

// maxDrawdown returns the largest peak-to-trough decline as a fraction of
// the peak.
func maxDrawdown(values []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
