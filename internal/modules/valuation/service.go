// Package valuation derives market values, P&L and allocation percentages
// from a portfolio and an oracle snapshot.
package valuation

import (
	"github.com/rs/zerolog"

	"folio/internal/domain"
)

// Service computes valuation reports. Valuate is a pure function of its
// inputs; the service carries only a logger.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new valuation service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "valuation").Logger(),
	}
}

// Valuate produces the full report for a portfolio at snapshot prices.
//
// Missing snapshot keys substitute fail-soft defaults: an unknown price is
// 0.0 and an unknown FX rate is 1.0. Downstream math depends on these exact
// substitutions; do not turn them into errors.
func (s *Service) Valuate(p *domain.Portfolio, snap domain.Snapshot) *Report {
	report := &Report{
		Assets:  make([]AssetReport, 0, len(p.Assets)),
		CashUSD: cashUSD(p.CashBalances, snap.FX),
	}

	for i := range p.Assets {
		a := &p.Assets[i]

		shares := a.TotalShares()
		cost := a.CostBasis()
		price := snap.Prices[a.Ticker] // missing -> 0.0
		marketValue := shares * price

		returnPct := 0.0
		if cost > 0 {
			returnPct = (marketValue/cost - 1) * 100
		}

		report.Assets = append(report.Assets, AssetReport{
			Ticker:        a.Ticker,
			TargetPercent: a.TargetPercent,
			Shares:        shares,
			CostBasis:     cost,
			Price:         price,
			MarketValue:   marketValue,
			UnrealizedPL:  marketValue - cost,
			ReturnPct:     returnPct,
			Accounts:      a.Accounts(),
		})
		report.PositionsValue += marketValue
	}

	report.NetWorth = report.PositionsValue + report.CashUSD

	// Allocation percentages need the final net worth
	for i := range report.Assets {
		if report.NetWorth > 0 {
			report.Assets[i].CurrentPct = report.Assets[i].MarketValue / report.NetWorth * 100
		}
	}

	s.log.Debug().
		Int("assets", len(report.Assets)).
		Float64("cash_usd", report.CashUSD).
		Float64("net_worth", report.NetWorth).
		Msg("Valuation computed")

	return report
}

// cashUSD normalizes all cash balances to USD. Non-USD currencies convert at
// the snapshot rate, defaulting to 1.0 when the rate is missing.
func cashUSD(balances domain.CashBalances, fx map[string]float64) float64 {
	total := balances["USD"]
	for currency, amount := range balances {
		if currency == "USD" {
			continue
		}
		rate, ok := fx[domain.FXKey(currency)]
		if !ok {
			rate = 1.0
		}
		total += amount * rate
	}
	return total
}
