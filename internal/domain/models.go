// Package domain holds the portfolio value types shared across modules.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// CashBalances maps a currency code ("USD", "JPY", ...) to an amount in that
// currency. Amounts may go negative; overdraft is permitted.
type CashBalances map[string]float64

// Holding is a single lot of an asset inside one account. AvgPrice is the USD
// cost per share for this account-lot only; lots in other accounts keep their
// own cost basis and are never merged automatically.
type Holding struct {
	Account  string  `json:"account"`
	Shares   float64 `json:"shares"`
	AvgPrice float64 `json:"avg_price"`
}

// Asset is one tracked security with its target allocation and lots.
type Asset struct {
	Ticker        string    `json:"ticker"`
	TargetPercent float64   `json:"target_percent"`
	Holdings      []Holding `json:"holdings"`
}

// TotalShares returns the share count summed over all lots.
func (a *Asset) TotalShares() float64 {
	total := 0.0
	for _, h := range a.Holdings {
		total += h.Shares
	}
	return total
}

// CostBasis returns the total USD cost of all lots.
func (a *Asset) CostBasis() float64 {
	total := 0.0
	for _, h := range a.Holdings {
		total += h.Shares * h.AvgPrice
	}
	return total
}

// Accounts returns the distinct accounts holding this asset, in lot order.
func (a *Asset) Accounts() []string {
	seen := make(map[string]bool, len(a.Holdings))
	accounts := make([]string, 0, len(a.Holdings))
	for _, h := range a.Holdings {
		if !seen[h.Account] {
			seen[h.Account] = true
			accounts = append(accounts, h.Account)
		}
	}
	return accounts
}

// Portfolio is the full persisted state: one per deployment.
type Portfolio struct {
	CashBalances CashBalances `json:"cash_balances"`
	Assets       []Asset      `json:"assets"`
}

// NewDefaultPortfolio returns the empty portfolio created on first load.
func NewDefaultPortfolio() *Portfolio {
	return &Portfolio{
		CashBalances: CashBalances{"USD": 0.0, "JPY": 0.0, "SGD": 0.0, "IDR": 0.0},
		Assets:       []Asset{},
	}
}

// FindAsset returns the asset with the given ticker, or nil.
func (p *Portfolio) FindAsset(ticker string) *Asset {
	for i := range p.Assets {
		if p.Assets[i].Ticker == ticker {
			return &p.Assets[i]
		}
	}
	return nil
}

// Tickers returns all asset tickers in portfolio order.
func (p *Portfolio) Tickers() []string {
	tickers := make([]string, 0, len(p.Assets))
	for i := range p.Assets {
		tickers = append(tickers, p.Assets[i].Ticker)
	}
	return tickers
}

// Currencies returns all cash currency codes, USD included.
func (p *Portfolio) Currencies() []string {
	currencies := make([]string, 0, len(p.CashBalances))
	for c := range p.CashBalances {
		currencies = append(currencies, c)
	}
	return currencies
}

// Clone returns a deep copy, holdings slices included.
func (p *Portfolio) Clone() *Portfolio {
	cp := &Portfolio{
		CashBalances: make(CashBalances, len(p.CashBalances)),
		Assets:       make([]Asset, len(p.Assets)),
	}
	for c, amount := range p.CashBalances {
		cp.CashBalances[c] = amount
	}
	for i, a := range p.Assets {
		holdings := make([]Holding, len(a.Holdings))
		copy(holdings, a.Holdings)
		cp.Assets[i] = Asset{
			Ticker:        a.Ticker,
			TargetPercent: a.TargetPercent,
			Holdings:      holdings,
		}
	}
	return cp
}

// ValidateTargets reports whether target percentages sum to 100 within
// tolerance. Targets are deliberately not validated on load or save; callers
// opt into this check.
func (p *Portfolio) ValidateTargets(tolerance float64) error {
	total := 0.0
	for i := range p.Assets {
		total += p.Assets[i].TargetPercent
	}
	if math.Abs(total-100.0) > tolerance {
		return fmt.Errorf("target percentages sum to %.2f, expected 100", total)
	}
	return nil
}

// TradeInstruction is a proposed buy: spend Amount USD on Ticker in Account at
// the proposal-time Price. Transient; produced by the planner, consumed by the
// executor, never persisted. AccountCandidates lists the distinct accounts
// already holding the asset; when it has more than one entry the planner leaves
// Account empty and the caller must choose.
type TradeInstruction struct {
	Ticker            string   `json:"ticker"`
	Amount            float64  `json:"amount"`
	Account           string   `json:"account"`
	Price             float64  `json:"price"`
	AccountCandidates []string `json:"account_candidates,omitempty"`
}

// Snapshot holds one oracle fetch: last prices per ticker and USD conversion
// rates per non-USD currency, keyed by FXKey. Missing keys are expected; the
// accounting engine substitutes 0.0 for prices and 1.0 for FX rates.
type Snapshot struct {
	Prices map[string]float64 `json:"prices"`
	FX     map[string]float64 `json:"fx"`
}

// FXKey returns the snapshot key for a currency's USD rate, e.g. "JPYUSD=X".
func FXKey(currency string) string {
	return currency + "USD=X"
}

// Intermediate shapes for schema-validated decoding. Pointer fields
// distinguish "absent" from zero values.
type portfolioJSON struct {
	CashBalances *map[string]float64 `json:"cash_balances"`
	Assets       []assetJSON         `json:"assets"`
}

type assetJSON struct {
	Ticker        *string       `json:"ticker"`
	TargetPercent *float64      `json:"target_percent"`
	Holdings      []holdingJSON `json:"holdings"`
}

type holdingJSON struct {
	Account  *string  `json:"account"`
	Shares   *float64 `json:"shares"`
	AvgPrice *float64 `json:"avg_price"`
}

// ParsePortfolio decodes and validates the persisted portfolio shape.
// Any missing required field fails with ErrMalformedPortfolio.
func ParsePortfolio(data []byte) (*Portfolio, error) {
	var raw portfolioJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPortfolio, err)
	}

	if raw.CashBalances == nil {
		return nil, fmt.Errorf("%w: missing cash_balances", ErrMalformedPortfolio)
	}

	p := &Portfolio{
		CashBalances: CashBalances(*raw.CashBalances),
		Assets:       make([]Asset, 0, len(raw.Assets)),
	}

	for i, ra := range raw.Assets {
		if ra.Ticker == nil {
			return nil, fmt.Errorf("%w: asset %d missing ticker", ErrMalformedPortfolio, i)
		}
		if ra.TargetPercent == nil {
			return nil, fmt.Errorf("%w: asset %q missing target_percent", ErrMalformedPortfolio, *ra.Ticker)
		}

		asset := Asset{
			Ticker:        *ra.Ticker,
			TargetPercent: *ra.TargetPercent,
			Holdings:      make([]Holding, 0, len(ra.Holdings)),
		}
		for j, rh := range ra.Holdings {
			if rh.Account == nil {
				return nil, fmt.Errorf("%w: asset %q holding %d missing account", ErrMalformedPortfolio, asset.Ticker, j)
			}
			if rh.Shares == nil {
				return nil, fmt.Errorf("%w: asset %q holding %d missing shares", ErrMalformedPortfolio, asset.Ticker, j)
			}
			if rh.AvgPrice == nil {
				return nil, fmt.Errorf("%w: asset %q holding %d missing avg_price", ErrMalformedPortfolio, asset.Ticker, j)
			}
			asset.Holdings = append(asset.Holdings, Holding{
				Account:  *rh.Account,
				Shares:   *rh.Shares,
				AvgPrice: *rh.AvgPrice,
			})
		}
		p.Assets = append(p.Assets, asset)
	}

	return p, nil
}

// Serialize encodes the portfolio in its canonical persisted shape.
func (p *Portfolio) Serialize() ([]byte, error) {
	// Holdings and assets slices must never encode as null
	out := *p
	if out.Assets == nil {
		out.Assets = []Asset{}
	}
	for i := range out.Assets {
		if out.Assets[i].Holdings == nil {
			out.Assets[i].Holdings = []Holding{}
		}
	}
	return json.MarshalIndent(&out, "", "    ")
}
