package valuation

// AssetReport holds the derived metrics for one asset at snapshot prices.
type AssetReport struct {
	Ticker        string   `json:"ticker"`
	TargetPercent float64  `json:"target_percent"`
	Shares        float64  `json:"shares"`
	CostBasis     float64  `json:"cost_basis"`
	Price         float64  `json:"price"`
	MarketValue   float64  `json:"market_value"`
	UnrealizedPL  float64  `json:"unrealized_pl"`
	ReturnPct     float64  `json:"return_pct"`
	CurrentPct    float64  `json:"current_pct"`
	Accounts      []string `json:"accounts"`
}

// Report is the full valuation of a portfolio against one oracle snapshot.
// All amounts are USD.
type Report struct {
	Assets         []AssetReport `json:"assets"`
	CashUSD        float64       `json:"cash_usd"`
	PositionsValue float64       `json:"positions_value"`
	NetWorth       float64       `json:"net_worth"`
}

// Asset returns the report row for a ticker, or nil.
func (r *Report) Asset(ticker string) *AssetReport {
	for i := range r.Assets {
		if r.Assets[i].Ticker == ticker {
			return &r.Assets[i]
		}
	}
	return nil
}
