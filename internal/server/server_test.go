package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/database"
	"folio/internal/domain"
	"folio/internal/events"
	"folio/internal/modules/history"
	"folio/internal/modules/valuation"
	"folio/internal/oracle"
	"folio/internal/store"
)

type stubQuotes struct {
	prices map[string]float64
}

func (s *stubQuotes) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := s.prices[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return price, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()

	st := store.New(store.Config{
		Path:      filepath.Join(dir, "portfolio.json"),
		BackupDir: dir,
	}, zerolog.Nop())

	quotes := &stubQuotes{prices: map[string]float64{
		"AAPL":     150,
		"JPYUSD=X": 0.0068,
	}}
	oracleService := oracle.New(quotes, nil, oracle.Config{Timeout: time.Second}, zerolog.Nop())
	valuationService := valuation.NewService(zerolog.Nop())

	historyDB, err := database.New(database.Config{
		Path: filepath.Join(dir, "history.db"),
		Name: "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { historyDB.Close() })
	historyRepo := history.NewRepository(historyDB, zerolog.Nop())
	require.NoError(t, historyRepo.Migrate())

	eventManager := events.NewManager(events.NewBus(), zerolog.Nop())
	historyService := history.NewService(historyRepo, st, oracleService, valuationService, eventManager, zerolog.Nop())

	srv := New(Config{
		Port:      0,
		DevMode:   true,
		Store:     st,
		Oracle:    oracleService,
		Valuation: valuationService,
		History:   historyService,
		Events:    eventManager,
		Log:       zerolog.Nop(),
	})
	return srv, st
}

func seedPortfolio(t *testing.T, st *store.Store) {
	t.Helper()
	require.NoError(t, st.Save(&domain.Portfolio{
		CashBalances: domain.CashBalances{"USD": 1000, "JPY": 100000},
		Assets: []domain.Asset{
			{
				Ticker:        "AAPL",
				TargetPercent: 100,
				Holdings: []domain.Holding{
					{Account: "main", Shares: 10, AvgPrice: 100},
				},
			},
		},
	}))
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPortfolio(t *testing.T) {
	srv, st := newTestServer(t)
	seedPortfolio(t, st)

	rec := doRequest(t, srv, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Report valuation.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// 10 AAPL at 150 plus 1000 USD plus 100000 JPY at 0.0068.
	assert.InDelta(t, 1500, resp.Report.PositionsValue, 1e-9)
	assert.InDelta(t, 1680, resp.Report.CashUSD, 1e-9)
	assert.InDelta(t, 3180, resp.Report.NetWorth, 1e-9)
}

func TestSavePortfolio_RejectsMalformed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/portfolio", `{"assets": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRollback_NoBackups(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/rollback", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRollback_RestoresPriorState(t *testing.T) {
	srv, st := newTestServer(t)
	seedPortfolio(t, st)

	rec := doRequest(t, srv, http.MethodPost, "/api/portfolio",
		`{"cash_balances": {"USD": 5}, "assets": []}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/rollback", "")
	require.Equal(t, http.StatusOK, rec.Code)

	pf, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 1000.0, pf.CashBalances["USD"])
}

func TestExecuteTrades(t *testing.T) {
	srv, st := newTestServer(t)
	seedPortfolio(t, st)

	body := `{"trades": [{"ticker": "AAPL", "amount": 300, "account": "main", "price": 150}]}`
	rec := doRequest(t, srv, http.MethodPost, "/api/trades", body)
	require.Equal(t, http.StatusOK, rec.Code)

	pf, err := st.Load()
	require.NoError(t, err)
	assert.InDelta(t, 700, pf.CashBalances["USD"], 1e-9)
	assert.InDelta(t, 12, pf.FindAsset("AAPL").TotalShares(), 1e-9)
}

func TestExecuteTrades_UnknownTicker(t *testing.T) {
	srv, st := newTestServer(t)
	seedPortfolio(t, st)

	body := `{"trades": [{"ticker": "NOPE", "amount": 300, "account": "main", "price": 150}]}`
	rec := doRequest(t, srv, http.MethodPost, "/api/trades", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRebalancingPlan(t *testing.T) {
	srv, st := newTestServer(t)
	seedPortfolio(t, st)

	rec := doRequest(t, srv, http.MethodGet, "/api/rebalancing/plan?cash=500", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CashToDeploy float64                   `json:"cash_to_deploy"`
		Trades       []domain.TradeInstruction `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 500.0, resp.CashToDeploy)
	// AAPL targets 100% of net worth and holds less, so all cash goes there.
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "AAPL", resp.Trades[0].Ticker)
	assert.InDelta(t, 500, resp.Trades[0].Amount, 1e-9)
	assert.Equal(t, "main", resp.Trades[0].Account)
}

func TestRebalancingPlan_CashClampedToBalance(t *testing.T) {
	srv, st := newTestServer(t)
	seedPortfolio(t, st)

	rec := doRequest(t, srv, http.MethodGet, "/api/rebalancing/plan?cash=999999", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CashToDeploy float64 `json:"cash_to_deploy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 1680, resp.CashToDeploy, 1e-9)
}

func TestGetHistory_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Snapshots []history.Snapshot `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Snapshots)
}

func TestGetMarketData(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/market-data?tickers=AAPL&currencies=JPY", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Prices map[string]float64 `json:"prices"`
		FX     map[string]float64 `json:"fx"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 150.0, resp.Prices["AAPL"])
	assert.Equal(t, 0.0068, resp.FX["JPYUSD=X"])
}
