package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	st := New(Config{
		Path:      filepath.Join(dir, "portfolio.json"),
		BackupDir: filepath.Join(dir, "backups"),
	}, zerolog.Nop())

	// Deterministic, strictly increasing clock so every backup gets a
	// distinct filename.
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	step := 0
	st.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return st
}

func portfolioWithCash(usd float64) *domain.Portfolio {
	return &domain.Portfolio{
		CashBalances: domain.CashBalances{"USD": usd},
		Assets: []domain.Asset{
			{Ticker: "AAPL", TargetPercent: 100},
		},
	}
}

func TestLoad_MissingFileYieldsDefault(t *testing.T) {
	st := newTestStore(t)

	p, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, p.Assets)
	assert.Contains(t, p.CashBalances, "USD")
	assert.Contains(t, p.CashBalances, "IDR")

	// First load must not create the file.
	_, err = os.Stat(st.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_MalformedFile(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, os.WriteFile(st.Path(), []byte(`{"assets": []}`), 0644))

	_, err := st.Load()
	assert.ErrorIs(t, err, domain.ErrMalformedPortfolio)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Save(portfolioWithCash(1234.5)))

	p, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 1234.5, p.CashBalances["USD"])
	assert.Equal(t, "AAPL", p.Assets[0].Ticker)
}

func TestSave_FirstSaveCreatesNoBackup(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Save(portfolioWithCash(1)))

	count, err := st.BackupCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSave_BacksUpPriorState(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Save(portfolioWithCash(1)))
	require.NoError(t, st.Save(portfolioWithCash(2)))
	require.NoError(t, st.Save(portfolioWithCash(3)))

	count, err := st.BackupCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	backups, err := st.listBackups()
	require.NoError(t, err)
	for _, b := range backups {
		name := filepath.Base(b)
		assert.Regexp(t, `^backup_portfolio_\d{8}_\d{6}\.json$`, name)
	}
}

func TestRollback_StepsBackThroughHistory(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Save(portfolioWithCash(1)))
	require.NoError(t, st.Save(portfolioWithCash(2)))
	require.NoError(t, st.Save(portfolioWithCash(3)))

	require.NoError(t, st.Rollback())
	p, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.CashBalances["USD"])

	require.NoError(t, st.Rollback())
	p, err = st.Load()
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.CashBalances["USD"])

	// History is exhausted.
	assert.ErrorIs(t, st.Rollback(), domain.ErrNoBackup)

	// The failed rollback left the restored state alone.
	p, err = st.Load()
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.CashBalances["USD"])
}

func TestRollback_NoBackups(t *testing.T) {
	st := newTestStore(t)
	assert.ErrorIs(t, st.Rollback(), domain.ErrNoBackup)
}

func TestRollback_RejectsCorruptBackup(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Save(portfolioWithCash(1)))
	require.NoError(t, st.Save(portfolioWithCash(2)))

	backups, err := st.listBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	require.NoError(t, os.WriteFile(backups[0], []byte("garbage"), 0644))

	err = st.Rollback()
	assert.ErrorIs(t, err, domain.ErrMalformedPortfolio)

	// Live state untouched.
	p, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.CashBalances["USD"])
}

func TestUpdate_AppliesMutation(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Save(portfolioWithCash(100)))

	updated, err := st.Update(func(p *domain.Portfolio) error {
		p.CashBalances["USD"] -= 40
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, updated.CashBalances["USD"])

	p, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 60.0, p.CashBalances["USD"])
}

func TestUpdate_ErrorAbortsWithoutWriting(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Save(portfolioWithCash(100)))

	_, err := st.Update(func(p *domain.Portfolio) error {
		p.CashBalances["USD"] = -999
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	p, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.CashBalances["USD"])

	count, err := st.BackupCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpdate_ConcurrentIncrementsDoNotLoseWrites(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Save(portfolioWithCash(0)))

	const writers = 10
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := st.Update(func(p *domain.Portfolio) error {
				p.CashBalances["USD"]++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, float64(writers), p.CashBalances["USD"])
}
