// Package store provides the durable flat-file portfolio store with
// timestamped backups and single-step rollback.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"folio/internal/domain"
)

const (
	backupPrefix = "backup_portfolio_"
	backupSuffix = ".json"
	// Timestamps sort lexicographically in chronological order.
	backupTimeFormat = "20060102_150405"
)

// Config holds store configuration
type Config struct {
	Path      string // portfolio file path
	BackupDir string // directory for timestamped backups
}

// Store persists one portfolio to a JSON file. Every save first snapshots the
// prior state into BackupDir; Rollback restores and consumes the newest
// snapshot. A single mutex serializes load-mutate-save cycles so concurrent
// writers cannot lose updates.
type Store struct {
	path      string
	backupDir string
	mirror    *S3Mirror
	now       func() time.Time
	mu        sync.Mutex
	log       zerolog.Logger
}

// New creates a new portfolio store
func New(cfg Config, log zerolog.Logger) *Store {
	backupDir := cfg.BackupDir
	if backupDir == "" {
		backupDir = filepath.Dir(cfg.Path)
	}
	return &Store{
		path:      cfg.Path,
		backupDir: backupDir,
		now:       time.Now,
		log:       log.With().Str("component", "store").Logger(),
	}
}

// SetMirror attaches an optional offsite backup mirror. Uploads are
// best-effort and never block or fail a save.
func (s *Store) SetMirror(m *S3Mirror) {
	s.mirror = m
}

// Path returns the portfolio file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the portfolio from disk. A missing file yields the default empty
// portfolio rather than an error.
func (s *Store) Load() (*domain.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*domain.Portfolio, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Debug().Str("path", s.path).Msg("Portfolio file missing, using default")
		return domain.NewDefaultPortfolio(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio: %w", err)
	}

	p, err := domain.ParsePortfolio(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return p, nil
}

// Save persists the portfolio, backing up the prior state first.
func (s *Store) Save(p *domain.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(p)
}

func (s *Store) saveLocked(p *domain.Portfolio) error {
	if err := s.backupCurrent(); err != nil {
		return err
	}

	data, err := p.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize portfolio: %w", err)
	}

	if err := s.writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write portfolio: %w", err)
	}

	s.log.Debug().Str("path", s.path).Int("bytes", len(data)).Msg("Portfolio saved")
	return nil
}

// Update runs a load-mutate-save cycle as one logical transaction under the
// store lock. If fn returns an error nothing is written and the error is
// returned unchanged.
func (s *Store) Update(fn func(*domain.Portfolio) error) (*domain.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if err := s.saveLocked(p); err != nil {
		return nil, err
	}
	return p, nil
}

// backupCurrent snapshots the current portfolio file, if any, into the backup
// directory. Backups are retained indefinitely; only Rollback consumes them.
func (s *Store) backupCurrent() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil // nothing to back up on first save
	}
	if err != nil {
		return fmt.Errorf("failed to read portfolio for backup: %w", err)
	}

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + s.now().Format(backupTimeFormat) + backupSuffix
	backupPath := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	s.log.Debug().Str("backup", backupPath).Msg("Backup created")

	if s.mirror != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mirror.Upload(ctx, name, data); err != nil {
				s.log.Warn().Err(err).Str("backup", name).Msg("Offsite backup upload failed")
			}
		}()
	}

	return nil
}

// Rollback restores the newest backup and deletes it, stepping the portfolio
// one snapshot back in history. Returns ErrNoBackup when no backups exist;
// the current state is left untouched in that case.
func (s *Store) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backups, err := s.listBackups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return domain.ErrNoBackup
	}

	newest := backups[len(backups)-1]
	data, err := os.ReadFile(newest)
	if err != nil {
		return fmt.Errorf("failed to read backup %s: %w", newest, err)
	}

	// Validate before replacing the live file; a corrupt backup must not
	// clobber good state.
	if _, err := domain.ParsePortfolio(data); err != nil {
		return fmt.Errorf("backup %s: %w", newest, err)
	}

	if err := s.writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	if err := os.Remove(newest); err != nil {
		return fmt.Errorf("failed to remove consumed backup: %w", err)
	}

	s.log.Info().Str("backup", newest).Msg("Rolled back to previous snapshot")
	return nil
}

// BackupCount returns the number of retained backups.
func (s *Store) BackupCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backups, err := s.listBackups()
	if err != nil {
		return 0, err
	}
	return len(backups), nil
}

// listBackups returns backup paths sorted oldest-first.
func (s *Store) listBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, backupSuffix) {
			backups = append(backups, filepath.Join(s.backupDir, name))
		}
	}
	sort.Strings(backups)
	return backups, nil
}

// writeAtomic writes via a temp file and rename so a crash mid-write never
// leaves a truncated portfolio.
func (s *Store) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".portfolio-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
