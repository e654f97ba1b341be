// Package pipeline orchestrates the whole flow: statement import through the
// AI extractor, the in-memory working set of user data, and the period
// processing that feeds the dashboard.
package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/cardcycle/internal/classify"
	"github.com/dvloznov/cardcycle/internal/config"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/extraction"
	"github.com/dvloznov/cardcycle/internal/gcsstore"
	"github.com/dvloznov/cardcycle/internal/logger"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	InsertTransactions(ctx context.Context, txs []domain.Transaction) error
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	ListBanks(ctx context.Context) ([]domain.BankProfile, error)
	ListFixedExpenses(ctx context.Context) ([]domain.FixedExpense, error)
	GetIncome(ctx context.Context) (decimal.Decimal, error)
	RecordStatement(ctx context.Context, bankID, gcsURI, contentType string) (string, error)
	StartImportRun(ctx context.Context, statementID string) (string, error)
	MarkImportRunFailed(ctx context.Context, runID string, importErr error)
	MarkImportRunSucceeded(ctx context.Context, runID string) error
}

// Snapshot is the in-memory working set, refreshed from storage as a unit.
type Snapshot struct {
	Transactions  []domain.Transaction
	Banks         []domain.BankProfile
	FixedExpenses []domain.FixedExpense
	Income        decimal.Decimal
}

// Service wires the stores, the parser and the configuration together.
type Service struct {
	store  Store
	files  gcsstore.FileStore
	parser extraction.Parser
	cfg    config.Config

	mu     sync.RWMutex
	snap   Snapshot
	loaded bool
}

// New builds a pipeline service.
func New(store Store, files gcsstore.FileStore, parser extraction.Parser, cfg config.Config) *Service {
	return &Service{store: store, files: files, parser: parser, cfg: cfg}
}

// Refresh reloads the working set. The four reads run concurrently; any
// failure aborts the refresh and keeps the previous snapshot. Concurrent
// refreshes race benignly: the last writer wins with a consistent set.
func (s *Service) Refresh(ctx context.Context) error {
	var next Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx)
		if err != nil {
			return err
		}
		next.Transactions = classify.Clean(txs, s.cfg.Keywords)
		return nil
	})
	g.Go(func() error {
		banks, err := s.store.ListBanks(gctx)
		if err != nil {
			return err
		}
		next.Banks = banks
		return nil
	})
	g.Go(func() error {
		fixed, err := s.store.ListFixedExpenses(gctx)
		if err != nil {
			return err
		}
		next.FixedExpenses = fixed
		return nil
	})
	g.Go(func() error {
		income, err := s.store.GetIncome(gctx)
		if err != nil {
			return err
		}
		next.Income = income
		return nil
	})

	if err := g.Wait(); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("refresh failed, keeping previous snapshot")
		return err
	}

	s.mu.Lock()
	s.snap = next
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Snapshot returns the current working set, loading it on first use.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	loaded := s.loaded
	snap := s.snap
	s.mu.RUnlock()

	if loaded {
		return snap, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, nil
}

// bankByID finds a configured bank profile, matching on id first and falling
// back to a case-insensitive name match for CLI convenience.
func bankByID(banks []domain.BankProfile, id string) (domain.BankProfile, bool) {
	for _, b := range banks {
		if b.ID == id {
			return b, true
		}
	}
	for _, b := range banks {
		if strings.EqualFold(b.Name, id) {
			return b, true
		}
	}
	return domain.BankProfile{}, false
}
