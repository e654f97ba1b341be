package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/extraction"
	"github.com/dvloznov/cardcycle/internal/logger"
)

// ImportResult reports what one statement import produced.
type ImportResult struct {
	StatementID  string
	ImportRunID  string
	GCSURI       string
	Transactions []domain.Transaction
}

// StageStatement archives the uploaded file in GCS and registers it, without
// running extraction. The async upload endpoint stages first and lets the job
// worker import.
func (s *Service) StageStatement(ctx context.Context, data []byte, filename, contentType, bankID string) (statementID, gcsURI string, err error) {
	objectName := fmt.Sprintf("statements/%s/%s-%s", bankID, uuid.NewString(), filename)
	uri, err := s.files.Upload(ctx, objectName, data)
	if err != nil {
		return "", "", fmt.Errorf("uploading statement: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("gcs_uri", uri).Msg("Statement uploaded")

	id, err := s.store.RecordStatement(ctx, bankID, uri, contentType)
	if err != nil {
		return "", "", fmt.Errorf("recording statement: %w", err)
	}
	return id, uri, nil
}

// ImportStatement ingests one uploaded statement file end to end.
func (s *Service) ImportStatement(ctx context.Context, data []byte, filename, contentType, bankID string) (*ImportResult, error) {
	// 1. Archive and register the file.
	statementID, uri, err := s.StageStatement(ctx, data, filename, contentType, bankID)
	if err != nil {
		return nil, err
	}
	return s.runImport(ctx, statementID, bankID, uri, contentType, data)
}

// ImportFromGCS re-runs extraction for an already uploaded statement. This is
// the path the job worker takes.
func (s *Service) ImportFromGCS(ctx context.Context, statementID, bankID, gcsURI, contentType string) (*ImportResult, error) {
	data, err := s.files.Fetch(ctx, gcsURI)
	if err != nil {
		return nil, fmt.Errorf("fetching statement from GCS: %w", err)
	}
	return s.runImport(ctx, statementID, bankID, gcsURI, contentType, data)
}

func (s *Service) runImport(ctx context.Context, statementID, bankID, gcsURI, contentType string, data []byte) (*ImportResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	// 2. Open the bookkeeping run.
	runID, err := s.store.StartImportRun(ctx, statementID)
	if err != nil {
		return nil, fmt.Errorf("starting import run: %w", err)
	}

	result := &ImportResult{StatementID: statementID, ImportRunID: runID, GCSURI: gcsURI}

	// 3. Resolve the bank profile driving extraction.
	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.store.MarkImportRunFailed(ctx, runID, err)
		return nil, err
	}
	bank, ok := bankByID(snap.Banks, bankID)
	if !ok {
		err := fmt.Errorf("unknown bank %q", bankID)
		s.store.MarkImportRunFailed(ctx, runID, err)
		return nil, err
	}

	// 4. Extract raw records with the model.
	raw, err := s.parseByType(ctx, data, contentType, bank)
	if err != nil {
		s.store.MarkImportRunFailed(ctx, runID, err)
		return nil, fmt.Errorf("extracting statement: %w", err)
	}

	// 5. Normalize into domain transactions.
	txs := extraction.BuildTransactions(raw, bank, s.cfg.PlanRules)
	if len(txs) == 0 {
		s.store.MarkImportRunFailed(ctx, runID, extraction.ErrNoTransactions)
		return nil, extraction.ErrNoTransactions
	}

	// 6. Persist and close the run.
	if err := s.store.InsertTransactions(ctx, txs); err != nil {
		s.store.MarkImportRunFailed(ctx, runID, err)
		return nil, fmt.Errorf("saving transactions: %w", err)
	}
	if err := s.store.MarkImportRunSucceeded(ctx, runID); err != nil {
		return nil, err
	}

	log.Info().
		Str("statement_id", statementID).
		Str("bank", bank.Name).
		Int("transactions", len(txs)).
		Dur("took", time.Since(start)).
		Msg("Statement imported")

	// The new transactions invalidate the working set.
	if err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("post-import refresh failed")
	}

	result.Transactions = txs
	return result, nil
}

func (s *Service) parseByType(ctx context.Context, data []byte, contentType string, bank domain.BankProfile) (extraction.RawStatement, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return s.parser.ParseImages(ctx, [][]byte{data}, bank)
	default:
		return s.parser.ParseStatement(ctx, data, bank)
	}
}

// AnalyzeBankFormat proxies the profile draft extraction for new banks.
func (s *Service) AnalyzeBankFormat(ctx context.Context, pdf []byte) (domain.BankProfile, error) {
	return s.parser.AnalyzeBankFormat(ctx, pdf)
}

// ParseBill extracts the billed amount and due date from pasted bill text,
// used to prefill a fixed expense.
func (s *Service) ParseBill(ctx context.Context, content, serviceName string) (extraction.BillResult, error) {
	return s.parser.ParseServiceBill(ctx, content, serviceName)
}
