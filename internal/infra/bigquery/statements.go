package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/cardcycle/internal/logger"
)

// InsertStatement records one uploaded statement file.
func (s *Store) InsertStatement(ctx context.Context, row *StatementRow) error {
	if row.StatementID == "" {
		row.StatementID = uuid.NewString()
	}
	if row.UploadedTS.IsZero() {
		row.UploadedTS = time.Now()
	}
	if err := s.table(statementsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}

// RecordStatement registers an uploaded statement and returns its id.
func (s *Store) RecordStatement(ctx context.Context, bankID, gcsURI, contentType string) (string, error) {
	row := &StatementRow{
		StatementID: uuid.NewString(),
		BankID:      bankID,
		GCSURI:      gcsURI,
		ContentType: contentType,
		UploadedTS:  time.Now(),
	}
	if err := s.InsertStatement(ctx, row); err != nil {
		return "", err
	}
	return row.StatementID, nil
}

// StartImportRun opens an import run with status=RUNNING and returns its id.
func (s *Store) StartImportRun(ctx context.Context, statementID string) (string, error) {
	runID := uuid.NewString()

	sql := fmt.Sprintf(`
		INSERT %s.%s (import_run_id, statement_id, started_ts, status, error_message)
		VALUES (@import_run_id, @statement_id, @started_ts, @status, "")
	`, s.dataset, importRunsTable)

	err := s.runQuery(ctx, sql, []bigquery.QueryParameter{
		{Name: "import_run_id", Value: runID},
		{Name: "statement_id", Value: statementID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: "RUNNING"},
	})
	if err != nil {
		return "", fmt.Errorf("StartImportRun: %w", err)
	}
	return runID, nil
}

// MarkImportRunFailed sets status=FAILED with the error message. Failures to
// record the failure are logged, not returned: the import error itself is
// what the caller propagates.
func (s *Store) MarkImportRunFailed(ctx context.Context, runID string, importErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if importErr != nil {
		errMsg = importErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	sql := fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE import_run_id = @import_run_id
	`, s.dataset, importRunsTable)

	err := s.runQuery(ctx, sql, []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "import_run_id", Value: runID},
	})
	if err != nil {
		log.Error().Err(err).Str("import_run_id", runID).Msg("MarkImportRunFailed: update failed")
	}
}

// MarkImportRunSucceeded sets status=SUCCESS and clears the error message.
func (s *Store) MarkImportRunSucceeded(ctx context.Context, runID string) error {
	sql := fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = ""
		WHERE import_run_id = @import_run_id
	`, s.dataset, importRunsTable)

	err := s.runQuery(ctx, sql, []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "import_run_id", Value: runID},
	})
	if err != nil {
		return fmt.Errorf("MarkImportRunSucceeded: %w", err)
	}
	return nil
}
