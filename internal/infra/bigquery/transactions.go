package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// InsertTransactions appends a batch of raw transactions. Synthetic rollup
// entries (Kind other than raw) are skipped.
func (s *Store) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	importDate := civil.DateOf(time.Now())
	rows := make([]*TransactionRow, 0, len(txs))
	for _, t := range txs {
		if t.Kind != "" && t.Kind != domain.KindRaw {
			continue
		}
		rows = append(rows, RowFromTransaction(t, importDate))
	}
	if len(rows) == 0 {
		return nil
	}

	if err := s.table(transactionsTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// ListTransactions returns every stored transaction, oldest first.
func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			tx_date,
			detail,
			amount,
			bank_name,
			tx_type,
			installment_current,
			installment_total,
			target_period,
			post_closing,
			closing_date,
			due_date,
			import_date,
			plan
		FROM %s.%s
		ORDER BY tx_date, transaction_id
	`, s.dataset, transactionsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var out []domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		out = append(out, r.Transaction())
	}
	return out, nil
}

// DeleteTransaction removes one transaction by id.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	sql := fmt.Sprintf(`DELETE FROM %s.%s WHERE transaction_id = @transaction_id`,
		s.dataset, transactionsTable)
	err := s.runQuery(ctx, sql, []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}
