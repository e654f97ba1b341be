package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// ReplaceBanks overwrites the whole banks table with the given profiles.
// Bank configuration is small and user-edited as a set, so full replacement
// is simpler than per-row reconciliation. Transactions referencing a removed
// bank are left in place.
func (s *Store) ReplaceBanks(ctx context.Context, banks []domain.BankProfile) error {
	sql := fmt.Sprintf(`DELETE FROM %s.%s WHERE TRUE`, s.dataset, banksTable)
	if err := s.runQuery(ctx, sql, nil); err != nil {
		return fmt.Errorf("ReplaceBanks: clearing table: %w", err)
	}
	if len(banks) == 0 {
		return nil
	}

	rows := make([]*BankRow, 0, len(banks))
	for _, b := range banks {
		rows = append(rows, RowFromBank(b))
	}
	if err := s.table(banksTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("ReplaceBanks: inserting rows: %w", err)
	}
	return nil
}

// ListBanks returns all configured bank profiles, sorted by name.
func (s *Store) ListBanks(ctx context.Context) ([]domain.BankProfile, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			bank_id,
			name,
			columns,
			currency_symbol,
			identifiers,
			due_date_keywords,
			closing_date_keywords
		FROM %s.%s
		ORDER BY name
	`, s.dataset, banksTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBanks: query read: %w", err)
	}

	var out []domain.BankProfile
	for {
		var r BankRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBanks: iter next: %w", err)
		}
		out = append(out, r.Bank())
	}
	return out, nil
}
