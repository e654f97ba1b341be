package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// SaveFixedExpenses overwrites the fixed_expenses table with the given set.
func (s *Store) SaveFixedExpenses(ctx context.Context, expenses []domain.FixedExpense) error {
	sql := fmt.Sprintf(`DELETE FROM %s.%s WHERE TRUE`, s.dataset, fixedExpensesTable)
	if err := s.runQuery(ctx, sql, nil); err != nil {
		return fmt.Errorf("SaveFixedExpenses: clearing table: %w", err)
	}
	if len(expenses) == 0 {
		return nil
	}

	rows := make([]*FixedExpenseRow, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, RowFromFixedExpense(e))
	}
	if err := s.table(fixedExpensesTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("SaveFixedExpenses: inserting rows: %w", err)
	}
	return nil
}

// ListFixedExpenses returns all fixed monthly expenses, sorted by name.
func (s *Store) ListFixedExpenses(ctx context.Context) ([]domain.FixedExpense, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT expense_id, name, amount
		FROM %s.%s
		ORDER BY name
	`, s.dataset, fixedExpensesTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListFixedExpenses: query read: %w", err)
	}

	var out []domain.FixedExpense
	for {
		var r FixedExpenseRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListFixedExpenses: iter next: %w", err)
		}
		out = append(out, r.FixedExpense())
	}
	return out, nil
}
