package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

const incomeKey = "monthly_income"

// SetIncome stores the user's monthly income in the settings table.
func (s *Store) SetIncome(ctx context.Context, income decimal.Decimal) error {
	sql := fmt.Sprintf(`
		MERGE %s.%s t
		USING (SELECT @key AS key, @value AS value) src
		ON t.key = src.key
		WHEN MATCHED THEN UPDATE SET value = src.value
		WHEN NOT MATCHED THEN INSERT (key, value) VALUES (src.key, src.value)
	`, s.dataset, settingsTable)

	err := s.runQuery(ctx, sql, []bigquery.QueryParameter{
		{Name: "key", Value: incomeKey},
		{Name: "value", Value: income.String()},
	})
	if err != nil {
		return fmt.Errorf("SetIncome: %w", err)
	}
	return nil
}

// GetIncome reads the stored monthly income. Missing or malformed settings
// read as zero.
func (s *Store) GetIncome(ctx context.Context) (decimal.Decimal, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT value FROM %s.%s WHERE key = @key LIMIT 1
	`, s.dataset, settingsTable))
	q.Parameters = []bigquery.QueryParameter{{Name: "key", Value: incomeKey}}

	it, err := q.Read(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetIncome: query read: %w", err)
	}

	var r SettingRow
	err = it.Next(&r)
	if err == iterator.Done {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetIncome: iter next: %w", err)
	}

	income, err := decimal.NewFromString(r.Value)
	if err != nil {
		return decimal.Zero, nil
	}
	return income, nil
}
