package projection

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/domain"
)

func installment(detail, period string, current, total int, amount int64) domain.Transaction {
	return domain.Transaction{
		ID:                 detail,
		Date:               period + "-05",
		Detail:             detail,
		Amount:             decimal.NewFromInt(amount),
		Type:               domain.TypeInstallment,
		IsInstallment:      true,
		InstallmentCurrent: current,
		InstallmentTotal:   total,
		TargetPeriod:       period,
	}
}

func purchase(detail, period string, amount int64) domain.Transaction {
	return domain.Transaction{
		ID:           detail,
		Date:         period + "-05",
		Detail:       detail,
		Amount:       decimal.NewFromInt(amount),
		Type:         domain.TypePurchase,
		TargetPeriod: period,
	}
}

func TestProjectBaseMonthVerbatim(t *testing.T) {
	txs := []domain.Transaction{
		purchase("CAFE", "2024-04", 100),
		installment("TV", "2024-04", 2, 6, 500),
		purchase("VIEJO", "2024-03", 50),
	}

	got := Project(txs, "2024-04", "2024-04")
	if len(got) != 2 {
		t.Fatalf("base month returned %d transactions, want 2", len(got))
	}
	for _, tx := range got {
		if tx.Explanation != "" {
			t.Errorf("base month entries must be verbatim, got explanation %q", tx.Explanation)
		}
		if tx.ID == "TV" && tx.InstallmentCurrent != 2 {
			t.Errorf("base month must not shift installments: got %d", tx.InstallmentCurrent)
		}
	}
}

func TestProjectFutureMonth(t *testing.T) {
	tv := installment("TV", "2024-04", 2, 6, 500)
	txs := []domain.Transaction{tv, purchase("CAFE", "2024-04", 100)}

	got := Project(txs, "2024-06", "2024-04")
	if len(got) != 1 {
		t.Fatalf("future month returned %d transactions, want 1", len(got))
	}
	p := got[0]
	if p.InstallmentCurrent != 4 {
		t.Errorf("projected installment = %d, want 4", p.InstallmentCurrent)
	}
	if !p.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("projected amount changed: %s", p.Amount)
	}
	if p.Explanation != "En Junio 2024 pagarás la cuota 4 de 6." {
		t.Errorf("unexpected explanation: %q", p.Explanation)
	}
	if tv.InstallmentCurrent != 2 {
		t.Error("Project mutated its input")
	}
}

func TestProjectExhaustedSeriesExcluded(t *testing.T) {
	txs := []domain.Transaction{installment("TV", "2024-04", 2, 6, 500)}

	// diff=5 → projected installment 7 of 6.
	if got := Project(txs, "2024-09", "2024-04"); len(got) != 0 {
		t.Errorf("exhausted series must be excluded, got %d entries", len(got))
	}
	// diff=4 → installment 6 of 6, the last one.
	if got := Project(txs, "2024-08", "2024-04"); len(got) != 1 {
		t.Errorf("final installment month must be included, got %d entries", len(got))
	}
}

func TestProjectionMonotonicity(t *testing.T) {
	// A series with T total and current position c must appear in exactly
	// T-c future months.
	tx := installment("HELADERA", "2024-04", 2, 9, 800)
	months := FuturePeriods([]domain.Transaction{tx}, "2024-04", DefaultHorizonMonths)
	if len(months) != 7 {
		t.Fatalf("series appears in %d future months, want 7", len(months))
	}
	if months[0] != "2024-05" || months[len(months)-1] != "2024-11" {
		t.Errorf("unexpected projection window: %v", months)
	}
}

func TestFuturePeriodsExistenceOnly(t *testing.T) {
	txs := []domain.Transaction{
		purchase("CAFE", "2024-04", 100),
	}
	if got := FuturePeriods(txs, "2024-04", 12); len(got) != 0 {
		t.Errorf("non-installment data must yield no future periods, got %v", got)
	}
}

func TestAvailablePeriods(t *testing.T) {
	txs := []domain.Transaction{
		purchase("A", "2024-03", 1),
		purchase("B", "2024-05", 1),
		purchase("C", "2024-04", 1),
		purchase("D", "2024-05", 2),
		{ID: "X", Detail: "X", Amount: decimal.NewFromInt(1)},
	}
	got := AvailablePeriods(txs)
	want := []string{"2024-05", "2024-04", "2024-03"}
	if len(got) != len(want) {
		t.Fatalf("AvailablePeriods = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AvailablePeriods = %v, want %v", got, want)
		}
	}
}

func TestTotalFor(t *testing.T) {
	txs := []domain.Transaction{
		installment("TV", "2024-04", 2, 6, 500),
		installment("CELU", "2024-04", 5, 6, 300),
		purchase("CAFE", "2024-04", 100),
	}

	// Base month: everything in the period.
	if got := TotalFor(txs, "2024-04", "2024-04"); !got.Equal(decimal.NewFromInt(900)) {
		t.Errorf("base total = %s, want 900", got)
	}
	// 2024-06: TV projects to 4/6, CELU would be 7/6 and drops out.
	if got := TotalFor(txs, "2024-06", "2024-04"); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("future total = %s, want 500", got)
	}
}
