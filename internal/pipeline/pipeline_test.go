package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/config"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/extraction"
)

type fakeStore struct {
	mu        sync.Mutex
	txs       []domain.Transaction
	banks     []domain.BankProfile
	fixed     []domain.FixedExpense
	income    decimal.Decimal
	listErr   error
	failed    map[string]error
	succeeded []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{failed: make(map[string]error)}
}

func (f *fakeStore) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, txs...)
	return nil
}

func (f *fakeStore) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Transaction(nil), f.txs...), nil
}

func (f *fakeStore) ListBanks(ctx context.Context) ([]domain.BankProfile, error) {
	return f.banks, nil
}

func (f *fakeStore) ListFixedExpenses(ctx context.Context) ([]domain.FixedExpense, error) {
	return f.fixed, nil
}

func (f *fakeStore) GetIncome(ctx context.Context) (decimal.Decimal, error) {
	return f.income, nil
}

func (f *fakeStore) RecordStatement(ctx context.Context, bankID, gcsURI, contentType string) (string, error) {
	return "st-1", nil
}

func (f *fakeStore) StartImportRun(ctx context.Context, statementID string) (string, error) {
	return "run-1", nil
}

func (f *fakeStore) MarkImportRunFailed(ctx context.Context, runID string, importErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[runID] = importErr
}

func (f *fakeStore) MarkImportRunSucceeded(ctx context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.succeeded = append(f.succeeded, runID)
	return nil
}

type fakeFiles struct {
	objects map[string][]byte
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: make(map[string][]byte)}
}

func (f *fakeFiles) Upload(ctx context.Context, objectName string, data []byte) (string, error) {
	uri := "gs://test-bucket/" + objectName
	f.objects[uri] = data
	return uri, nil
}

func (f *fakeFiles) Fetch(ctx context.Context, uri string) ([]byte, error) {
	data, ok := f.objects[uri]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

type fakeParser struct {
	stmt extraction.RawStatement
	bill extraction.BillResult
	err  error
}

func (f *fakeParser) ParseStatement(ctx context.Context, pdf []byte, bank domain.BankProfile) (extraction.RawStatement, error) {
	return f.stmt, f.err
}

func (f *fakeParser) ParseImages(ctx context.Context, images [][]byte, bank domain.BankProfile) (extraction.RawStatement, error) {
	return f.stmt, f.err
}

func (f *fakeParser) AnalyzeBankFormat(ctx context.Context, pdf []byte) (domain.BankProfile, error) {
	return domain.BankProfile{Name: "Detected"}, nil
}

func (f *fakeParser) ParseServiceBill(ctx context.Context, content, serviceName string) (extraction.BillResult, error) {
	return f.bill, f.err
}

func newService(store *fakeStore, parser *fakeParser) *Service {
	return New(store, newFakeFiles(), parser, config.Default())
}

func TestImportStatement(t *testing.T) {
	store := newFakeStore()
	store.banks = []domain.BankProfile{{ID: "bank-1", Name: "Naranja X"}}
	parser := &fakeParser{stmt: extraction.RawStatement{
		ClosingDate: "2024-03-10",
		DueDate:     "2024-04-10",
		Transactions: []extraction.RawItem{
			{Date: "2024-03-05", Detail: "SUPERMERCADO", Amount: 1000},
			{Date: "2024-03-15", Detail: "FARMACIA", Amount: 500},
		},
	}}
	svc := newService(store, parser)

	res, err := svc.ImportStatement(context.Background(), []byte("%PDF"), "resumen.pdf", "application/pdf", "bank-1")
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if len(res.Transactions) != 2 {
		t.Fatalf("imported %d transactions, want 2", len(res.Transactions))
	}
	if len(store.txs) != 2 {
		t.Errorf("store holds %d transactions, want 2", len(store.txs))
	}
	if len(store.succeeded) != 1 {
		t.Errorf("import run not marked succeeded: %v", store.succeeded)
	}
	if res.Transactions[0].BankName != "Naranja X" {
		t.Errorf("bank name = %q", res.Transactions[0].BankName)
	}
}

func TestImportStatementNoTransactions(t *testing.T) {
	store := newFakeStore()
	store.banks = []domain.BankProfile{{ID: "bank-1", Name: "Naranja X"}}
	svc := newService(store, &fakeParser{stmt: extraction.RawStatement{}})

	_, err := svc.ImportStatement(context.Background(), []byte("%PDF"), "r.pdf", "application/pdf", "bank-1")
	if !errors.Is(err, extraction.ErrNoTransactions) {
		t.Fatalf("err = %v, want ErrNoTransactions", err)
	}
	if store.failed["run-1"] == nil {
		t.Error("empty extraction must mark the import run failed")
	}
	if len(store.txs) != 0 {
		t.Error("empty extraction must persist nothing")
	}
}

func TestImportStatementUnknownBank(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeParser{})

	_, err := svc.ImportStatement(context.Background(), []byte("%PDF"), "r.pdf", "application/pdf", "ghost")
	if err == nil {
		t.Fatal("unknown bank must fail the import")
	}
	if store.failed["run-1"] == nil {
		t.Error("unknown bank must mark the run failed")
	}
}

func TestImportFromGCS(t *testing.T) {
	store := newFakeStore()
	store.banks = []domain.BankProfile{{ID: "bank-1", Name: "Naranja X"}}
	parser := &fakeParser{stmt: extraction.RawStatement{
		ClosingDate:  "2024-03-10",
		Transactions: []extraction.RawItem{{Date: "2024-03-05", Detail: "CAFE", Amount: 100}},
	}}
	files := newFakeFiles()
	svc := New(store, files, parser, config.Default())

	uri, _ := files.Upload(context.Background(), "statements/r.pdf", []byte("%PDF"))

	res, err := svc.ImportFromGCS(context.Background(), "st-9", "bank-1", uri, "application/pdf")
	if err != nil {
		t.Fatalf("ImportFromGCS: %v", err)
	}
	if res.StatementID != "st-9" {
		t.Errorf("statement id = %q", res.StatementID)
	}
	if len(res.Transactions) != 1 {
		t.Errorf("imported %d transactions, want 1", len(res.Transactions))
	}
}

func TestRefreshKeepsSnapshotOnError(t *testing.T) {
	store := newFakeStore()
	store.txs = []domain.Transaction{{
		ID: "a", Date: "2024-03-05", Detail: "CAFE",
		Amount: decimal.NewFromInt(100), Type: domain.TypePurchase, TargetPeriod: "2024-04",
	}}
	svc := newService(store, &fakeParser{})

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	store.listErr = errors.New("bigquery down")
	store.mu.Unlock()

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("refresh must propagate the read error")
	}

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Transactions) != 1 {
		t.Error("failed refresh must keep the previous snapshot")
	}
}

func TestRefreshCleansTransactions(t *testing.T) {
	store := newFakeStore()
	store.txs = []domain.Transaction{
		{ID: "a", Date: "2024-03-05", Detail: "CAFE", Amount: decimal.NewFromInt(100), Type: domain.TypePurchase, TargetPeriod: "2024-04"},
		{ID: "b", Date: "2024-03-06", Detail: "SU PAGO", Amount: decimal.NewFromInt(-100), Type: domain.TypePayment, TargetPeriod: "2024-04"},
		{ID: "c", Date: "2024-03-05", Detail: "CAFE", Amount: decimal.NewFromInt(100), Type: domain.TypePurchase, TargetPeriod: "2024-04"},
	}
	svc := newService(store, &fakeParser{})

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Transactions) != 1 {
		t.Errorf("snapshot holds %d transactions, want 1 after payment filter and dedup", len(snap.Transactions))
	}
}

func TestProcessPeriodBankFilter(t *testing.T) {
	store := newFakeStore()
	store.txs = []domain.Transaction{
		{ID: "a", Date: "2024-03-05", Detail: "CAFE", Amount: decimal.NewFromInt(100), Type: domain.TypePurchase, TargetPeriod: "2024-04", BankName: "Naranja X"},
		{ID: "b", Date: "2024-03-06", Detail: "NAFTA", Amount: decimal.NewFromInt(200), Type: domain.TypePurchase, TargetPeriod: "2024-04", BankName: "Galicia"},
	}
	svc := newService(store, &fakeParser{})

	got, err := svc.ProcessPeriod(context.Background(), "2024-04", "Galicia")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.GroupedTransactions) != 1 || got.GroupedTransactions[0].Detail != "NAFTA" {
		t.Errorf("bank filter failed: %+v", got.GroupedTransactions)
	}
	if !got.Summary.Total.Equal(decimal.NewFromInt(200)) {
		t.Errorf("total = %s, want 200", got.Summary.Total)
	}
}

func TestProcessPeriodDefaultsToBase(t *testing.T) {
	store := newFakeStore()
	store.txs = []domain.Transaction{
		{ID: "old", Date: "2024-02-05", Detail: "VIEJO", Amount: decimal.NewFromInt(50), Type: domain.TypePurchase, TargetPeriod: "2024-03"},
		{ID: "new", Date: "2024-03-05", Detail: "NUEVO", Amount: decimal.NewFromInt(80), Type: domain.TypePurchase, TargetPeriod: "2024-04"},
	}
	svc := newService(store, &fakeParser{})

	got, err := svc.ProcessPeriod(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.GroupedTransactions) != 1 || got.GroupedTransactions[0].Detail != "NUEVO" {
		t.Errorf("empty period must resolve to the newest one: %+v", got.GroupedTransactions)
	}
}

func TestBalance(t *testing.T) {
	store := newFakeStore()
	store.income = decimal.NewFromInt(1000)
	store.fixed = []domain.FixedExpense{
		{ID: "e1", Name: "Alquiler", Amount: decimal.NewFromInt(300)},
	}
	store.txs = []domain.Transaction{
		{ID: "a", Date: "2024-03-05", Detail: "CAFE", Amount: decimal.NewFromInt(200), Type: domain.TypePurchase, TargetPeriod: "2024-04"},
	}
	svc := newService(store, &fakeParser{})

	got, err := svc.Balance(context.Background(), "2024-04")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Cards.Equal(decimal.NewFromInt(200)) {
		t.Errorf("cards = %s, want 200", got.Cards)
	}
	if !got.Available.Equal(decimal.NewFromInt(500)) {
		t.Errorf("available = %s, want 1000-200-300", got.Available)
	}
	if !got.Healthy {
		t.Error("positive balance must be healthy")
	}
}

func TestListPeriods(t *testing.T) {
	store := newFakeStore()
	store.txs = []domain.Transaction{
		{ID: "a", Date: "2024-03-05", Detail: "TV", Amount: decimal.NewFromInt(500),
			Type: domain.TypeInstallment, IsInstallment: true,
			InstallmentCurrent: 1, InstallmentTotal: 3, TargetPeriod: "2024-04"},
	}
	svc := newService(store, &fakeParser{})

	got, err := svc.ListPeriods(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Available) != 1 || got.Available[0] != "2024-04" {
		t.Errorf("available = %v", got.Available)
	}
	if len(got.Future) != 2 {
		t.Errorf("a 1/3 series must bill in 2 future months, got %v", got.Future)
	}
}

func TestParseBill(t *testing.T) {
	parser := &fakeParser{bill: extraction.BillResult{
		ServiceName: "Luz",
		Date:        "2024-05-10",
		Amount:      4300.50,
		Currency:    "ARS",
	}}
	svc := newService(newFakeStore(), parser)

	got, err := svc.ParseBill(context.Background(), "EDESUR factura mayo $4.300,50", "Luz")
	if err != nil {
		t.Fatal(err)
	}
	if got.Amount != 4300.50 || got.Date != "2024-05-10" {
		t.Errorf("bill = %+v", got)
	}
}
