package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"

	"github.com/dvloznov/cardcycle/internal/config"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/extraction"
	"github.com/dvloznov/cardcycle/internal/gcsstore"
	infraBQ "github.com/dvloznov/cardcycle/internal/infra/bigquery"
	"github.com/dvloznov/cardcycle/internal/logger"
	"github.com/dvloznov/cardcycle/internal/pipeline"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		runImport(log)
	case "dashboard":
		runDashboard(log)
	case "periods":
		runPeriods(log)
	case "balance":
		runBalance(log)
	case "banks":
		runBanks(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("cardcycle CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import     Import a statement file (PDF or screenshot)")
	fmt.Println("  dashboard  Show the processed view of a period")
	fmt.Println("  periods    List available and projected periods")
	fmt.Println("  balance    Show income vs spend for a period")
	fmt.Println("  banks      List configured banks")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func newService(ctx context.Context, log zerolog.Logger) (*pipeline.Service, *infraBQ.Store) {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.ProjectID == "" {
		log.Fatal().Msg("No GCP project configured (set GOOGLE_CLOUD_PROJECT or the config file)")
	}

	store, err := infraBQ.NewStore(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}

	files, err := gcsstore.New(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS store")
	}

	parser, err := extraction.NewGeminiParserFromEnv(ctx, cfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini parser")
	}

	return pipeline.New(store, files, parser, cfg), store
}

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the statement file")
	bank := fs.String("bank", "", "Bank id or name")
	fs.Parse(os.Args[2:])

	if *filePath == "" || *bank == "" {
		log.Fatal().Msg("Usage: cli import -file PATH -bank NAME")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement file")
	}

	contentType := mime.TypeByExtension(filepath.Ext(*filePath))
	if contentType == "" {
		contentType = "application/pdf"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, store := newService(ctx, log)
	defer store.Close()

	res, err := svc.ImportStatement(ctx, data, filepath.Base(*filePath), contentType, *bank)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	fmt.Printf("Imported %d transactions from %s\n", len(res.Transactions), *filePath)
	renderTransactions(res.Transactions)
}

func runDashboard(log zerolog.Logger) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	period := fs.String("period", "", "Statement period YYYY-MM (default: newest)")
	bank := fs.String("bank", "", "Filter to one bank")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, store := newService(ctx, log)
	defer store.Close()

	result, err := svc.ProcessPeriod(ctx, *period, *bank)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to process period")
	}

	renderTransactions(result.GroupedTransactions)

	fmt.Printf("\nTotal: %s   Installments: %s   Taxes: %s\n",
		result.Summary.Total.StringFixed(2),
		result.Summary.TotalInstallments.StringFixed(2),
		result.Summary.TotalTaxes.StringFixed(2))
}

func renderTransactions(txs []domain.Transaction) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "Detail", "Amount", "Type", "Installment", "Bank"})
	for _, tx := range txs {
		installment := ""
		if tx.IsInstallment {
			installment = fmt.Sprintf("%d/%d", tx.InstallmentCurrent, tx.InstallmentTotal)
		}
		detail := tx.Detail
		if len(tx.Children) > 0 {
			detail = fmt.Sprintf("%s (%d items)", detail, len(tx.Children))
		}
		t.AppendRow(table.Row{tx.Date, detail, tx.Amount.StringFixed(2), tx.Type, installment, tx.BankName})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func runPeriods(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, store := newService(ctx, log)
	defer store.Close()

	periods, err := svc.ListPeriods(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list periods")
	}

	fmt.Printf("Available: %s\n", strings.Join(periods.Available, ", "))
	fmt.Printf("Projected: %s\n", strings.Join(periods.Future, ", "))
}

func runBalance(log zerolog.Logger) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	period := fs.String("period", "", "Statement period YYYY-MM (default: newest)")
	forecast := fs.Bool("forecast", false, "Show the 12 month forecast")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	svc, store := newService(ctx, log)
	defer store.Close()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Period", "Income", "Cards", "Fixed", "Available", "OK"})

	appendBalance := func(b pipeline.MonthlyBalance) {
		ok := "yes"
		if !b.Healthy {
			ok = "NO"
		}
		t.AppendRow(table.Row{
			b.Period,
			b.Income.StringFixed(2),
			b.Cards.StringFixed(2),
			b.Fixed.StringFixed(2),
			b.Available.StringFixed(2),
			ok,
		})
	}

	if *forecast {
		balances, err := svc.BalanceForecast(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to compute forecast")
		}
		for _, b := range balances {
			appendBalance(b)
		}
	} else {
		b, err := svc.Balance(ctx, *period)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to compute balance")
		}
		appendBalance(b)
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}

func runBanks(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	_, store := newService(ctx, log)
	defer store.Close()

	banks, err := store.ListBanks(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list banks")
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Currency", "Columns"})
	for _, b := range banks {
		t.AppendRow(table.Row{b.ID, b.Name, b.CurrencySymbol, strings.Join(b.Columns, ", ")})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}
