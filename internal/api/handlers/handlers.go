// Package handlers implements the HTTP API surface: statement uploads,
// dashboard queries, and the bank / fixed expense / income configuration.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cardcycle/internal/api/middleware"
	"github.com/dvloznov/cardcycle/internal/domain"
	"github.com/dvloznov/cardcycle/internal/jobs"
	"github.com/dvloznov/cardcycle/internal/pipeline"
)

// maxUploadBytes caps statement uploads; card statements are small.
const maxUploadBytes = 32 << 20

// SettingsStore is the persistence surface for user-managed configuration.
type SettingsStore interface {
	ListBanks(ctx context.Context) ([]domain.BankProfile, error)
	ReplaceBanks(ctx context.Context, banks []domain.BankProfile) error
	ListFixedExpenses(ctx context.Context) ([]domain.FixedExpense, error)
	SaveFixedExpenses(ctx context.Context, expenses []domain.FixedExpense) error
	GetIncome(ctx context.Context) (decimal.Decimal, error)
	SetIncome(ctx context.Context, income decimal.Decimal) error
}

// StatementsHandler handles statement upload and import job endpoints.
type StatementsHandler struct {
	svc       *pipeline.Service
	publisher jobs.Publisher
	jobStore  jobs.JobStore
	log       zerolog.Logger
}

// NewStatementsHandler creates a statements handler.
func NewStatementsHandler(svc *pipeline.Service, publisher jobs.Publisher, jobStore jobs.JobStore, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{svc: svc, publisher: publisher, jobStore: jobStore, log: log}
}

// Upload handles POST /api/statements. The statement file arrives as
// multipart form data; the import itself runs asynchronously and the reply
// carries the job id to poll.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	bankID := r.FormValue("bank_id")
	if bankID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "bank_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	statementID, gcsURI, err := h.svc.StageStatement(ctx, data, header.Filename, contentType, bankID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to stage statement")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store statement")
		return
	}

	job := &jobs.ImportStatementJob{
		StatementID: statementID,
		GCSURI:      gcsURI,
		BankID:      bankID,
		ContentType: contentType,
	}
	if err := h.publisher.PublishImportStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("statement_id", statementID).
		Str("bank_id", bankID).
		Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       job.JobID,
		"statement_id": statementID,
		"status":       string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}.
func (h *StatementsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *StatementsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		StatementID: query.Get("statement_id"),
		Status:      jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	jobsList, err := h.jobStore.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// DashboardHandler serves the processed period views.
type DashboardHandler struct {
	svc *pipeline.Service
	log zerolog.Logger
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(svc *pipeline.Service, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, log: log}
}

// Dashboard handles GET /api/dashboard?period=YYYY-MM&bank=NAME.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	result, err := h.svc.ProcessPeriod(r.Context(), query.Get("period"), query.Get("bank"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to process period")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process period")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Periods handles GET /api/periods.
func (h *DashboardHandler) Periods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.svc.ListPeriods(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list periods")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list periods")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, periods)
}

// Balance handles GET /api/balance?period=YYYY-MM.
func (h *DashboardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Balance(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute balance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, balance)
}

// BalanceForecast handles GET /api/balance/forecast.
func (h *DashboardHandler) BalanceForecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.svc.BalanceForecast(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute forecast")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute forecast")
		return
	}
	if forecast == nil {
		forecast = []pipeline.MonthlyBalance{}
	}
	middleware.WriteJSON(w, http.StatusOK, forecast)
}

// Refresh handles POST /api/refresh.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Refresh(r.Context()); err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Refresh failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// SettingsHandler handles banks, fixed expenses and income.
type SettingsHandler struct {
	store SettingsStore
	svc   *pipeline.Service
	log   zerolog.Logger
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(store SettingsStore, svc *pipeline.Service, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, svc: svc, log: log}
}

// ListBanks handles GET /api/banks.
func (h *SettingsHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.store.ListBanks(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list banks")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list banks")
		return
	}
	if banks == nil {
		banks = []domain.BankProfile{}
	}
	middleware.WriteJSON(w, http.StatusOK, banks)
}

// PutBanks handles PUT /api/banks, replacing the whole set.
func (h *SettingsHandler) PutBanks(w http.ResponseWriter, r *http.Request) {
	var banks []domain.BankProfile
	if err := json.NewDecoder(r.Body).Decode(&banks); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.ReplaceBanks(r.Context(), banks); err != nil {
		h.log.Error().Err(err).Msg("Failed to save banks")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save banks")
		return
	}
	h.refresh(r.Context())
	middleware.WriteJSON(w, http.StatusOK, banks)
}

// AnalyzeBank handles POST /api/banks/analyze: a sample statement comes in,
// a draft bank profile comes out for the user to confirm.
func (h *SettingsHandler) AnalyzeBank(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	profile, err := h.svc.AnalyzeBankFormat(r.Context(), data)
	if err != nil {
		h.log.Error().Err(err).Msg("Bank format analysis failed")
		middleware.WriteError(w, http.StatusBadGateway, "Bank format analysis failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, profile)
}

// ParseBill handles POST /api/bills/parse: pasted bill text comes in, the
// billed amount and due date come out, ready to prefill a fixed expense.
func (h *SettingsHandler) ParseBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content     string `json:"content"`
		ServiceName string `json:"service_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		middleware.WriteError(w, http.StatusBadRequest, "content is required")
		return
	}

	bill, err := h.svc.ParseBill(r.Context(), req.Content, req.ServiceName)
	if err != nil {
		h.log.Error().Err(err).Str("service", req.ServiceName).Msg("Bill parse failed")
		middleware.WriteError(w, http.StatusBadGateway, "Bill parse failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, bill)
}

// ListFixedExpenses handles GET /api/fixed-expenses.
func (h *SettingsHandler) ListFixedExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.store.ListFixedExpenses(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list fixed expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list fixed expenses")
		return
	}
	if expenses == nil {
		expenses = []domain.FixedExpense{}
	}
	middleware.WriteJSON(w, http.StatusOK, expenses)
}

// PutFixedExpenses handles PUT /api/fixed-expenses, replacing the whole set.
func (h *SettingsHandler) PutFixedExpenses(w http.ResponseWriter, r *http.Request) {
	var expenses []domain.FixedExpense
	if err := json.NewDecoder(r.Body).Decode(&expenses); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.SaveFixedExpenses(r.Context(), expenses); err != nil {
		h.log.Error().Err(err).Msg("Failed to save fixed expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save fixed expenses")
		return
	}
	h.refresh(r.Context())
	middleware.WriteJSON(w, http.StatusOK, expenses)
}

// GetIncome handles GET /api/income.
func (h *SettingsHandler) GetIncome(w http.ResponseWriter, r *http.Request) {
	income, err := h.store.GetIncome(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read income")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read income")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]decimal.Decimal{"income": income})
}

// PutIncome handles PUT /api/income.
func (h *SettingsHandler) PutIncome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Income decimal.Decimal `json:"income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.store.SetIncome(r.Context(), req.Income); err != nil {
		h.log.Error().Err(err).Msg("Failed to save income")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save income")
		return
	}
	h.refresh(r.Context())
	middleware.WriteJSON(w, http.StatusOK, req)
}

func (h *SettingsHandler) refresh(ctx context.Context) {
	if err := h.svc.Refresh(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Snapshot refresh after settings change failed")
	}
}
