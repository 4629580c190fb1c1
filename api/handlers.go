/*
handlers.go - HTTP API handlers for lease and buyout receivables

PURPOSE:
  Exposes the contract workflow via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to contracts.Service.

ENDPOINTS:
  Leases:
    GET    /api/leases                        List lease contracts
    POST   /api/leases                        Create lease + generate schedule
    GET    /api/leases/{code}                 Get lease contract
    PUT    /api/leases/{code}                 Update lease + regenerate
    DELETE /api/leases/{code}                 Delete lease and its receivables
    GET    /api/leases/{code}/receivables     Stored schedule
    POST   /api/leases/{code}/regenerate      Regenerate from stored contract

  Buyouts:
    Same shape under /api/buyouts.

  Receivables:
    POST   /api/schedules/preview             Lease schedule without saving
    GET    /api/receivables?year=&month=      Monthly listing (+unpaid, q)
    PUT    /api/receivables/{kind}/{code}/{seq} Edit fee/received/status

  Payables:
    GET    /api/payables?from=&to=&status=&company=   Sales/service amounts owed
    PUT    /api/payables/{kind}/{code}/{party}        Set payment status

  Directory (directory.go):
    /api/customers, /api/companies         CRUD; companies take ?role=

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate request shape
  3. Call contracts.Service (which validates the contract itself)
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Contract, receivable, customer or company not found
  - 409: Duplicate code, or directory entry still referenced
  - 500: Persistence and internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/lease-receivables/billing"
	"github.com/warp/lease-receivables/contracts"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *contracts.Service

	// Ping reports database health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error

	logger   *zap.Logger
	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *contracts.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:  svc,
		logger:   logger.Named("api"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// LEASE ENDPOINTS
// =============================================================================

// ListLeases returns all lease contracts ordered by code.
func (h *Handler) ListLeases(w http.ResponseWriter, r *http.Request) {
	leases, err := h.Service.ListLeases(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list leases", err)
		return
	}

	dtos := make([]LeaseDTO, len(leases))
	for i, l := range leases {
		dtos[i] = leaseDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLease stores a lease and generates its receivables.
func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req LeaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Service.CreateLease(r.Context(), req.toLease())
	if err != nil {
		h.writeServiceError(w, "Failed to create lease", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetLease returns one lease contract.
func (h *Handler) GetLease(w http.ResponseWriter, r *http.Request) {
	lease, err := h.Service.GetLease(r.Context(), codeParam(r))
	if err != nil {
		h.writeServiceError(w, "Failed to get lease", err)
		return
	}
	writeJSON(w, http.StatusOK, leaseDTO(lease))
}

// UpdateLease replaces a lease. The code in the URL is authoritative.
func (h *Handler) UpdateLease(w http.ResponseWriter, r *http.Request) {
	var req LeaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	code := codeParam(r)
	if req.ContractCode != "" && billing.ContractCode(req.ContractCode) != code {
		writeError(w, http.StatusBadRequest, "contract_code does not match URL", nil)
		return
	}
	req.ContractCode = string(code)

	result, err := h.Service.UpdateLease(r.Context(), req.toLease())
	if err != nil {
		h.writeServiceError(w, "Failed to update lease", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DeleteLease removes a lease and its receivables.
func (h *Handler) DeleteLease(w http.ResponseWriter, r *http.Request) {
	code := codeParam(r)
	removed, err := h.Service.DeleteLease(r.Context(), code)
	if err != nil {
		h.writeServiceError(w, "Failed to delete lease", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{ContractCode: string(code), ReceivablesRemoved: removed})
}

// GetLeaseReceivables returns the stored schedule in seq order.
func (h *Handler) GetLeaseReceivables(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Service.LeaseReceivables(r.Context(), codeParam(r))
	if err != nil {
		h.writeServiceError(w, "Failed to get receivables", err)
		return
	}
	writeJSON(w, http.StatusOK, leaseReceivableDTOs(recs))
}

// RegenerateLease rebuilds the schedule from the stored contract.
func (h *Handler) RegenerateLease(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.RegenerateLease(r.Context(), codeParam(r))
	if err != nil {
		h.writeServiceError(w, "Failed to regenerate receivables", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// BUYOUT ENDPOINTS
// =============================================================================

// ListBuyouts returns all buyout contracts ordered by code.
func (h *Handler) ListBuyouts(w http.ResponseWriter, r *http.Request) {
	buyouts, err := h.Service.ListBuyouts(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list buyouts", err)
		return
	}

	dtos := make([]BuyoutDTO, len(buyouts))
	for i, b := range buyouts {
		dtos[i] = buyoutDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateBuyout(w http.ResponseWriter, r *http.Request) {
	var req BuyoutDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Service.CreateBuyout(r.Context(), req.toBuyout())
	if err != nil {
		h.writeServiceError(w, "Failed to create buyout", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) GetBuyout(w http.ResponseWriter, r *http.Request) {
	buyout, err := h.Service.GetBuyout(r.Context(), codeParam(r))
	if err != nil {
		h.writeServiceError(w, "Failed to get buyout", err)
		return
	}
	writeJSON(w, http.StatusOK, buyoutDTO(buyout))
}

func (h *Handler) UpdateBuyout(w http.ResponseWriter, r *http.Request) {
	var req BuyoutDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	code := codeParam(r)
	if req.ContractCode != "" && billing.ContractCode(req.ContractCode) != code {
		writeError(w, http.StatusBadRequest, "contract_code does not match URL", nil)
		return
	}
	req.ContractCode = string(code)

	result, err := h.Service.UpdateBuyout(r.Context(), req.toBuyout())
	if err != nil {
		h.writeServiceError(w, "Failed to update buyout", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteBuyout(w http.ResponseWriter, r *http.Request) {
	code := codeParam(r)
	removed, err := h.Service.DeleteBuyout(r.Context(), code)
	if err != nil {
		h.writeServiceError(w, "Failed to delete buyout", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{ContractCode: string(code), ReceivablesRemoved: removed})
}

func (h *Handler) GetBuyoutReceivables(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Service.BuyoutReceivables(r.Context(), codeParam(r))
	if err != nil {
		h.writeServiceError(w, "Failed to get receivables", err)
		return
	}
	writeJSON(w, http.StatusOK, buyoutReceivableDTOs(recs))
}

func (h *Handler) RegenerateBuyout(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.RegenerateBuyout(r.Context(), codeParam(r))
	if err != nil {
		h.writeServiceError(w, "Failed to regenerate receivables", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// RECEIVABLE ENDPOINTS
// =============================================================================

// PreviewSchedule computes a lease schedule without persisting anything.
func (h *Handler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req LeaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	schedule, err := h.Service.PreviewLease(req.toLease())
	if err != nil {
		h.writeServiceError(w, "Failed to preview schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Periods: leaseReceivableDTOs(schedule),
		Total:   schedule.Total(),
	})
}

// GetStatement returns the receivables falling in one calendar month.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	q, err := parseStatementQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	st, err := h.Service.Statement(r.Context(), q.Year, time.Month(q.Month), billing.StatementFilter{
		UnpaidOnly: q.Unpaid,
		Search:     q.Search,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to build statement", err)
		return
	}
	writeJSON(w, http.StatusOK, statementResponse(q.Year, q.Month, st))
}

func parseStatementQuery(r *http.Request) (StatementQuery, error) {
	values := r.URL.Query()
	var q StatementQuery
	var err error

	if q.Year, err = strconv.Atoi(values.Get("year")); err != nil {
		return q, errors.New("year must be an integer")
	}
	if q.Month, err = strconv.Atoi(values.Get("month")); err != nil {
		return q, errors.New("month must be an integer")
	}
	if raw := values.Get("unpaid"); raw != "" {
		if q.Unpaid, err = strconv.ParseBool(raw); err != nil {
			return q, errors.New("unpaid must be a boolean")
		}
	}
	q.Search = strings.TrimSpace(values.Get("q"))
	return q, nil
}

// UpdateCollection edits fee, received amount and status of one receivable.
// Billing fields are never touched.
func (h *Handler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	kind, err := billing.ParseContractKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract kind", err)
		return
	}
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid seq", err)
		return
	}

	var req CollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Service.UpdateCollection(r.Context(), contracts.CollectionUpdate{
		Kind:           kind,
		Code:           codeParam(r),
		Seq:            seq,
		Fee:            req.Fee,
		ReceivedAmount: req.ReceivedAmount,
		PaymentStatus:  billing.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		h.writeServiceError(w, "Failed to update collection", err)
		return
	}
	writeJSON(w, http.StatusOK, entryDTO(entry))
}

// =============================================================================
// PAYABLE ENDPOINTS
// =============================================================================

// ListPayables returns the sales and service amounts owed by contracts.
func (h *Handler) ListPayables(w http.ResponseWriter, r *http.Request) {
	q, err := parsePayableQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	list, err := h.Service.Payables(r.Context(), contracts.PayableFilter{
		From:        q.From,
		To:          q.To,
		Paid:        q.Status == "paid",
		Unpaid:      q.Status == "unpaid",
		CompanyCode: q.Company,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to list payables", err)
		return
	}

	dtos := make([]PayableDTO, len(list))
	for i, p := range list {
		dtos[i] = payableDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func parsePayableQuery(r *http.Request) (PayableQuery, error) {
	values := r.URL.Query()
	q := PayableQuery{
		Status:  strings.ToLower(strings.TrimSpace(values.Get("status"))),
		Company: strings.TrimSpace(values.Get("company")),
	}
	var err error
	if raw := values.Get("from"); raw != "" {
		if q.From, err = billing.ParseDate(raw); err != nil {
			return q, errors.New("from must be YYYY-MM-DD")
		}
	}
	if raw := values.Get("to"); raw != "" {
		if q.To, err = billing.ParseDate(raw); err != nil {
			return q, errors.New("to must be YYYY-MM-DD")
		}
	}
	return q, nil
}

// UpdatePayable sets the payment status of one sales or service payable.
func (h *Handler) UpdatePayable(w http.ResponseWriter, r *http.Request) {
	kind, err := billing.ParseContractKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract kind", err)
		return
	}
	party, err := contracts.ParseParty(chi.URLParam(r, "party"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid party", err)
		return
	}

	var req PayableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Service.UpdatePayable(r.Context(), contracts.PayableUpdate{
		Kind:   kind,
		Code:   codeParam(r),
		Party:  party,
		Status: billing.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		h.writeServiceError(w, "Failed to update payable", err)
		return
	}
	writeJSON(w, http.StatusOK, payableDTO(p))
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func codeParam(r *http.Request) billing.ContractCode {
	return billing.ContractCode(chi.URLParam(r, "code"))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps service errors onto status codes. Only 5xx are
// logged; the rest are the caller's mistake.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case billing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case billing.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
