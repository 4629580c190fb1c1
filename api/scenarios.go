/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	contracts for demos. Every contract goes through contracts.Service, so
	the receivables are generated exactly as they would be in production.

AVAILABLE SCENARIOS:

	mixed-portfolio:     Monthly and quarterly leases plus a buyout
	quarterly-remainder: 14-month quarterly lease ending on a 2-month period
	month-end-start:     Lease starting on Jan 31 (clamped February period)
	collections:         Mixed portfolio with partial and full payments

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Register customers and companies
 3. Create contracts via the service (schedules generated)
 4. Optionally record collections and payable statuses

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "collections"}

USAGE AT STARTUP:

	server -seed collections

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler struct
  - cmd/server/main.go: -seed flag
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/lease-receivables/billing"
	"github.com/warp/lease-receivables/contracts"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, svc *contracts.Service) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "mixed-portfolio",
			Name:        "Mixed Portfolio",
			Description: "Monthly and quarterly printer leases plus one buyout",
		},
		load: loadMixedPortfolio,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "quarterly-remainder",
			Name:        "Quarterly Remainder",
			Description: "14-month lease billed quarterly; the last period covers 2 months",
		},
		load: loadQuarterlyRemainder,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "month-end-start",
			Name:        "Month-End Start",
			Description: "Lease starting Jan 31; the February period end is clamped to the month end",
		},
		load: loadMonthEndStart,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "collections",
			Name:        "Collections",
			Description: "Mixed portfolio with paid and partially paid receivables and one settled sales payable",
		},
		load: loadCollections,
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		h.writeServiceError(w, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase removes every contract and receivable.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Reset(r.Context()); err != nil {
		h.writeServiceError(w, "Failed to reset database", err)
		return
	}
	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// LoadScenarioByID resets the database and loads the named scenario.
// An unknown id is an invalid argument and leaves the data untouched.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	s, ok := findScenario(id)
	if !ok {
		return &billing.InvalidArgumentError{Field: "scenario_id", Value: id, Reason: "unknown scenario"}
	}

	if err := h.Service.Reset(ctx); err != nil {
		return err
	}
	h.setCurrentScenario("")

	if err := s.load(ctx, h.Service); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}

	h.setCurrentScenario(id)
	h.logger.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadDirectory registers every customer and company the scenarios name.
func loadDirectory(ctx context.Context, svc *contracts.Service) error {
	customers := []contracts.Customer{
		{Code: "C001", Name: "Acme Printing", ContactName: "R. Runner", Phone: "02-2345-6789"},
		{Code: "C002", Name: "Northwind Office", SalesRepName: "Ann Lee"},
		{Code: "C003", Name: "Contoso Design"},
		{Code: "C010", Name: "Fabrikam Logistics"},
		{Code: "C020", Name: "Tailspin Studio"},
	}
	for _, c := range customers {
		if err := svc.CreateCustomer(ctx, c); err != nil {
			return err
		}
	}

	companies := []contracts.Company{
		{Code: "S01", Name: "Sunrise Office Sales", SalesRep: "Ann Lee", IsSales: true},
		{Code: "M02", Name: "Metro Copier Service", IsService: true},
	}
	for _, c := range companies {
		if err := svc.CreateCompany(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func loadMixedPortfolio(ctx context.Context, svc *contracts.Service) error {
	if err := loadDirectory(ctx, svc); err != nil {
		return err
	}

	leases := []contracts.Lease{
		{
			Code:               "LS-2025-001",
			CustomerCode:       "C001",
			CustomerName:       "Acme Printing",
			StartDate:          billing.NewDate(2025, 1, 1),
			Model:              "IM C3000",
			Quantity:           2,
			MonthlyRent:        decimal.NewFromInt(150000),
			PaymentCycleMonths: 1,
			ContractMonths:     12,
			SalesCompanyCode:   "S01",
			SalesAmount:        decimal.NewFromInt(1200000),
		},
		{
			Code:               "LS-2025-002",
			CustomerCode:       "C002",
			CustomerName:       "Northwind Office",
			StartDate:          billing.NewDate(2025, 3, 15),
			Model:              "bizhub C250i",
			Quantity:           1,
			MonthlyRent:        decimal.NewFromInt(80000),
			PaymentCycleMonths: 3,
			Overprint:          "B/W 1000 sheets included",
			ContractMonths:     24,
			ServiceCompanyCode: "M02",
			ServiceAmount:      decimal.NewFromInt(20000),
		},
	}
	for _, l := range leases {
		if _, err := svc.CreateLease(ctx, l); err != nil {
			return err
		}
	}

	_, err := svc.CreateBuyout(ctx, contracts.Buyout{
		Code:         "BO-2025-001",
		CustomerCode: "C003",
		CustomerName: "Contoso Design",
		DealDate:     billing.NewDate(2025, 2, 10),
		DealAmount:   decimal.NewFromInt(3200000),
	})
	return err
}

func loadQuarterlyRemainder(ctx context.Context, svc *contracts.Service) error {
	if err := loadDirectory(ctx, svc); err != nil {
		return err
	}
	_, err := svc.CreateLease(ctx, contracts.Lease{
		Code:               "LS-Q-014",
		CustomerCode:       "C010",
		CustomerName:       "Fabrikam Logistics",
		StartDate:          billing.NewDate(2025, 1, 1),
		Model:              "ApeosPort C2570",
		Quantity:           1,
		MonthlyRent:        decimal.NewFromInt(100000),
		PaymentCycleMonths: 3,
		ContractMonths:     14,
	})
	return err
}

func loadMonthEndStart(ctx context.Context, svc *contracts.Service) error {
	if err := loadDirectory(ctx, svc); err != nil {
		return err
	}
	_, err := svc.CreateLease(ctx, contracts.Lease{
		Code:               "LS-EOM-001",
		CustomerCode:       "C020",
		CustomerName:       "Tailspin Studio",
		StartDate:          billing.NewDate(2025, 1, 31),
		Model:              "IM 2702",
		Quantity:           1,
		MonthlyRent:        decimal.NewFromInt(50000),
		PaymentCycleMonths: 1,
		ContractMonths:     6,
	})
	return err
}

func loadCollections(ctx context.Context, svc *contracts.Service) error {
	if err := loadMixedPortfolio(ctx, svc); err != nil {
		return err
	}

	updates := []contracts.CollectionUpdate{
		{Kind: billing.KindLease, Code: "LS-2025-001", Seq: 1, ReceivedAmount: decimal.NewFromInt(150000)},
		{Kind: billing.KindLease, Code: "LS-2025-001", Seq: 2, ReceivedAmount: decimal.NewFromInt(50000)},
		{Kind: billing.KindLease, Code: "LS-2025-002", Seq: 1, Fee: decimal.NewFromInt(3000), ReceivedAmount: decimal.NewFromInt(243000)},
		{Kind: billing.KindBuyout, Code: "BO-2025-001", Seq: 1, Fee: decimal.NewFromInt(5000), ReceivedAmount: decimal.NewFromInt(1000000)},
	}
	for _, u := range updates {
		if _, err := svc.UpdateCollection(ctx, u); err != nil {
			return err
		}
	}

	_, err := svc.UpdatePayable(ctx, contracts.PayableUpdate{
		Kind: billing.KindLease, Code: "LS-2025-001", Party: contracts.PartySales, Status: billing.StatusPaid,
	})
	return err
}
