/*
handlers_test.go - HTTP tests for the contract and receivable endpoints

Tests for:
- Lease and buyout CRUD with schedule generation
- Error mapping (400 / 404 / 409)
- Monthly listing and collection edits
- Schedule preview
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lease-receivables/contracts"
	"github.com/warp/lease-receivables/store/sqlstore"
	"go.uber.org/zap"
)

func setupTestRouter(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	store, err := sqlstore.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(contracts.NewService(store, zap.NewNop(), contracts.Options{}), zap.NewNop())
	h.Ping = store.Ping
	require.NoError(t, h.Service.CreateCustomer(context.Background(), contracts.Customer{Code: "C001", Name: "Acme Printing"}))
	return h, NewRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const quarterlyLease = `{
	"contract_code": "LS-100",
	"customer_code": "C001",
	"customer_name": "Acme Printing",
	"start_date": "2024-01-01",
	"model": "IM C3000",
	"quantity": 1,
	"monthly_rent": 1500,
	"payment_cycle_months": 3,
	"contract_months": 14
}`

func TestCreateLease_GeneratesSchedule(t *testing.T) {
	// GIVEN: a 14-month lease billed quarterly
	_, router := setupTestRouter(t)

	// WHEN: creating it
	rec := do(t, router, http.MethodPost, "/api/leases", quarterlyLease)

	// THEN: five receivables exist, the last covering two months
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[contracts.Result](t, rec)
	assert.Equal(t, 5, result.Receivables)
	assert.True(t, result.Regenerated)

	rec = do(t, router, http.MethodGet, "/api/leases/LS-100/receivables", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[[]LeaseReceivableDTO](t, rec)
	require.Len(t, recs, 5)
	last := recs[4]
	assert.Equal(t, 5, last.Seq)
	assert.Equal(t, "2025-01-01", last.StartDate.String())
	assert.Equal(t, "2025-02-28", last.EndDate.String())
	assert.Equal(t, "3000", last.TotalRent.String())
	assert.Equal(t, "UNPAID", last.PaymentStatus)
	assert.Equal(t, "Acme Printing", last.CustomerName)
}

func TestCreateLease_Errors(t *testing.T) {
	_, router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/leases", quarterlyLease).Code)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"duplicate code", quarterlyLease, http.StatusConflict},
		{"malformed json", `{"contract_code":`, http.StatusBadRequest},
		{"zero cycle", `{"contract_code":"LS-101","customer_name":"X","start_date":"2024-01-01","quantity":1,"monthly_rent":100,"payment_cycle_months":0,"contract_months":12}`, http.StatusBadRequest},
		{"negative rent", `{"contract_code":"LS-102","customer_name":"X","start_date":"2024-01-01","quantity":1,"monthly_rent":-1,"payment_cycle_months":1,"contract_months":12}`, http.StatusBadRequest},
		{"rent below a cent", `{"contract_code":"LS-104","customer_name":"X","start_date":"2024-01-01","quantity":1,"monthly_rent":"1500.005","payment_cycle_months":1,"contract_months":12}`, http.StatusBadRequest},
		{"term above limit", `{"contract_code":"LS-105","customer_name":"X","start_date":"2024-01-01","quantity":1,"monthly_rent":100,"payment_cycle_months":1,"contract_months":1201}`, http.StatusBadRequest},
		{"unknown customer", `{"contract_code":"LS-106","customer_code":"C404","start_date":"2024-01-01","quantity":1,"monthly_rent":100,"payment_cycle_months":1,"contract_months":12}`, http.StatusBadRequest},
		{"bad date", `{"contract_code":"LS-103","customer_name":"X","start_date":"2024-13-01","quantity":1,"monthly_rent":100,"payment_cycle_months":1,"contract_months":12}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/leases", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestUpdateLease_RegeneratesAndChecksCode(t *testing.T) {
	// GIVEN: a stored 14-month quarterly lease
	_, router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/leases", quarterlyLease).Code)

	// WHEN: the term is shortened to 12 months (URL code fills the body)
	body := `{"customer_name":"Acme Printing","start_date":"2024-01-01","quantity":1,"monthly_rent":1500,"payment_cycle_months":3,"contract_months":12}`
	rec := do(t, router, http.MethodPut, "/api/leases/LS-100", body)

	// THEN: the schedule is replaced by four records
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decode[contracts.Result](t, rec).Receivables)

	recs := decode[[]LeaseReceivableDTO](t, do(t, router, http.MethodGet, "/api/leases/LS-100/receivables", nil))
	assert.Len(t, recs, 4)

	// A body naming another contract is rejected
	rec = do(t, router, http.MethodPut, "/api/leases/LS-100", `{"contract_code":"LS-999"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown contract
	rec = do(t, router, http.MethodPut, "/api/leases/LS-404", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAndDeleteLease(t *testing.T) {
	_, router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/leases", quarterlyLease).Code)

	rec := do(t, router, http.MethodGet, "/api/leases/LS-100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lease := decode[LeaseDTO](t, rec)
	assert.Equal(t, "IM C3000", lease.Model)
	assert.Equal(t, 14, lease.ContractMonths)

	list := decode[[]LeaseDTO](t, do(t, router, http.MethodGet, "/api/leases", nil))
	assert.Len(t, list, 1)

	rec = do(t, router, http.MethodDelete, "/api/leases/LS-100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DeleteResponse{ContractCode: "LS-100", ReceivablesRemoved: 5}, decode[DeleteResponse](t, rec))

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/leases/LS-100", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/leases/LS-100", nil).Code)
}

func TestRegenerateLease_Idempotent(t *testing.T) {
	_, router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/leases", quarterlyLease).Code)

	first := decode[[]LeaseReceivableDTO](t, do(t, router, http.MethodGet, "/api/leases/LS-100/receivables", nil))

	rec := do(t, router, http.MethodPost, "/api/leases/LS-100/regenerate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decode[contracts.Result](t, rec).Receivables)

	second := decode[[]LeaseReceivableDTO](t, do(t, router, http.MethodGet, "/api/leases/LS-100/receivables", nil))
	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].StartDate, second[i].StartDate)
		assert.True(t, first[i].TotalRent.Equal(second[i].TotalRent))
	}

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodPost, "/api/leases/LS-404/regenerate", nil).Code)
}

func TestBuyoutEndpoints(t *testing.T) {
	// GIVEN: a buyout deal
	_, router := setupTestRouter(t)
	body := `{"contract_code":"BO-1","customer_name":"Contoso","deal_date":"2024-05-20","deal_amount":"250000.50"}`

	// WHEN: creating it
	rec := do(t, router, http.MethodPost, "/api/buyouts", body)

	// THEN: exactly one receivable carries the deal amount
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[contracts.Result](t, rec).Receivables)

	recs := decode[[]BuyoutReceivableDTO](t, do(t, router, http.MethodGet, "/api/buyouts/BO-1/receivables", nil))
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].Seq)
	assert.Equal(t, "250000.5", recs[0].TotalAmount.String())
	assert.Equal(t, "2024-05-20", recs[0].DealDate.String())

	// Update the amount
	rec = do(t, router, http.MethodPut, "/api/buyouts/BO-1", `{"customer_name":"Contoso","deal_date":"2024-05-20","deal_amount":300000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recs = decode[[]BuyoutReceivableDTO](t, do(t, router, http.MethodGet, "/api/buyouts/BO-1/receivables", nil))
	require.Len(t, recs, 1)
	assert.Equal(t, "300000", recs[0].TotalAmount.String())

	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodPost, "/api/buyouts", body).Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/buyouts/BO-1/regenerate", nil).Code)
	assert.Len(t, decode[[]BuyoutDTO](t, do(t, router, http.MethodGet, "/api/buyouts", nil)), 1)
	assert.Equal(t, "Contoso", decode[BuyoutDTO](t, do(t, router, http.MethodGet, "/api/buyouts/BO-1", nil)).CustomerName)

	rec = do(t, router, http.MethodDelete, "/api/buyouts/BO-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[DeleteResponse](t, rec).ReceivablesRemoved)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/buyouts/BO-1/receivables", nil).Code)
}

func TestUpdateCollection(t *testing.T) {
	_, router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/leases", quarterlyLease).Code)

	t.Run("derives partial", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/api/receivables/lease/LS-100/1", `{"fee":100,"received_amount":2000}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		entry := decode[EntryDTO](t, rec)
		assert.Equal(t, "PARTIAL", entry.PaymentStatus)
		assert.Equal(t, "4500", entry.Amount.String())
		assert.Equal(t, "2600", entry.Outstanding.String())
	})

	t.Run("explicit status", func(t *testing.T) {
		rec := do(t, router, http.MethodPut, "/api/receivables/leasing/LS-100/2", `{"received_amount":0,"payment_status":"paid"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "PAID", decode[EntryDTO](t, rec).PaymentStatus)
	})

	t.Run("billing fields untouched", func(t *testing.T) {
		recs := decode[[]LeaseReceivableDTO](t, do(t, router, http.MethodGet, "/api/leases/LS-100/receivables", nil))
		assert.Equal(t, "4500", recs[0].TotalRent.String())
		assert.Equal(t, "2024-01-01", recs[0].StartDate.String())
		assert.Equal(t, "2000", recs[0].ReceivedAmount.String())
	})

	errorCases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown kind", "/api/receivables/rental/LS-100/1", `{}`, http.StatusBadRequest},
		{"non numeric seq", "/api/receivables/lease/LS-100/x", `{}`, http.StatusBadRequest},
		{"bad status", "/api/receivables/lease/LS-100/1", `{"payment_status":"LATE"}`, http.StatusBadRequest},
		{"negative received", "/api/receivables/lease/LS-100/1", `{"received_amount":-5}`, http.StatusBadRequest},
		{"seq out of range", "/api/receivables/lease/LS-100/9", `{}`, http.StatusNotFound},
		{"unknown contract", "/api/receivables/buyout/BO-404/1", `{}`, http.StatusNotFound},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestGetStatement(t *testing.T) {
	// GIVEN: a quarterly lease and a buyout in the same month, one paid
	_, router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/leases", quarterlyLease).Code)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/buyouts",
		`{"contract_code":"BO-7","customer_name":"Globex","deal_date":"2024-01-15","deal_amount":10000}`).Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPut, "/api/receivables/buyout/BO-7/1", `{"received_amount":10000}`).Code)

	// WHEN: listing January 2024
	rec := do(t, router, http.MethodGet, "/api/receivables?year=2024&month=1", nil)

	// THEN: both rows appear in date order; outstanding skips the paid buyout
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decode[StatementResponse](t, rec)
	require.Len(t, st.Entries, 2)
	assert.Equal(t, "lease", st.Entries[0].Kind)
	assert.Equal(t, "buyout", st.Entries[1].Kind)
	assert.True(t, st.Entries[1].EndDate.IsZero())
	assert.Equal(t, 2, st.Summary.Count)
	assert.Equal(t, "14500", st.Summary.TotalAmount.String())
	assert.Equal(t, "10000", st.Summary.TotalReceived.String())
	assert.Equal(t, "4500", st.Summary.Outstanding.String())

	unpaid := decode[StatementResponse](t, do(t, router, http.MethodGet, "/api/receivables?year=2024&month=1&unpaid=true", nil))
	require.Len(t, unpaid.Entries, 1)
	assert.Equal(t, "LS-100", unpaid.Entries[0].ContractCode)

	search := decode[StatementResponse](t, do(t, router, http.MethodGet, "/api/receivables?year=2024&month=1&q=globex", nil))
	require.Len(t, search.Entries, 1)
	assert.Equal(t, "BO-7", search.Entries[0].ContractCode)

	empty := decode[StatementResponse](t, do(t, router, http.MethodGet, "/api/receivables?year=2024&month=2", nil))
	assert.Empty(t, empty.Entries)
	assert.Equal(t, "0", empty.Summary.TotalAmount.String())

	for _, query := range []string{"year=2024", "year=2024&month=13", "year=x&month=1", "year=2024&month=1&unpaid=perhaps"} {
		assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/receivables?"+query, nil).Code, query)
	}
}

func TestPreviewSchedule_DoesNotPersist(t *testing.T) {
	_, router := setupTestRouter(t)

	body := `{"start_date":"2024-01-31","monthly_rent":1000,"payment_cycle_months":1,"contract_months":3}`
	rec := do(t, router, http.MethodPost, "/api/schedules/preview", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[PreviewResponse](t, rec)
	require.Len(t, preview.Periods, 3)
	assert.Equal(t, "2024-02-28", preview.Periods[0].EndDate.String())
	assert.Equal(t, "2024-02-29", preview.Periods[1].StartDate.String())
	assert.Equal(t, "3000", preview.Total.String())

	assert.Empty(t, decode[[]LeaseDTO](t, do(t, router, http.MethodGet, "/api/leases", nil)))

	rec = do(t, router, http.MethodPost, "/api/schedules/preview", `{"start_date":"2024-01-01","monthly_rent":1000,"payment_cycle_months":0,"contract_months":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewSchedule_HugeTermRejected(t *testing.T) {
	// GIVEN: a monthly preview whose term is the largest int
	_, router := setupTestRouter(t)
	body := `{"start_date":"2024-01-01","monthly_rent":1000,"payment_cycle_months":1,"contract_months":9223372036854775807}`

	// WHEN: previewing it
	rec := do(t, router, http.MethodPost, "/api/schedules/preview", body)

	// THEN: 400 naming the field, nothing allocated for the term
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "contract_months")
}

func TestHealth(t *testing.T) {
	h, router := setupTestRouter(t)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/healthz", nil).Code)

	h.Ping = func(ctx context.Context) error { return errors.New("connection refused") }
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/healthz", nil).Code)
}
