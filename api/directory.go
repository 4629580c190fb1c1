/*
directory.go - Customer and company directory endpoints

PURPOSE:
  CRUD for the customers and partner companies that contracts reference.
  Contracts copy the customer name when they are saved; see
  contracts/directory.go for the lookup rules.

ENDPOINTS:
  GET    /api/customers                 List customers
  POST   /api/customers                 Create customer
  GET    /api/customers/{code}          Get customer
  PUT    /api/customers/{code}          Update customer
  DELETE /api/customers/{code}          Delete (409 while contracts use it)

  GET    /api/companies?role=sales      List companies, optionally by role
  POST   /api/companies                 Create company
  GET    /api/companies/{code}          Get company
  PUT    /api/companies/{code}          Update company
  DELETE /api/companies/{code}          Delete (409 while contracts use it)
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/lease-receivables/contracts"
)

// =============================================================================
// CUSTOMERS
// =============================================================================

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.ListCustomers(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = customerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.CreateCustomer(r.Context(), req.toCustomer()); err != nil {
		h.writeServiceError(w, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCustomer(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, customerDTO(c))
}

// UpdateCustomer replaces a customer. The code in the URL is authoritative.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	code := chi.URLParam(r, "code")
	if req.CustomerCode != "" && req.CustomerCode != code {
		writeError(w, http.StatusBadRequest, "customer_code does not match URL", nil)
		return
	}
	req.CustomerCode = code

	if err := h.Service.UpdateCustomer(r.Context(), req.toCustomer()); err != nil {
		h.writeServiceError(w, "Failed to update customer", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.Service.DeleteCustomer(r.Context(), code); err != nil {
		h.writeServiceError(w, "Failed to delete customer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "customer_code": code})
}

// =============================================================================
// COMPANIES
// =============================================================================

// ListCompanies accepts ?role=sales or ?role=service.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	var role contracts.Party
	if raw := r.URL.Query().Get("role"); raw != "" {
		var err error
		if role, err = contracts.ParseParty(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid query parameters", err)
			return
		}
	}

	companies, err := h.Service.ListCompanies(r.Context(), role)
	if err != nil {
		h.writeServiceError(w, "Failed to list companies", err)
		return
	}

	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = companyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.CreateCompany(r.Context(), req.toCompany()); err != nil {
		h.writeServiceError(w, "Failed to create company", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCompany(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, "Failed to get company", err)
		return
	}
	writeJSON(w, http.StatusOK, companyDTO(c))
}

// UpdateCompany replaces a company. The code in the URL is authoritative.
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	code := chi.URLParam(r, "code")
	if req.CompanyCode != "" && req.CompanyCode != code {
		writeError(w, http.StatusBadRequest, "company_code does not match URL", nil)
		return
	}
	req.CompanyCode = code

	if err := h.Service.UpdateCompany(r.Context(), req.toCompany()); err != nil {
		h.writeServiceError(w, "Failed to update company", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.Service.DeleteCompany(r.Context(), code); err != nil {
		h.writeServiceError(w, "Failed to delete company", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "company_code": code})
}
