package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/lease-receivables/billing"
	"go.uber.org/zap"
)

// =============================================================================
// DIRECTORY RECORDS
// =============================================================================

// Customer is a lessee or buyer. Contracts copy Name when they are saved;
// renaming a customer later does not touch existing contracts.
type Customer struct {
	Code         string `db:"customer_code" validate:"required,max=50"`
	Name         string `db:"name" validate:"required,max=200"`
	ContactName  string `db:"contact_name" validate:"max=100"`
	Mobile       string `db:"mobile" validate:"max=50"`
	Phone        string `db:"phone" validate:"max=50"`
	Address      string `db:"address" validate:"max=300"`
	Email        string `db:"email" validate:"omitempty,email"`
	TaxID        string `db:"tax_id" validate:"max=20"`
	SalesRepName string `db:"sales_rep_name" validate:"max=100"`
	Remark       string `db:"remark"`
}

// Company is a partner that earns the sales or service amount of a
// contract. IsSales and IsService gate which side it may be named on.
type Company struct {
	Code        string `db:"company_code" validate:"required,max=50"`
	Name        string `db:"name" validate:"required,max=200"`
	ContactName string `db:"contact_name" validate:"max=100"`
	Mobile      string `db:"mobile" validate:"max=50"`
	Phone       string `db:"phone" validate:"max=50"`
	Address     string `db:"address" validate:"max=300"`
	Email       string `db:"email" validate:"omitempty,email"`
	TaxID       string `db:"tax_id" validate:"max=20"`
	SalesRep    string `db:"sales_rep" validate:"max=100"`
	IsSales     bool   `db:"is_sales"`
	IsService   bool   `db:"is_service"`
}

// Serves reports whether the company may be named on the given side.
func (c Company) Serves(p Party) bool {
	switch p {
	case PartySales:
		return c.IsSales
	case PartyService:
		return c.IsService
	}
	return false
}

// resolveParties checks the directory codes named by a contract and copies
// the customer's name into customerName. Empty codes are not looked up.
func resolveParties(ctx context.Context, tx Tx, customerCode string, customerName *string, salesCode, serviceCode string) error {
	if customerCode != "" {
		c, err := tx.GetCustomer(ctx, customerCode)
		if errors.Is(err, billing.ErrCustomerNotFound) {
			return &billing.InvalidArgumentError{Field: "customer_code", Value: customerCode, Reason: "unknown customer"}
		}
		if err != nil {
			return err
		}
		*customerName = c.Name
	}

	if err := checkCompany(ctx, tx, PartySales, salesCode); err != nil {
		return err
	}
	return checkCompany(ctx, tx, PartyService, serviceCode)
}

func checkCompany(ctx context.Context, tx Tx, p Party, code string) error {
	if code == "" {
		return nil
	}
	field := string(p) + "_company_code"
	c, err := tx.GetCompany(ctx, code)
	if errors.Is(err, billing.ErrCompanyNotFound) {
		return &billing.InvalidArgumentError{Field: field, Value: code, Reason: "unknown company"}
	}
	if err != nil {
		return err
	}
	if !c.Serves(p) {
		return &billing.InvalidArgumentError{Field: field, Value: code, Reason: "is not a " + string(p) + " company"}
	}
	return nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *Service) CreateCustomer(ctx context.Context, c Customer) error {
	if err := s.checkStruct(c); err != nil {
		return err
	}
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		return tx.InsertCustomer(ctx, c)
	})
	if err != nil {
		return err
	}
	s.logger.Info("customer created", zap.String("customer_code", c.Code))
	return nil
}

// UpdateCustomer overwrites the directory entry. Contracts keep the name
// they were saved with until they are next updated.
func (s *Service) UpdateCustomer(ctx context.Context, c Customer) error {
	if err := s.checkStruct(c); err != nil {
		return err
	}
	return s.store.WithContractTx(ctx, func(tx Tx) error {
		return tx.UpdateCustomer(ctx, c)
	})
}

func (s *Service) GetCustomer(ctx context.Context, code string) (Customer, error) {
	return s.store.GetCustomer(ctx, code)
}

func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.store.ListCustomers(ctx)
}

// DeleteCustomer refuses with billing.ErrInUse while any lease or buyout
// names the customer.
func (s *Service) DeleteCustomer(ctx context.Context, code string) error {
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		n, err := tx.CountCustomerContracts(ctx, code)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("customer %s has %d contracts: %w", code, n, billing.ErrInUse)
		}
		return tx.DeleteCustomer(ctx, code)
	})
	if err != nil {
		return err
	}
	s.logger.Info("customer deleted", zap.String("customer_code", code))
	return nil
}

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Service) CreateCompany(ctx context.Context, c Company) error {
	if err := s.checkStruct(c); err != nil {
		return err
	}
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		return tx.InsertCompany(ctx, c)
	})
	if err != nil {
		return err
	}
	s.logger.Info("company created",
		zap.String("company_code", c.Code),
		zap.Bool("is_sales", c.IsSales),
		zap.Bool("is_service", c.IsService))
	return nil
}

func (s *Service) UpdateCompany(ctx context.Context, c Company) error {
	if err := s.checkStruct(c); err != nil {
		return err
	}
	return s.store.WithContractTx(ctx, func(tx Tx) error {
		return tx.UpdateCompany(ctx, c)
	})
}

func (s *Service) GetCompany(ctx context.Context, code string) (Company, error) {
	return s.store.GetCompany(ctx, code)
}

// ListCompanies returns every company, or only those serving role when it
// is not empty.
func (s *Service) ListCompanies(ctx context.Context, role Party) ([]Company, error) {
	all, err := s.store.ListCompanies(ctx)
	if err != nil || role == "" {
		return all, err
	}
	out := make([]Company, 0, len(all))
	for _, c := range all {
		if c.Serves(role) {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteCompany refuses with billing.ErrInUse while any contract names the
// company on either side.
func (s *Service) DeleteCompany(ctx context.Context, code string) error {
	err := s.store.WithContractTx(ctx, func(tx Tx) error {
		n, err := tx.CountCompanyContracts(ctx, code)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("company %s has %d contracts: %w", code, n, billing.ErrInUse)
		}
		return tx.DeleteCompany(ctx, code)
	})
	if err != nil {
		return err
	}
	s.logger.Info("company deleted", zap.String("company_code", code))
	return nil
}
