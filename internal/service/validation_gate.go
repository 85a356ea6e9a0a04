package service

import (
	"context"
	"fmt"

	"github.com/flexprice/taxsync/internal/api/dto"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/shopspring/decimal"
)

var maxVatRate = decimal.NewFromInt(100)

// ValidationGate checks calculation input before any computation
type ValidationGate interface {
	// Validate reports every violation of req in one pass, company existence included
	// when company_id is set. The error is reserved for store failures.
	Validate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.ValidationResult, error)
	// CheckInput validates req without store access
	CheckInput(req dto.CalculationRequest) []ierr.FieldError
}

type validationGate struct {
	ServiceParams
}

func NewValidationGate(params ServiceParams) ValidationGate {
	return &validationGate{ServiceParams: params}
}

func (g *validationGate) Validate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.ValidationResult, error) {
	var fieldErrs []ierr.FieldError

	if req.CompanyID != "" {
		ctx, cancel := context.WithTimeout(ctx, g.Config.Sync.StoreTimeout)
		defer cancel()

		_, err := g.CompanyRepo.FindCompany(ctx, tenantID, req.CompanyID)
		switch {
		case ierr.IsNotFound(err):
			fieldErrs = append(fieldErrs, ierr.FieldError{Field: "company_id", Message: "company not found"})
		case err != nil:
			return nil, err
		}
	}

	fieldErrs = append(fieldErrs, g.CheckInput(req)...)
	return &dto.ValidationResult{
		Valid:  len(fieldErrs) == 0,
		Errors: fieldErrs,
	}, nil
}

func (g *validationGate) CheckInput(req dto.CalculationRequest) []ierr.FieldError {
	var fieldErrs []ierr.FieldError

	if len(req.Items) == 0 {
		fieldErrs = append(fieldErrs, ierr.FieldError{Field: "items", Message: "at least one item is required"})
	}
	if err := req.InvoiceType.Validate(); err != nil {
		fieldErrs = append(fieldErrs, ierr.FieldError{Field: "invoice_type", Message: "must be one of sale, purchase, correction or advance"})
	}

	for i, item := range req.Items {
		if !item.Quantity.IsPositive() {
			fieldErrs = append(fieldErrs, ierr.FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "must be greater than 0",
			})
		}
		if item.UnitPrice.IsNegative() {
			fieldErrs = append(fieldErrs, ierr.FieldError{
				Field:   fmt.Sprintf("items[%d].unit_price", i),
				Message: "must not be negative",
			})
		}
		if item.VatRate != nil && (item.VatRate.IsNegative() || item.VatRate.GreaterThan(maxVatRate)) {
			fieldErrs = append(fieldErrs, ierr.FieldError{
				Field:   fmt.Sprintf("items[%d].vat_rate", i),
				Message: "must be between 0 and 100",
			})
		}
	}
	return fieldErrs
}
