package types

import (
	"slices"

	ierr "github.com/flexprice/taxsync/internal/errors"
)

// TaxFormCategory groups tax forms by the regime they belong to
type TaxFormCategory string

const (
	TaxFormCategoryVAT             TaxFormCategory = "vat"
	TaxFormCategoryIncomeTax       TaxFormCategory = "income_tax"
	TaxFormCategoryLumpSum         TaxFormCategory = "lump_sum"
	TaxFormCategorySocialInsurance TaxFormCategory = "social_insurance"
	TaxFormCategoryOther           TaxFormCategory = "other"
)

func (c TaxFormCategory) String() string {
	return string(c)
}

func (c TaxFormCategory) Validate() error {
	allowedValues := []TaxFormCategory{
		TaxFormCategoryVAT,
		TaxFormCategoryIncomeTax,
		TaxFormCategoryLumpSum,
		TaxFormCategorySocialInsurance,
		TaxFormCategoryOther,
	}
	if !slices.Contains(allowedValues, c) {
		return ierr.NewError("invalid tax form category").
			WithHint("Tax form category must be one of vat, income_tax, lump_sum, social_insurance or other").
			WithReportableDetails(map[string]any{
				"category": c,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceType is the kind of invoice a calculation is made for
type InvoiceType string

const (
	InvoiceTypeSale       InvoiceType = "sale"
	InvoiceTypePurchase   InvoiceType = "purchase"
	InvoiceTypeCorrection InvoiceType = "correction"
	InvoiceTypeAdvance    InvoiceType = "advance"
)

func (t InvoiceType) String() string {
	return string(t)
}

// Validate accepts the empty invoice type, it is optional on requests
func (t InvoiceType) Validate() error {
	if t == "" {
		return nil
	}
	allowedValues := []InvoiceType{
		InvoiceTypeSale,
		InvoiceTypePurchase,
		InvoiceTypeCorrection,
		InvoiceTypeAdvance,
	}
	if !slices.Contains(allowedValues, t) {
		return ierr.NewError("invalid invoice type").
			WithHint("Invoice type must be one of sale, purchase, correction or advance").
			Mark(ierr.ErrValidation)
	}
	return nil
}
