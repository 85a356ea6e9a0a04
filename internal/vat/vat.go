// Package vat computes VAT breakdowns from line items. It is pure and safe for
// concurrent use.
package vat

import (
	"fmt"
	"sort"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/shopspring/decimal"
)

var (
	// DefaultRate applies to items that omit a VAT rate
	DefaultRate = decimal.NewFromInt(23)

	maxRate    = decimal.NewFromInt(100)
	hundred    = decimal.NewFromInt(100)
	groszPlace = int32(2)
)

// LineItem is one priced position of an invoice
type LineItem struct {
	Name      string           `json:"name"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	VatRate   *decimal.Decimal `json:"vat_rate,omitempty"`
}

// EffectiveRate is the item rate or DefaultRate when omitted
func (i LineItem) EffectiveRate() decimal.Decimal {
	if i.VatRate == nil {
		return DefaultRate
	}
	return *i.VatRate
}

// Net is quantity times unit price, unrounded
func (i LineItem) Net() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// BreakdownEntry aggregates the items sharing one VAT rate
type BreakdownEntry struct {
	VatRate     decimal.Decimal `json:"vat_rate"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	VatAmount   decimal.Decimal `json:"vat_amount"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	ItemCount   int             `json:"item_count"`
}

// Compute groups items by effective rate and returns one entry per rate,
// ordered by rate descending. Rates that are numerically equal share a group.
// VAT is rounded half up to grosz, gross is net plus VAT exactly.
func Compute(items []LineItem) ([]BreakdownEntry, error) {
	if fieldErrs := Validate(items); len(fieldErrs) > 0 {
		return nil, ierr.NewValidationError(fieldErrs)
	}

	groups := make(map[string]*BreakdownEntry)
	for _, item := range items {
		rate := item.EffectiveRate()
		key := rate.String()
		entry, ok := groups[key]
		if !ok {
			entry = &BreakdownEntry{
				VatRate:   decimal.RequireFromString(key),
				NetAmount: decimal.Zero,
			}
			groups[key] = entry
		}
		entry.NetAmount = entry.NetAmount.Add(item.Net())
		entry.ItemCount++
	}

	entries := make([]BreakdownEntry, 0, len(groups))
	for _, entry := range groups {
		entry.VatAmount = entry.NetAmount.Mul(entry.VatRate).Div(hundred).Round(groszPlace)
		entry.GrossAmount = entry.NetAmount.Add(entry.VatAmount)
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].VatRate.GreaterThan(entries[j].VatRate)
	})
	return entries, nil
}

// Validate reports negative quantities or prices and rates outside [0,100]
func Validate(items []LineItem) []ierr.FieldError {
	var fieldErrs []ierr.FieldError
	for i, item := range items {
		if item.Quantity.IsNegative() {
			fieldErrs = append(fieldErrs, ierr.FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "must not be negative",
			})
		}
		if item.UnitPrice.IsNegative() {
			fieldErrs = append(fieldErrs, ierr.FieldError{
				Field:   fmt.Sprintf("items[%d].unit_price", i),
				Message: "must not be negative",
			})
		}
		if item.VatRate != nil && (item.VatRate.IsNegative() || item.VatRate.GreaterThan(maxRate)) {
			fieldErrs = append(fieldErrs, ierr.FieldError{
				Field:   fmt.Sprintf("items[%d].vat_rate", i),
				Message: "must be between 0 and 100",
			})
		}
	}
	return fieldErrs
}

// Totals sums a breakdown
func Totals(entries []BreakdownEntry) (net, vat, gross decimal.Decimal) {
	net, vat, gross = decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range entries {
		net = net.Add(e.NetAmount)
		vat = vat.Add(e.VatAmount)
		gross = gross.Add(e.GrossAmount)
	}
	return net, vat, gross
}

// Rates returns the distinct effective rates of items in first seen order
func Rates(items []LineItem) []decimal.Decimal {
	seen := make(map[string]struct{}, len(items))
	rates := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		rate := item.EffectiveRate()
		if _, ok := seen[rate.String()]; ok {
			continue
		}
		seen[rate.String()] = struct{}{}
		rates = append(rates, rate)
	}
	return rates
}
