package taxrule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Condition is a tagged variant, Kind selects which of the remaining fields apply:
//
//	equals: Field == Value
//	range:  Min <= Field <= Max, either bound may be omitted
//	in:     Field is one of Values
type Condition struct {
	Kind   types.ConditionKind  `json:"kind"`
	Field  types.ConditionField `json:"field"`
	Value  string               `json:"value,omitempty"`
	Min    *decimal.Decimal     `json:"min,omitempty"`
	Max    *decimal.Decimal     `json:"max,omitempty"`
	Values []string             `json:"values,omitempty"`
}

// Facts are the calculation attributes conditions are evaluated against
type Facts struct {
	InvoiceType types.InvoiceType
	TotalNet    decimal.Decimal
	TotalGross  decimal.Decimal
	ItemCount   int
	// VatRates holds every distinct effective item rate, vat_rate conditions match any of them
	VatRates []decimal.Decimal
}

// numeric returns the candidate values of a numeric field
func (f Facts) numeric(field types.ConditionField) []decimal.Decimal {
	switch field {
	case types.ConditionFieldTotalNet:
		return []decimal.Decimal{f.TotalNet}
	case types.ConditionFieldTotalGross:
		return []decimal.Decimal{f.TotalGross}
	case types.ConditionFieldItemCount:
		return []decimal.Decimal{decimal.NewFromInt(int64(f.ItemCount))}
	case types.ConditionFieldVatRate:
		return f.VatRates
	default:
		return nil
	}
}

// Matches evaluates the condition. Unknown kinds and malformed values never match.
func (c Condition) Matches(f Facts) bool {
	switch c.Kind {
	case types.ConditionKindEquals:
		if c.Field == types.ConditionFieldInvoiceType {
			return string(f.InvoiceType) == c.Value
		}
		want, err := decimal.NewFromString(c.Value)
		if err != nil {
			return false
		}
		return lo.SomeBy(f.numeric(c.Field), func(v decimal.Decimal) bool { return v.Equal(want) })

	case types.ConditionKindRange:
		if !c.Field.IsNumeric() {
			return false
		}
		return lo.SomeBy(f.numeric(c.Field), func(v decimal.Decimal) bool {
			if c.Min != nil && v.LessThan(*c.Min) {
				return false
			}
			if c.Max != nil && v.GreaterThan(*c.Max) {
				return false
			}
			return true
		})

	case types.ConditionKindIn:
		if c.Field == types.ConditionFieldInvoiceType {
			return lo.Contains(c.Values, string(f.InvoiceType))
		}
		candidates := f.numeric(c.Field)
		return lo.SomeBy(c.Values, func(raw string) bool {
			want, err := decimal.NewFromString(raw)
			if err != nil {
				return false
			}
			return lo.SomeBy(candidates, func(v decimal.Decimal) bool { return v.Equal(want) })
		})

	default:
		return false
	}
}

// Validate checks that the fields required by Kind are present and well formed
func (c Condition) Validate() error {
	if err := c.Kind.Validate(); err != nil {
		return err
	}
	if err := c.Field.Validate(); err != nil {
		return err
	}

	invalid := func(hint string) error {
		return ierr.NewError("invalid condition").
			WithHint(hint).
			WithReportableDetails(map[string]any{
				"kind":  c.Kind,
				"field": c.Field,
			}).
			Mark(ierr.ErrValidation)
	}

	switch c.Kind {
	case types.ConditionKindEquals:
		if c.Value == "" {
			return invalid("An equals condition requires a value")
		}
		if c.Field.IsNumeric() {
			if _, err := decimal.NewFromString(c.Value); err != nil {
				return invalid(fmt.Sprintf("Value of %s must be numeric", c.Field))
			}
		}
	case types.ConditionKindRange:
		if !c.Field.IsNumeric() {
			return invalid(fmt.Sprintf("A range condition cannot be applied to %s", c.Field))
		}
		if c.Min == nil && c.Max == nil {
			return invalid("A range condition requires min, max or both")
		}
		if c.Min != nil && c.Max != nil && c.Min.GreaterThan(*c.Max) {
			return invalid("Range min must not exceed max")
		}
	case types.ConditionKindIn:
		if len(c.Values) == 0 {
			return invalid("An in condition requires at least one value")
		}
		if c.Field.IsNumeric() {
			for _, raw := range c.Values {
				if _, err := decimal.NewFromString(raw); err != nil {
					return invalid(fmt.Sprintf("Values of %s must be numeric", c.Field))
				}
			}
		}
	}
	return nil
}

// Conditions is stored as a JSON array
type Conditions []Condition

// MatchAll reports whether every condition matches, an empty list always matches
func (cs Conditions) MatchAll(f Facts) bool {
	for _, c := range cs {
		if !c.Matches(f) {
			return false
		}
	}
	return true
}

func (cs Conditions) Validate() error {
	for i, c := range cs {
		if err := c.Validate(); err != nil {
			return ierr.WithError(err).
				WithReportableDetails(map[string]any{"condition_index": i}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// Value implements driver.Valuer
func (cs Conditions) Value() (driver.Value, error) {
	if cs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(cs)
}

// Scan implements sql.Scanner
func (cs *Conditions) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*cs = Conditions{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported conditions column type %T", src)
	}
	return json.Unmarshal(data, cs)
}
