package service

import (
	"context"
	"fmt"

	"github.com/flexprice/taxsync/internal/api/dto"
	"github.com/flexprice/taxsync/internal/domain/taxrule"
	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/flexprice/taxsync/internal/types"
	"github.com/flexprice/taxsync/internal/validator"
	"github.com/flexprice/taxsync/internal/vat"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculationService prices line items for a company. It is stateless, it
// neither writes nor emits audit events.
type CalculationService interface {
	Calculate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.CalculationResponse, error)
	Validate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.ValidationResult, error)
}

type calculationService struct {
	ServiceParams
	gate     ValidationGate
	selector RuleSelector
}

func NewCalculationService(params ServiceParams) CalculationService {
	return &calculationService{
		ServiceParams: params,
		gate:          NewValidationGate(params),
		selector:      NewRuleSelector(params),
	}
}

// ruleEffects maps a calculation method to the amount it contributes.
// A nil amount means the rule is informational.
var ruleEffects = map[types.CalculationMethod]func(rule *taxrule.TaxRule, net decimal.Decimal) (*decimal.Decimal, string){
	types.CalculationMethodPercentage: func(rule *taxrule.TaxRule, net decimal.Decimal) (*decimal.Decimal, string) {
		amount := net.Mul(rule.Value).Div(hundred).Round(2)
		return &amount, fmt.Sprintf("%s: %s%% of net %s", rule.Name, rule.Value.String(), net.StringFixed(2))
	},
	types.CalculationMethodFixed: func(rule *taxrule.TaxRule, _ decimal.Decimal) (*decimal.Decimal, string) {
		amount := rule.Value.Round(2)
		return &amount, fmt.Sprintf("%s: fixed %s", rule.Name, amount.StringFixed(2))
	},
	types.CalculationMethodInformational: func(rule *taxrule.TaxRule, _ decimal.Decimal) (*decimal.Decimal, string) {
		if rule.Description != "" {
			return nil, rule.Description
		}
		return nil, rule.Name
	},
}

func (s *calculationService) Validate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.ValidationResult, error) {
	return s.gate.Validate(ctx, tenantID, req)
}

func (s *calculationService) Calculate(ctx context.Context, tenantID string, req dto.CalculationRequest) (*dto.CalculationResponse, error) {
	// the company resolves before the items are checked, an unknown company is NOT_FOUND
	if req.CompanyID == "" {
		return nil, ierr.NewValidationError([]ierr.FieldError{{Field: "company_id", Message: "is required"}})
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.Config.Sync.StoreTimeout)
	_, err := s.CompanyRepo.FindCompany(lookupCtx, tenantID, req.CompanyID)
	cancel()
	if err != nil {
		return nil, err
	}

	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	if fieldErrs := s.gate.CheckInput(req); len(fieldErrs) > 0 {
		return nil, ierr.NewValidationError(fieldErrs)
	}

	var breakdown []vat.BreakdownEntry
	err = s.step(ctx, ierr.StepVatBreakdown, func() error {
		var err error
		breakdown, err = vat.Compute(req.Items)
		return err
	})
	if err != nil {
		return nil, err
	}
	net, vatTotal, gross := vat.Totals(breakdown)

	var applied []dto.AppliedRule
	err = s.step(ctx, ierr.StepRuleSelection, func() error {
		rules, err := s.selector.SelectApplicable(ctx, tenantID, req.CompanyID, s.Clock.Now())
		if err != nil {
			return err
		}
		applied, err = applyRules(rules, req.Facts(net, gross), net)
		return err
	})
	if err != nil {
		return nil, err
	}

	confidence := types.ConfidenceLow
	if len(applied) > 0 {
		confidence = types.ConfidenceHigh
	}

	return &dto.CalculationResponse{
		TotalNet:     net,
		TotalVat:     vatTotal,
		TotalGross:   gross,
		VatBreakdown: breakdown,
		AppliedRules: applied,
		Confidence:   confidence,
		Success:      true,
	}, nil
}

// applyRules evaluates rules in order and keeps those whose conditions match
func applyRules(rules []*taxrule.TaxRule, facts taxrule.Facts, net decimal.Decimal) ([]dto.AppliedRule, error) {
	applied := make([]dto.AppliedRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Conditions.MatchAll(facts) {
			continue
		}
		effect, ok := ruleEffects[rule.CalculationMethod]
		if !ok {
			return nil, ierr.NewErrorf("unsupported calculation method %s", rule.CalculationMethod).
				WithReportableDetails(map[string]any{"rule_id": rule.ID}).
				Mark(ierr.ErrSystem)
		}
		amount, description := effect(rule, net)
		applied = append(applied, dto.AppliedRule{
			RuleID:      rule.ID,
			RuleName:    rule.Name,
			RuleType:    rule.RuleType,
			TaxFormID:   rule.TaxFormID,
			Amount:      amount,
			Description: description,
		})
	}
	return applied, nil
}

// step runs fn and turns failures and panics into a CALCULATION_ERROR tagged with step.
// Validation errors pass through untouched.
func (s *calculationService) step(ctx context.Context, step string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ierr.NewErrorf("panic in %s: %v", step, r).Mark(ierr.ErrSystem)
		}
		if err == nil || ierr.IsValidation(err) {
			return
		}
		err = ierr.NewCalculationError(step, err)
		s.Logger.WithContext(ctx).Errorw("calculation failed",
			"calculation_step", step,
			"error", err,
		)
		s.Sentry.CaptureException(ctx, err, map[string]string{"calculation_step": step})
	}()
	return fn()
}
