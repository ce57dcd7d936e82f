package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/retenio/churnguard-go/internal/models"
)

// Range documents the allowed domain of one numeric field, plus the default
// used when pre-filling the CSV template.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// NumericRanges maps each numeric field to its documented domain. The ranges
// match the data the frozen classifier was trained on.
var NumericRanges = map[string]Range{
	"credit_score":       {Min: 300, Max: 900, Default: 600},
	"age":                {Min: 18, Max: 100, Default: 30},
	"tenure":             {Min: 0, Max: 20, Default: 3},
	"balance":            {Min: 0, Max: 300000, Default: 1000},
	"num_products":       {Min: 1, Max: 4, Default: 2},
	"estimated_salary":   {Min: 0, Max: 300000, Default: 50000},
	"satisfaction_score": {Min: 0, Max: 5, Default: 3},
	"loyalty_points":     {Min: 0, Max: 100000, Default: 500},
}

// Validator enforces type, range, and business-rule constraints on a raw
// customer record before it reaches the model. Pure: it never mutates its
// input and has no side effects; logging rejected records is the caller's
// responsibility.
type Validator struct{}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a customer record and returns every violation found, not
// just the first, so a caller can report a complete error list in one pass.
// Any single violation marks the whole record invalid.
func (v *Validator) Validate(record models.CustomerRecord) models.ValidationResult {
	var errors []models.FieldIssue
	var warnings []models.FieldIssue

	errors = append(errors, v.checkNumericRanges(record)...)
	errors = append(errors, v.checkEnums(record)...)

	// Business rules run on whatever passed; they never mask range errors.
	errors = append(errors, v.checkBusinessRules(record)...)

	if record.EstimatedSalary.IsZero() {
		warnings = append(warnings, models.FieldIssue{
			Field:   "estimated_salary",
			Message: "estimated salary is zero; the score may be unreliable for unreported income",
		})
	}

	return models.ValidationResult{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}

func (v *Validator) checkNumericRanges(record models.CustomerRecord) []models.FieldIssue {
	fields := []struct {
		name  string
		value float64
	}{
		{"credit_score", float64(record.CreditScore)},
		{"age", float64(record.Age)},
		{"tenure", float64(record.Tenure)},
		{"balance", decimalToFloat(record.Balance)},
		{"num_products", float64(record.NumProducts)},
		{"estimated_salary", decimalToFloat(record.EstimatedSalary)},
		{"satisfaction_score", float64(record.SatisfactionScore)},
		{"loyalty_points", float64(record.LoyaltyPoints)},
	}

	var issues []models.FieldIssue
	for _, f := range fields {
		r, ok := NumericRanges[f.name]
		if !ok {
			continue
		}
		if f.value < r.Min || f.value > r.Max {
			issues = append(issues, models.FieldIssue{
				Field:   f.name,
				Message: fmt.Sprintf("must be between %g and %g, got %g", r.Min, r.Max, f.value),
			})
		}
	}
	return issues
}

func (v *Validator) checkEnums(record models.CustomerRecord) []models.FieldIssue {
	var issues []models.FieldIssue

	if !containsGender(models.Genders(), record.Gender) {
		issues = append(issues, models.FieldIssue{
			Field:   "gender",
			Message: fmt.Sprintf("must be one of %v, got %q", models.Genders(), record.Gender),
		})
	}
	if !containsCountry(models.Countries(), record.Country) {
		issues = append(issues, models.FieldIssue{
			Field:   "country",
			Message: fmt.Sprintf("must be one of %v, got %q", models.Countries(), record.Country),
		})
	}
	if !containsTier(models.Tiers(), record.Tier) {
		issues = append(issues, models.FieldIssue{
			Field:   "tier",
			Message: fmt.Sprintf("must be one of %v, got %q", models.Tiers(), record.Tier),
		})
	}
	return issues
}

// checkBusinessRules applies cross-field consistency rules carried over from
// the account-opening policies the training data reflects.
func (v *Validator) checkBusinessRules(record models.CustomerRecord) []models.FieldIssue {
	var issues []models.FieldIssue

	if record.Age < 25 && record.EstimatedSalary.GreaterThan(decimal.NewFromInt(150000)) {
		issues = append(issues, models.FieldIssue{
			Field:   "estimated_salary",
			Message: "inconsistent: salary above 150000 for a customer under 25",
		})
	}
	if record.CreditScore > 0 && record.CreditScore < 400 && record.Balance.GreaterThan(decimal.NewFromInt(200000)) {
		issues = append(issues, models.FieldIssue{
			Field:   "balance",
			Message: "inconsistent: balance above 200000 with a credit score below 400",
		})
	}
	if record.NumProducts >= 4 && !record.IsActiveMember {
		issues = append(issues, models.FieldIssue{
			Field:   "num_products",
			Message: "inconsistent: customer holds 4 products but is not an active member",
		})
	}
	return issues
}

func decimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func containsGender(values []models.Gender, v models.Gender) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsCountry(values []models.Country, v models.Country) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsTier(values []models.Tier, v models.Tier) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
