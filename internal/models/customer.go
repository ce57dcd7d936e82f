package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gender enumerates the recognized gender values.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Country enumerates the markets the classifier was trained on.
type Country string

const (
	CountryFrance  Country = "France"
	CountryGermany Country = "Germany"
	CountrySpain   Country = "Spain"
)

// Tier enumerates the customer loyalty tiers.
type Tier string

const (
	TierRubis    Tier = "RUBIS"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// Genders returns all valid gender values.
func Genders() []Gender {
	return []Gender{GenderMale, GenderFemale}
}

// Countries returns all valid country values.
func Countries() []Country {
	return []Country{CountryFrance, CountryGermany, CountrySpain}
}

// Tiers returns all valid tier values.
func Tiers() []Tier {
	return []Tier{TierRubis, TierSilver, TierGold, TierPlatinum}
}

// CustomerRecord is an immutable snapshot of one customer's attributes,
// created at ingestion and never mutated afterwards.
type CustomerRecord struct {
	ID                string          `json:"id" db:"id"`
	CreditScore       int             `json:"credit_score" db:"credit_score"`
	Age               int             `json:"age" db:"age"`
	Tenure            int             `json:"tenure" db:"tenure"`
	Balance           decimal.Decimal `json:"balance" db:"balance"`
	NumProducts       int             `json:"num_products" db:"num_products"`
	EstimatedSalary   decimal.Decimal `json:"estimated_salary" db:"estimated_salary"`
	SatisfactionScore int             `json:"satisfaction_score" db:"satisfaction_score"`
	LoyaltyPoints     int             `json:"loyalty_points" db:"loyalty_points"`
	HasCreditCard     bool            `json:"has_credit_card" db:"has_credit_card"`
	IsActiveMember    bool            `json:"is_active_member" db:"is_active_member"`
	HasComplaint      bool            `json:"has_complaint" db:"has_complaint"`
	Gender            Gender          `json:"gender" db:"gender"`
	Country           Country         `json:"country" db:"country"`
	Tier              Tier            `json:"tier" db:"tier"`
	IngestedAt        time.Time       `json:"ingested_at" db:"ingested_at"`
}

// NewCustomerRecord stamps a record with an identity and ingestion time.
// An empty ID is replaced; an existing one is preserved so re-submissions
// keep their identity.
func NewCustomerRecord(record CustomerRecord) CustomerRecord {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.IngestedAt.IsZero() {
		record.IngestedAt = time.Now().UTC()
	}
	return record
}

// FieldIssue is a single field-level validation violation.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the full outcome of validating one CustomerRecord:
// every violation found, not just the first.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Errors   []FieldIssue `json:"errors,omitempty"`
	Warnings []FieldIssue `json:"warnings,omitempty"`
}

// ErrorFields returns the set of fields that failed validation.
func (r ValidationResult) ErrorFields() []string {
	fields := make([]string, 0, len(r.Errors))
	for _, issue := range r.Errors {
		fields = append(fields, issue.Field)
	}
	return fields
}

// FeatureVector is the fixed-length ordered numeric input the frozen
// classifier expects. Owned solely by the call that produced it.
type FeatureVector []float64
