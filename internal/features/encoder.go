package features

import (
	"fmt"

	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/utils"
)

// Schema is the exact ordered list of columns the frozen classifier was
// trained with. The ordering is a hard contract: any mismatch between encoder
// output order and classifier input order silently produces wrong scores with
// no error, so this list must never be reordered without retraining the
// artifact. The one-hot columns drop their training baselines (female,
// France, RUBIS).
var Schema = []string{
	"credit_score",
	"age",
	"tenure",
	"balance",
	"num_products",
	"has_credit_card",
	"is_active_member",
	"estimated_salary",
	"has_complaint",
	"satisfaction_score",
	"loyalty_points",
	"gender_male",
	"country_germany",
	"country_spain",
	"tier_gold",
	"tier_platinum",
	"tier_silver",
}

// Encoder maps a validated customer record to the feature vector the
// classifier expects. Records must have passed validation first; the encoder
// surfaces unknown categorical values as EncodingError rather than defaulting
// them, since reaching here with one indicates a validator contract breach.
type Encoder struct{}

// NewEncoder creates a new feature encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode produces the ordered feature vector for a validated record.
// Deterministic: identical records always produce identical vectors.
func (e *Encoder) Encode(record models.CustomerRecord) (models.FeatureVector, error) {
	var germany, spain float64
	switch record.Country {
	case models.CountryFrance:
		// baseline
	case models.CountryGermany:
		germany = 1
	case models.CountrySpain:
		spain = 1
	default:
		return nil, utils.NewEncodingError("country", fmt.Sprintf("unknown country %q", record.Country))
	}

	var gold, platinum, silver float64
	switch record.Tier {
	case models.TierRubis:
		// baseline
	case models.TierGold:
		gold = 1
	case models.TierPlatinum:
		platinum = 1
	case models.TierSilver:
		silver = 1
	default:
		return nil, utils.NewEncodingError("tier", fmt.Sprintf("unknown tier %q", record.Tier))
	}

	var male float64
	switch record.Gender {
	case models.GenderFemale:
		// baseline
	case models.GenderMale:
		male = 1
	default:
		return nil, utils.NewEncodingError("gender", fmt.Sprintf("unknown gender %q", record.Gender))
	}

	balance, _ := record.Balance.Float64()
	salary, _ := record.EstimatedSalary.Float64()

	return models.FeatureVector{
		float64(record.CreditScore),
		float64(record.Age),
		float64(record.Tenure),
		balance,
		float64(record.NumProducts),
		boolToFloat(record.HasCreditCard),
		boolToFloat(record.IsActiveMember),
		salary,
		boolToFloat(record.HasComplaint),
		float64(record.SatisfactionScore),
		float64(record.LoyaltyPoints),
		male,
		germany,
		spain,
		gold,
		platinum,
		silver,
	}, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
