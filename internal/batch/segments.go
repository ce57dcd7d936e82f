package batch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retenio/churnguard-go/internal/models"
)

// segmentPartial is one worker's running aggregate for a segment. Merging is
// commutative and associative, so per-worker partials can be combined in any
// order without changing the result.
type segmentPartial struct {
	count          int
	churnCount     int
	probabilitySum float64
	balanceSum     decimal.Decimal
}

func (p segmentPartial) merge(other segmentPartial) segmentPartial {
	return segmentPartial{
		count:          p.count + other.count,
		churnCount:     p.churnCount + other.churnCount,
		probabilitySum: p.probabilitySum + other.probabilitySum,
		balanceSum:     p.balanceSum.Add(other.balanceSum),
	}
}

// SegmentSummary is the finalized aggregate for one customer segment.
type SegmentSummary struct {
	Segment         string          `json:"segment"`
	Count           int             `json:"count"`
	ChurnCount      int             `json:"churn_count"`
	ChurnRate       float64         `json:"churn_rate"`
	MeanProbability float64         `json:"mean_probability"`
	TotalBalance    decimal.Decimal `json:"total_balance"`
}

// segmentKey builds the grouping key for a record from the configured
// segment attributes, e.g. "country=France|tier=GOLD".
func segmentKey(record *models.CustomerRecord, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		var value string
		switch key {
		case "country":
			value = string(record.Country)
		case "tier":
			value = string(record.Tier)
		case "gender":
			value = string(record.Gender)
		default:
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(parts, "|")
}

// mergeSegments folds one partial map into another in place.
func mergeSegments(into, from map[string]segmentPartial) {
	for key, partial := range from {
		into[key] = into[key].merge(partial)
	}
}

// finalizeSegments turns the merged partials into sorted summaries.
func finalizeSegments(partials map[string]segmentPartial) []SegmentSummary {
	summaries := make([]SegmentSummary, 0, len(partials))
	for key, partial := range partials {
		summary := SegmentSummary{
			Segment:      key,
			Count:        partial.count,
			ChurnCount:   partial.churnCount,
			TotalBalance: partial.balanceSum,
		}
		if partial.count > 0 {
			summary.ChurnRate = float64(partial.churnCount) / float64(partial.count)
			summary.MeanProbability = partial.probabilitySum / float64(partial.count)
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Segment < summaries[j].Segment
	})
	return summaries
}
