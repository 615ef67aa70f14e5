// Package params holds the normalized parameters extracted from a user
// request and the rules that turn raw LLM output into them.
package params

import "fmt"

// Field names used by tools to declare required parameters and by
// validation errors to name the offending input.
const (
	FieldMarket         = "market"
	FieldMonth          = "month"
	FieldYear           = "year"
	FieldStartDate      = "start_date"
	FieldEndDate        = "end_date"
	FieldWeekNumber     = "week_number"
	FieldInfluencerName = "influencer_name"
	FieldTier           = "tier"
)

// Params is the normalized parameter set for one tool invocation.
// Month is carried in both abbreviated and full form.
type Params struct {
	Market         string `json:"market,omitempty"`
	MonthAbbr      string `json:"month_abbr,omitempty"`
	MonthFull      string `json:"month_full,omitempty"`
	Year           int    `json:"year,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	WeekNumber     int    `json:"week_number,omitempty"`
	InfluencerName string `json:"influencer_name,omitempty"`
	Tier           string `json:"tier,omitempty"`

	// Set only for clarify and error decisions.
	OriginalQuery string `json:"original_query,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Has reports whether the named field carries a value.
func (p Params) Has(field string) bool {
	switch field {
	case FieldMarket:
		return p.Market != ""
	case FieldMonth:
		return p.MonthAbbr != "" && p.MonthFull != ""
	case FieldYear:
		return p.Year > 0
	case FieldStartDate:
		return p.StartDate != ""
	case FieldEndDate:
		return p.EndDate != ""
	case FieldWeekNumber:
		return p.WeekNumber > 0
	case FieldInfluencerName:
		return p.InfluencerName != ""
	case FieldTier:
		return p.Tier != ""
	default:
		return false
	}
}

// Missing returns the required fields that are absent, in the order given.
func (p Params) Missing(required []string) []string {
	var missing []string
	for _, field := range required {
		if !p.Has(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// ValidationError reports a parameter that is present but malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
