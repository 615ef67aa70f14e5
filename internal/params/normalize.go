package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const dateLayout = "2006-01-02"

var validTiers = map[string]bool{"gold": true, "silver": true, "bronze": true}

// Normalizer converts raw routing parameters into Params.
type Normalizer struct {
	markets     *Markets
	defaultYear int
	now         func() time.Time
}

// NewNormalizer creates a Normalizer. defaultYear <= 0 means "current year".
func NewNormalizer(markets *Markets, defaultYear int) *Normalizer {
	if markets == nil {
		markets = DefaultMarkets()
	}
	return &Normalizer{markets: markets, defaultYear: defaultYear, now: time.Now}
}

// SetClock overrides the clock used to derive the current year.
func (n *Normalizer) SetClock(now func() time.Time) { n.now = now }

// Markets exposes the markets table used for normalization.
func (n *Normalizer) Markets() *Markets { return n.markets }

// DefaultYear returns the year applied when a request names none.
func (n *Normalizer) DefaultYear() int {
	if n.defaultYear > 0 {
		return n.defaultYear
	}
	return n.now().Year()
}

// Market maps aliases to the canonical market name; anything else is title-cased.
func (n *Normalizer) Market(raw string) string {
	cleaned := strings.Join(strings.Fields(norm.NFKC.String(raw)), " ")
	if cleaned == "" {
		return ""
	}
	if name, ok := n.markets.Lookup(cleaned); ok {
		return name
	}
	return cases.Title(language.English).String(strings.ToLower(cleaned))
}

// Normalize builds Params from the raw parameter object of a routing decision.
// Malformed values produce a *ValidationError naming the field.
func (n *Normalizer) Normalize(raw map[string]any) (Params, error) {
	var p Params

	p.Market = n.Market(stringValue(raw["market"]))
	p.InfluencerName = cleanText(stringValue(raw["influencer_name"]))
	p.OriginalQuery = cleanText(stringValue(raw["original_query"]))
	p.Reason = cleanText(stringValue(raw["reason"]))

	if tier := strings.ToLower(cleanText(stringValue(raw["tier"]))); tier != "" {
		if !validTiers[tier] {
			return p, &ValidationError{Field: FieldTier, Reason: fmt.Sprintf("%q is not one of gold, silver, bronze", tier)}
		}
		p.Tier = tier
	}

	for _, key := range []string{"month_full", "month_abbr", "month"} {
		value := cleanText(stringValue(raw[key]))
		if value == "" {
			continue
		}
		abbr, full, ok := ParseMonth(value)
		if !ok {
			return p, &ValidationError{Field: FieldMonth, Reason: fmt.Sprintf("%q is not a month", value)}
		}
		p.MonthAbbr, p.MonthFull = abbr, full
		break
	}

	year, present, err := intValue(raw["year"])
	if err != nil || (present && (year < 2000 || year > 2100)) {
		return p, &ValidationError{Field: FieldYear, Reason: fmt.Sprintf("%v is not a valid year", raw["year"])}
	}
	if !present || year == 0 {
		year = n.DefaultYear()
	}
	p.Year = year

	week, present, err := intValue(raw["week_number"])
	if err != nil || (present && (week < 1 || week > 53)) {
		return p, &ValidationError{Field: FieldWeekNumber, Reason: fmt.Sprintf("%v is not between 1 and 53", raw["week_number"])}
	}
	p.WeekNumber = week

	start, err := dateValue(raw["start_date"], FieldStartDate)
	if err != nil {
		return p, err
	}
	end, err := dateValue(raw["end_date"], FieldEndDate)
	if err != nil {
		return p, err
	}
	// A single day is a range whose ends coincide.
	switch {
	case start.IsZero() && !end.IsZero():
		start = end
	case end.IsZero() && !start.IsZero():
		end = start
	}
	if !start.IsZero() {
		if end.Before(start) {
			return p, &ValidationError{Field: FieldEndDate, Reason: "end date is before start date"}
		}
		p.StartDate = start.Format(dateLayout)
		p.EndDate = end.Format(dateLayout)
	}

	return p, nil
}

// ParseMonth accepts a full or abbreviated English month name in any case
// and returns its three-letter and full forms.
func ParseMonth(s string) (abbr, full string, ok bool) {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "."))
	if key == "" {
		return "", "", false
	}
	if key == "sept" {
		key = "sep"
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if key == strings.ToLower(name) || key == strings.ToLower(name[:3]) {
			return name[:3], name, true
		}
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 12 {
		name := time.Month(n).String()
		return name[:3], name, true
	}
	return "", "", false
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// intValue accepts JSON numbers and numeric strings. present is false for null or "".
func intValue(v any) (value int, present bool, err error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if t != math.Trunc(t) {
			return 0, true, fmt.Errorf("not an integer: %v", t)
		}
		return int(t), true, nil
	case int:
		return t, true, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, true, err
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("unsupported type %T", v)
	}
}

func dateValue(v any, field string) (time.Time, error) {
	s := cleanText(stringValue(v))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", s)}
	}
	return t, nil
}
