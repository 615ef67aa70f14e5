package classifier

import (
	"fmt"
	"strings"

	"github.com/ca-srg/nova/internal/session"
)

func buildRoutePrompt(query string, tools []string, markets []string, defaultYear int) string {
	var b strings.Builder
	b.WriteString("You are an expert routing assistant. Map a user query to a tool and extract parameters.\n\n")
	b.WriteString("RULES:\n")
	fmt.Fprintf(&b, "1. Default `year` to %d if not specified.\n", defaultYear)
	fmt.Fprintf(&b, "2. Known markets: %s. Keep market names as written if unknown.\n", strings.Join(markets, ", "))
	b.WriteString("3. If the query contains \"week\" or \"wk\" followed by a number, use `weekly-review-by-number`.\n")
	b.WriteString("4. If the query contains a specific date range or a single date, use `weekly-review-by-range`.\n")
	b.WriteString("5. For any tool requiring a `market`, if the user does NOT provide one, use `clarify-market` with `original_query`.\n")
	b.WriteString("6. ALWAYS generate `month_abbr` (3-letter) and `month_full` for monthly tools.\n")
	b.WriteString("7. ALWAYS generate `start_date` and `end_date` as YYYY-MM-DD for date range tools; a single day has equal dates.\n")
	b.WriteString("8. If nothing fits, use `error` with a short `reason`.\n\n")
	b.WriteString("TOOLS:\n")
	for _, name := range tools {
		if desc, ok := toolDescriptions[name]; ok {
			fmt.Fprintf(&b, "- `%s`: %s\n", name, desc)
		} else {
			fmt.Fprintf(&b, "- `%s`\n", name)
		}
	}
	fmt.Fprintf(&b, "- `%s`: a market is required but missing. Needs `original_query`.\n", ToolClarifyMarket)
	b.WriteString("\nRESPONSE FORMAT: JSON ONLY: {\"tool_name\": \"...\", \"parameters\": {...}}\n")
	fmt.Fprintf(&b, "USER QUERY: %q\n", query)
	return b.String()
}

var toolDescriptions = map[string]string{
	"monthly-review":          "For a whole month. Needs `market`, `month_abbr`, `month_full`, `year`.",
	"weekly-review-by-range":  "For a specific date range. Needs `market`, `start_date`, `end_date`, `year`.",
	"weekly-review-by-number": "For a specific week number. Needs `market`, `week_number`, `year`.",
	"analyse-influencer":      "For a specific influencer. Needs `influencer_name`; `year` optional.",
	"influencer-trend":        "For general leaderboards. Optional `market`, `year`, `month_abbr`, `month_full`, `tier` (gold, silver, bronze).",
	"plan":                    "For future budget allocation. Needs `market`, `month_abbr`, `month_full`, `year`.",
	"analytics-query":         "For any other data question no tool above covers, such as top N influencers by spend, lowest CAC or comparing markets. No parameters needed.",
}

func buildIntentPrompt(message string, sc *session.Context) string {
	p := sc.Parameters()
	var b strings.Builder
	b.WriteString("You are an intent detection expert for a Slack bot.\n")
	fmt.Fprintf(&b, "The current context is `%s`", sc.Kind())
	if p.Market != "" {
		fmt.Fprintf(&b, " for market %s", p.Market)
	}
	if p.MonthFull != "" {
		fmt.Fprintf(&b, ", %s", p.MonthFull)
	}
	if p.Year > 0 {
		fmt.Fprintf(&b, " %d", p.Year)
	}
	if p.InfluencerName != "" {
		fmt.Fprintf(&b, ", influencer %s", p.InfluencerName)
	}
	fmt.Fprintf(&b, ". The user's message is: %q\n", message)
	b.WriteString("Decide whether this is a `follow-up` or a `new_command`.\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("1. A `follow-up` asks a question answerable with the current context's data.\n")
	b.WriteString("2. It is a `new_command` if the user asks for a different tool or a new market, month, date range or week number.\n")
	b.WriteString("   Example: context is November, user asks \"now show me June\".\n")
	b.WriteString("   Example: user asks \"how about week 36?\" during a monthly review.\n")
	b.WriteString("\nRespond with JSON ONLY: {\"intent\": \"follow-up\"} or {\"intent\": \"new_command\"}\n")
	return b.String()
}
