package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ca-srg/nova/internal/analytics"
	"github.com/ca-srg/nova/internal/session"
)

const (
	stepDiscovery   = "Discovery"
	leaderboardSize = 25
)

type influencerTrend struct {
	deps *Deps
}

func (*influencerTrend) Name() string       { return InfluencerTrend }
func (*influencerTrend) Kind() session.Kind { return session.KindInfluencerTrend }
func (*influencerTrend) Required() []string { return nil }

func (t *influencerTrend) Run(ctx context.Context, inv *Invocation) (session.Payload, error) {
	p := inv.Params
	filters := map[string]any{}
	if p.Market != "" {
		filters["market"] = p.Market
	}
	if p.Year > 0 {
		filters["year"] = p.Year
	}
	if p.MonthFull != "" {
		filters["month"] = p.MonthFull
	}
	if p.Tier != "" {
		filters["tier"] = p.Tier
	}

	if err := inv.Reply.Send(ctx, "Fetching influencer trend data..."); err != nil {
		return nil, fmt.Errorf("failed to send status: %w", err)
	}

	raw, err := t.deps.query(ctx, stepDiscovery, analytics.Request{
		Source:  analytics.SourceInfluencerAnalytics,
		View:    analytics.ViewDiscoveryTiers,
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}
	tiers, err := decodeAs[analytics.DiscoveryTiers](stepDiscovery, raw)
	if err != nil {
		return nil, err
	}
	all := tiers.All()
	if len(all) == 0 {
		return nil, &EmptyResultError{Message: "No trend data found for the specified filters."}
	}

	if err := inv.Reply.Send(ctx, fmt.Sprintf("Found *%d* influencers. Compiling leaderboards...", len(all))); err != nil {
		return nil, fmt.Errorf("failed to send status: %w", err)
	}

	ranked := rankByConversions(all)
	board := leaderboard(ranked)
	if err := inv.Reply.Send(ctx, board); err != nil {
		return nil, fmt.Errorf("failed to send leaderboard: %w", err)
	}

	scope := p.Market
	if scope == "" {
		scope = "all markets"
	}
	summary, err := t.deps.generate(ctx, trendPrompt(scope, len(all), ranked[0]))
	if err != nil {
		return nil, err
	}
	if err := inv.Reply.Send(ctx, "*AI Executive Summary:*\n"+summary); err != nil {
		return nil, fmt.Errorf("failed to send summary: %w", err)
	}

	data, err := json.Marshal(all)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trend data: %w", err)
	}
	return session.TrendPayload{Leaderboard: board, Data: data, Summary: summary}, nil
}

func rankByConversions(all []analytics.TierInfluencer) []analytics.TierInfluencer {
	ranked := append([]analytics.TierInfluencer(nil), all...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalConversions > ranked[j].TotalConversions
	})
	return ranked
}

// leaderboard renders the top entries as a fixed-width table in a code block.
func leaderboard(ranked []analytics.TierInfluencer) string {
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "TOP %d INFLUENCERS BY CONVERSIONS\n", leaderboardSize)
	b.WriteString("Rank | Name                 | Conversions | CAC (€)    | Spend (€)\n")
	b.WriteString(strings.Repeat("-", 75) + "\n")
	for i, inf := range ranked {
		if i == leaderboardSize {
			break
		}
		name := inf.Name
		if name == "" {
			name = "N/A"
		}
		if r := []rune(name); len(r) > 20 {
			name = string(r[:20])
		}
		fmt.Fprintf(&b, "%2d   | %-20s | %8.0f    | %8.2f   | %10.2f\n",
			i+1, name, inf.TotalConversions.Float(), inf.EffectiveCACEUR.Float(), inf.TotalSpendEUR.Float())
	}
	b.WriteString("```")
	return b.String()
}

func trendPrompt(scope string, total int, top analytics.TierInfluencer) string {
	return fmt.Sprintf(`Analyze this influencer trend data for %s.
Data includes %d total influencers.
The top performer by conversions is %s with %d conversions.
Provide a 2-3 sentence executive summary and one key strategic recommendation based on this data.
`, scope, total, top.Name, int(top.TotalConversions.Float()))
}
