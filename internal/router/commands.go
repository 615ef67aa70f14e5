package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Command is one slash command invocation. SessionID is the timestamp of the
// "Running command" message the replies are threaded under.
type Command struct {
	Name string
	Message
}

type commandSpec struct {
	prefix string
	// keepDashes leaves dates like 2025-06-01 intact.
	keepDashes bool
	tools      []string
	usage      string
}

var commands = map[string]commandSpec{
	"/monthly-review": {
		prefix: "monthly review for ",
		tools:  []string{"monthly-review"},
		usage:  "Invalid format. Use `/monthly-review UK-December-2025`",
	},
	"/weekly-review": {
		prefix:     "weekly review for ",
		keepDashes: true,
		tools:      []string{"weekly-review-by-range", "weekly-review-by-number"},
		usage:      "Invalid format. Use `/weekly-review UK from 2025-06-01 to 2025-06-07` or `/weekly-review UK week 36`",
	},
	"/analyse-influencer": {
		prefix: "analyse influencer ",
		tools:  []string{"analyse-influencer"},
		usage:  "Invalid format. Use `/analyse-influencer Name-2025`",
	},
	"/influencer-trend": {
		prefix: "influencer trends for ",
		tools:  []string{"influencer-trend"},
		usage:  "Invalid format. Use `/influencer-trend UK-2025`",
	},
	"/plan": {
		prefix: "plan for ",
		tools:  []string{"plan"},
		usage:  "Invalid format. Use `/plan Market-Month-Year`",
	},
}

// CommandNames lists the supported slash commands.
func CommandNames() []string {
	names := []string{"/bot-status"}
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HandleCommand runs a slash command. The routed tool must be one the
// command allows, otherwise the usage line is sent.
func (r *Router) HandleCommand(ctx context.Context, c Command) error {
	ctx, span := routerTracer.Start(ctx, "router.command")
	defer span.End()
	span.SetAttributes(attribute.String("command.name", c.Name))

	if c.Name == "/bot-status" {
		return r.say(ctx, c.Reply, r.botStatus(ctx))
	}
	cmd, ok := commands[c.Name]
	if !ok {
		return r.say(ctx, c.Reply, fmt.Sprintf("Unknown command `%s`.", c.Name))
	}

	text := strings.TrimSpace(c.Text)
	if !cmd.keepDashes {
		text = strings.ReplaceAll(text, "-", " ")
	}
	query := cmd.prefix + text
	d := r.classifier.Route(ctx, query)
	r.logger.Printf("event=command name=%s session=%s tool=%s", c.Name, c.SessionID, d.Tool)

	if !allowed(cmd.tools, d.Tool) || (marketTools[d.Tool] && d.Params.Market == "") {
		return r.say(ctx, c.Reply, cmd.usage)
	}
	if msg, rejected := r.rejection(d, "I can help with that!"); rejected {
		return r.say(ctx, c.Reply, msg)
	}
	return r.dispatch(ctx, c.Message, d.Tool, d.Params, query)
}

func allowed(names []string, tool string) bool {
	for _, name := range names {
		if name == tool {
			return true
		}
	}
	return false
}

func (r *Router) botStatus(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("Bot Status: All systems operational!")
	fmt.Fprintf(&b, "\nActive conversations: %d", r.store.Len())
	if r.usage == nil {
		return b.String()
	}

	today, err := r.usage.Today(ctx)
	if err != nil {
		r.logger.Printf("event=bot_status status=usage_error err=%v", err)
		return b.String()
	}
	totals, err := r.usage.Totals(ctx)
	if err != nil {
		r.logger.Printf("event=bot_status status=usage_error err=%v", err)
		return b.String()
	}
	fmt.Fprintf(&b, "\n*Today:* %s", formatCounts(today))
	fmt.Fprintf(&b, "\n*All time:* %s", formatCounts(totals))
	return b.String()
}

func formatCounts(counts map[string]int64) string {
	if len(counts) == 0 {
		return "no tool runs yet"
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %d", name, counts[name])
	}
	return strings.Join(parts, ", ")
}
