package slackbot

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// ErrorReporter receives errors the bot could not surface to the user.
type ErrorReporter interface {
	Report(err error, context map[string]string)
}

type noopReporter struct{}

func (n *noopReporter) Report(err error, context map[string]string) {}

// LogReporter writes reported errors to a logger as key=value pairs.
type LogReporter struct {
	Logger *log.Logger
}

func (r *LogReporter) Report(err error, context map[string]string) {
	if r == nil || r.Logger == nil || err == nil {
		return
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, context[k])
	}
	r.Logger.Printf("event=slack_error%s err=%v", b.String(), err)
}
