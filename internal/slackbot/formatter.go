package slackbot

import (
	"regexp"
	"strings"
)

var (
	boldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingPattern = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	linkPattern    = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)
	bulletPattern  = regexp.MustCompile(`^(\s*)[*-]\s+`)
)

// ToMrkdwn rewrites the Markdown that LLM answers tend to use into Slack
// mrkdwn. Code blocks are left untouched.
func ToMrkdwn(text string) string {
	lines := strings.Split(text, "\n")
	inCode := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			line = "*" + strings.Trim(m[1], "*") + "*"
		}
		line = bulletPattern.ReplaceAllString(line, "$1• ")
		line = boldPattern.ReplaceAllString(line, "*$1*")
		line = linkPattern.ReplaceAllString(line, "<$2|$1>")
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
