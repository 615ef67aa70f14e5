package slackbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMrkdwn(t *testing.T) {
	testcases := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "## Key Metrics", "*Key Metrics*"},
		{"bold", "Spend was **£1,200**", "Spend was *£1,200*"},
		{"bullet", "- first\n* second", "• first\n• second"},
		{"nested bullet", "  - child", "  • child"},
		{"link", "see [dashboard](https://example.com/d)", "see <https://example.com/d|dashboard>"},
		{"slack bold untouched", "*Budget Utilized:* done", "*Budget Utilized:* done"},
		{"code block untouched", "```\n## raw **x**\n- y\n```", "```\n## raw **x**\n- y\n```"},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToMrkdwn(tc.in))
		})
	}
}
