package slackbot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessage_Short(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SplitMessage("hello", 100))
	assert.Nil(t, SplitMessage("  \n ", 100))
}

func TestSplitMessage_RespectsLimit(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "line of text number with some padding")
	}
	text := strings.Join(lines, "\n")

	chunks := SplitMessage(text, 500)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 500)
	}
	assert.Equal(t, strings.Count(text, "line of text"), strings.Count(strings.Join(chunks, "\n"), "line of text"))
}

func TestSplitMessage_ReopensCodeBlock(t *testing.T) {
	var b strings.Builder
	b.WriteString("Leaderboard:\n```\n")
	for i := 0; i < 60; i++ {
		b.WriteString(" 1   | Some Influencer      |       12    |   10.00   |     120.00\n")
	}
	b.WriteString("```\nDone.")

	chunks := SplitMessage(b.String(), 1000)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.Equal(t, 0, strings.Count(c, fence)%2, "unbalanced fence in chunk: %q", c)
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 1000)
	}
	assert.True(t, strings.HasPrefix(chunks[1], fence+"\n"))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "Done."))
}

func TestSplitMessage_WrapsLongLines(t *testing.T) {
	chunks := SplitMessage(strings.Repeat("x", 130), 40)
	require.NotEmpty(t, chunks)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 40)
		total += strings.Count(c, "x")
	}
	assert.Equal(t, 130, total)
}

func TestSplitMessage_DefaultLimit(t *testing.T) {
	text := strings.Repeat("a\n", DefaultMaxMessageLength)
	for _, c := range SplitMessage(text, 0) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultMaxMessageLength)
	}
}

func TestSplitMessage_OpeningFenceAtChunkEnd(t *testing.T) {
	text := strings.Repeat("a", 20) + "\n" + strings.Repeat("c", 14) + "\n```\n" + strings.Repeat("b", 20) + "\n```\nend"

	chunks := SplitMessage(text, 40)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 40)
		assert.NotContains(t, c, fence+"\n"+fence, "empty code block in chunk: %q", c)
	}
	assert.Equal(t, strings.Repeat("a", 20)+"\n"+strings.Repeat("c", 14), chunks[0])
	assert.Equal(t, "```\n"+strings.Repeat("b", 20)+"\n```\nend", chunks[1])
}

func TestSplitMessage_OpenerWithoutRoomMovesToNextChunk(t *testing.T) {
	text := strings.Repeat("a", 30) + "\n```\n" + strings.Repeat("b", 25) + "\n```"

	chunks := SplitMessage(text, 40)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 30), chunks[0])
	assert.Equal(t, "```\n"+strings.Repeat("b", 25)+"\n```", chunks[1])
}

func TestSplitMessage_ReopenKeepsLanguageTag(t *testing.T) {
	var b strings.Builder
	b.WriteString("intro\n```go\n")
	for i := 0; i < 40; i++ {
		b.WriteString("fmt.Println(\"hello\")\n")
	}
	b.WriteString("```\ndone")

	chunks := SplitMessage(b.String(), 120)
	require.Greater(t, len(chunks), 2)
	for _, c := range chunks[1 : len(chunks)-1] {
		assert.True(t, strings.HasPrefix(c, "```go\n"), "chunk not reopened with tag: %q", c)
	}
}

func TestSplitMessage_FenceBoundariesAcrossLimits(t *testing.T) {
	lines := []string{"```", strings.Repeat("k", 33), "```python", strings.Repeat("m", 7), "```", strings.Repeat("v", 61), "  ```", "w", "```"}
	text := strings.Join(lines, "\n")
	for max := 16; max <= 80; max++ {
		chunks := SplitMessage(text, max)
		letters := 0
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), max, "max=%d chunk=%q", max, c)
			assert.Equal(t, 0, strings.Count(c, fence)%2, "max=%d unbalanced chunk=%q", max, c)
			letters += strings.Count(c, "k") + strings.Count(c, "m") + strings.Count(c, "v")
		}
		assert.Equal(t, 101, letters, "max=%d", max)
	}
}
