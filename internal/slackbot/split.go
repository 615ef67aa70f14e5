package slackbot

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxMessageLength keeps posted messages well under Slack's limit.
const DefaultMaxMessageLength = 2800

const fence = "```"

// SplitMessage breaks text into chunks of at most max runes on line
// boundaries. A code block cut by a chunk boundary is closed at the end of
// the chunk and reopened, with its language tag, at the start of the next.
func SplitMessage(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxMessageLength
	}
	if max < 16 {
		max = 16
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	s := &splitter{max: max}
	for _, line := range strings.Split(text, "\n") {
		for _, piece := range hardWrap(line, s.width()) {
			s.add(piece)
		}
	}
	if s.curLen > s.base {
		s.emit()
	}
	return s.chunks
}

// splitter accumulates one chunk at a time. curLen counts runes including
// the newline after every line; while inCode, curLen+len(fence) <= max.
type splitter struct {
	max    int
	chunks []string
	cur    strings.Builder
	curLen int
	// base is the length of the reopened fence a chunk starts with.
	base   int
	inCode bool
	opener string
	// openAt is the offset of the opener in cur; pending is set while the
	// opener is the last line written.
	openAt  int
	pending bool
}

// width is the longest piece that fits a fresh chunk with both fences.
func (s *splitter) width() int {
	if s.inCode {
		return s.max - utf8.RuneCountInString(s.opener) - 5
	}
	return s.max - 8
}

func (s *splitter) add(piece string) {
	n := utf8.RuneCountInString(piece) + 1
	isFence := strings.HasPrefix(strings.TrimSpace(piece), fence)

	switch {
	case isFence && s.inCode:
		if s.curLen+n > s.max {
			// emit appends the closing fence itself.
			s.emit()
			s.inCode = false
			s.reset()
			return
		}
		s.write(piece, n)
		s.inCode = false

	case isFence:
		if s.curLen+n+len(fence) > s.max && s.curLen > s.base {
			s.emit()
			s.reset()
		}
		s.opener = openerFor(piece, s.max)
		s.openAt = s.cur.Len()
		s.write(piece, n)
		s.inCode = true
		s.pending = true

	default:
		reserve := 0
		if s.inCode {
			reserve = len(fence)
		}
		if s.curLen+n+reserve > s.max && s.curLen > s.base {
			s.emit()
			s.reset()
		}
		s.write(piece, n)
	}
}

func (s *splitter) write(piece string, n int) {
	s.cur.WriteString(piece)
	s.cur.WriteByte('\n')
	s.curLen += n
	s.pending = false
}

// emit appends the current chunk. An open code block is closed, unless
// nothing follows its opener yet; the opener then moves to the next chunk.
func (s *splitter) emit() {
	text := s.cur.String()
	if s.inCode {
		if s.pending {
			text = text[:s.openAt]
		} else {
			text += fence
		}
	}
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) != "" {
		s.chunks = append(s.chunks, text)
	}
}

func (s *splitter) reset() {
	s.cur.Reset()
	s.curLen, s.base, s.pending = 0, 0, false
	if s.inCode {
		s.cur.WriteString(s.opener)
		s.cur.WriteByte('\n')
		s.curLen = utf8.RuneCountInString(s.opener) + 1
		s.base = s.curLen
	}
}

// openerFor keeps the fence line, language tag included, when it leaves
// room for content in a reopened chunk.
func openerFor(piece string, max int) string {
	line := strings.TrimSpace(piece)
	if utf8.RuneCountInString(line)+13 > max {
		return fence
	}
	return line
}

func hardWrap(line string, width int) []string {
	if width < 1 {
		width = 1
	}
	if utf8.RuneCountInString(line) <= width {
		return []string{line}
	}
	runes := []rune(line)
	var out []string
	for len(runes) > width {
		out = append(out, string(runes[:width]))
		runes = runes[width:]
	}
	return append(out, string(runes))
}
