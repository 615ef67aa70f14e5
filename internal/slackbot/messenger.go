package slackbot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"github.com/ca-srg/nova/internal/tools"
)

// PostAPI is the subset of *slack.Client used to reply.
type PostAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// threadMessenger posts into one thread. The first Status call posts a
// status line and later calls edit it in place.
type threadMessenger struct {
	api      PostAPI
	channel  string
	threadTS string
	maxLen   int
	pause    time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	statusTS string
}

var _ tools.StatusMessenger = (*threadMessenger)(nil)

func newThreadMessenger(api PostAPI, channel, threadTS string, maxLen int, logger *log.Logger) *threadMessenger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &threadMessenger{
		api:      api,
		channel:  channel,
		threadTS: threadTS,
		maxLen:   maxLen,
		pause:    50 * time.Millisecond,
		logger:   logger,
	}
}

func (m *threadMessenger) options(text string) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if m.threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(m.threadTS))
	}
	return opts
}

// Send posts text split into chunks, in order.
func (m *threadMessenger) Send(ctx context.Context, text string) error {
	chunks := SplitMessage(ToMrkdwn(text), m.maxLen)
	for i, chunk := range chunks {
		if i > 0 && m.pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.pause):
			}
		}
		if _, _, err := m.api.PostMessageContext(ctx, m.channel, m.options(chunk)...); err != nil {
			return fmt.Errorf("failed to post message chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// Status posts or edits the status line.
func (m *threadMessenger) Status(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusTS == "" {
		_, ts, err := m.api.PostMessageContext(ctx, m.channel, m.options(text)...)
		if err != nil {
			return fmt.Errorf("failed to post status: %w", err)
		}
		m.statusTS = ts
		return nil
	}
	if _, _, _, err := m.api.UpdateMessageContext(ctx, m.channel, m.statusTS, slack.MsgOptionText(text, false)); err != nil {
		m.logger.Printf("event=status_update status=error ts=%s err=%v", m.statusTS, err)
		return m.Send(ctx, text)
	}
	return nil
}

// Upload attaches a file to the thread.
func (m *threadMessenger) Upload(ctx context.Context, f tools.File) error {
	_, err := m.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:          bytes.NewReader(f.Content),
		FileSize:        len(f.Content),
		Filename:        f.Name,
		Title:           f.Title,
		InitialComment:  f.Comment,
		Channel:         m.channel,
		ThreadTimestamp: m.threadTS,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", f.Name, err)
	}
	return nil
}
