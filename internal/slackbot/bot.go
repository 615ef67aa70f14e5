package slackbot

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/ca-srg/nova/internal/router"
)

// rateLimitedText is posted when a user exceeds the configured budget.
const rateLimitedText = "You're sending requests a bit too quickly. Please wait a moment and try again."

// Handler is the conversation layer the bot feeds.
type Handler interface {
	HandleMention(ctx context.Context, m router.Message) error
	HandleThreadReply(ctx context.Context, m router.Message) error
	HandleCommand(ctx context.Context, c router.Command) error
}

// Bot turns Slack events into router calls. Events of one thread are
// handled in arrival order; different threads proceed concurrently.
type Bot struct {
	api        PostAPI
	handler    Handler
	dispatcher *Dispatcher
	detector   MentionDetector
	rate       *RateLimiter
	metrics    *Metrics
	reporter   ErrorReporter
	logger     *log.Logger
	maxLen     int
}

// BotOption configures a Bot.
type BotOption func(*Bot)

// WithRateLimiter enables per-user, per-channel and global limits.
func WithRateLimiter(rl *RateLimiter) BotOption { return func(b *Bot) { b.rate = rl } }

// WithReporter sets where unsurfaced errors go.
func WithReporter(r ErrorReporter) BotOption { return func(b *Bot) { b.reporter = r } }

// WithMaxMessageLength overrides the chunk size of long replies.
func WithMaxMessageLength(n int) BotOption { return func(b *Bot) { b.maxLen = n } }

// WithLogger sets the bot logger.
func WithLogger(logger *log.Logger) BotOption {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBot wires a bot for the given bot user.
func NewBot(api PostAPI, handler Handler, botUserID string, opts ...BotOption) *Bot {
	b := &Bot{
		api:      api,
		handler:  handler,
		detector: MentionDetector{BotUserID: botUserID},
		metrics:  &Metrics{},
		reporter: &noopReporter{},
		logger:   log.New(io.Discard, "", 0),
		maxLen:   DefaultMaxMessageLength,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.dispatcher = NewDispatcher(b.logger)
	return b
}

// Metrics exposes the in-process counters.
func (b *Bot) Metrics() *Metrics { return b.metrics }

// Wait blocks until queued events have been handled.
func (b *Bot) Wait() { b.dispatcher.Wait() }

// SessionID is the thread a message belongs to, or the message itself when
// it starts a new thread.
func SessionID(threadTS, ts string) string {
	if threadTS != "" {
		return threadTS
	}
	return ts
}

// OnMention handles an app_mention event.
func (b *Bot) OnMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev == nil || b.detector.IsOwn(ev.User, ev.BotID) {
		return
	}
	b.enqueue(ctx, "mention", ev.User, ev.Channel, SessionID(ev.ThreadTimeStamp, ev.TimeStamp), ev.Text, b.handler.HandleMention)
}

// OnMessage handles a message event. Mentions arrive separately as
// app_mention and are skipped here. Direct messages outside a thread
// start a conversation; other thread messages continue one.
func (b *Bot) OnMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev == nil || !IsUserMessage(ev.SubType) || b.detector.IsOwn(ev.User, ev.BotID) {
		return
	}
	if b.detector.IsMention(ev.Text) {
		return
	}
	session := SessionID(ev.ThreadTimeStamp, ev.TimeStamp)
	switch {
	case ev.ThreadTimeStamp != "" && ev.ThreadTimeStamp != ev.TimeStamp:
		b.enqueue(ctx, "thread_reply", ev.User, ev.Channel, session, ev.Text, b.handler.HandleThreadReply)
	case ev.ChannelType == slack.TYPE_IM:
		b.enqueue(ctx, "direct_message", ev.User, ev.Channel, session, ev.Text, b.handler.HandleMention)
	}
}

// OnSlashCommand posts a header message for the command and runs it in
// that message's thread.
func (b *Bot) OnSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	if !b.allow(ctx, cmd.UserID, cmd.ChannelID, "") {
		return
	}
	b.dispatcher.Submit("command:"+cmd.ChannelID, func() {
		start := time.Now()
		reqID := uuid.NewString()
		header := fmt.Sprintf("Running command `%s %s`...", cmd.Command, cmd.Text)
		_, ts, err := b.api.PostMessageContext(ctx, cmd.ChannelID, slack.MsgOptionText(header, false))
		if err != nil {
			b.fail(ctx, "slash_command", reqID, cmd.ChannelID, start, err)
			return
		}
		b.logger.Printf("event=slash_command status=start request_id=%s command=%s user=%s channel=%s session=%s", reqID, cmd.Command, cmd.UserID, cmd.ChannelID, ts)
		reply := newThreadMessenger(b.api, cmd.ChannelID, ts, b.maxLen, b.logger)
		err = b.handler.HandleCommand(ctx, router.Command{
			Name: cmd.Command,
			Message: router.Message{
				SessionID: ts,
				Text:      cmd.Text,
				UserID:    cmd.UserID,
				Reply:     reply,
			},
		})
		b.finish(ctx, "slash_command", reqID, cmd.ChannelID, start, err)
	})
}

func (b *Bot) enqueue(ctx context.Context, kind, user, channel, session, text string, handle func(context.Context, router.Message) error) {
	if !b.allow(ctx, user, channel, session) {
		return
	}
	b.dispatcher.Submit(session, func() {
		start := time.Now()
		reqID := uuid.NewString()
		b.logger.Printf("event=%s status=start request_id=%s user=%s channel=%s session=%s", kind, reqID, user, channel, session)
		err := handle(ctx, router.Message{
			SessionID: session,
			Text:      text,
			UserID:    user,
			Reply:     newThreadMessenger(b.api, channel, session, b.maxLen, b.logger),
		})
		b.finish(ctx, kind, reqID, channel, start, err)
	})
}

func (b *Bot) allow(ctx context.Context, user, channel, threadTS string) bool {
	b.metrics.RecordRequest()
	scope := b.rate.Check(user, channel)
	if scope == ScopeNone {
		return true
	}
	b.metrics.RecordRateLimited()
	b.logger.Printf("event=rate_limit_exceeded scope=%s user=%s channel=%s", scope, user, channel)
	reply := newThreadMessenger(b.api, channel, threadTS, b.maxLen, b.logger)
	if err := reply.Send(ctx, rateLimitedText); err != nil {
		b.reporter.Report(err, map[string]string{"channel": channel, "event": "rate_limited"})
	}
	return false
}

func (b *Bot) finish(ctx context.Context, kind, reqID, channel string, start time.Time, err error) {
	if err != nil {
		b.fail(ctx, kind, reqID, channel, start, err)
		return
	}
	elapsed := time.Since(start)
	b.metrics.RecordResponse(elapsed)
	recordSlackMetrics(ctx, kind, elapsed, false)
	b.logger.Printf("event=%s status=ok request_id=%s duration_ms=%d", kind, reqID, elapsed.Milliseconds())
}

func (b *Bot) fail(ctx context.Context, kind, reqID, channel string, start time.Time, err error) {
	elapsed := time.Since(start)
	b.metrics.RecordError()
	recordSlackMetrics(ctx, kind, elapsed, true)
	b.logger.Printf("event=%s status=error request_id=%s duration_ms=%d err=%v", kind, reqID, elapsed.Milliseconds(), err)
	b.reporter.Report(err, map[string]string{"channel": channel, "event": kind, "request_id": reqID})
}
