package slackbot

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SocketBot receives Slack events over Socket Mode (xapp- token) and hands
// them to a Bot.
type SocketBot struct {
	client *slack.Client
	sm     *socketmode.Client
	bot    *Bot
	logger *log.Logger
	debug  bool
}

// BotUserID looks up the user id of the token's bot.
func BotUserID(ctx context.Context, client *slack.Client) (string, error) {
	if client == nil {
		return "", fmt.Errorf("nil slack client")
	}
	auth, err := client.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test failed: %w", err)
	}
	return auth.UserID, nil
}

// NewSocketBot wraps bot with a Socket Mode connection. The client must be
// built with slack.OptionAppLevelToken.
func NewSocketBot(client *slack.Client, bot *Bot, logger *log.Logger, debug bool) (*SocketBot, error) {
	if client == nil {
		return nil, fmt.Errorf("nil slack client")
	}
	if bot == nil {
		return nil, fmt.Errorf("nil bot")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	var opts []socketmode.Option
	if debug {
		opts = append(opts, socketmode.OptionDebug(true), socketmode.OptionLog(logger))
	}
	return &SocketBot{
		client: client,
		sm:     socketmode.New(client, opts...),
		bot:    bot,
		logger: logger,
		debug:  debug,
	}, nil
}

// Start runs the event loop until ctx is cancelled, then waits for
// in-flight conversations to finish.
func (s *SocketBot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.sm.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			s.bot.Wait()
			return nil
		case err := <-errCh:
			s.bot.Wait()
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("socketmode run: %w", err)
			}
			return nil
		case ev := <-s.sm.Events:
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *SocketBot) handleEvent(ctx context.Context, ev socketmode.Event) {
	if s.debug {
		s.logger.Printf("event=socketmode type=%s", ev.Type)
	}

	switch ev.Type {
	case socketmode.EventTypeConnecting:
		s.logger.Printf("event=socketmode status=connecting")
	case socketmode.EventTypeConnected:
		s.logger.Printf("event=socketmode status=connected")
	case socketmode.EventTypeInvalidAuth:
		s.logger.Printf("event=socketmode status=invalid_auth hint=\"verify SLACK_APP_TOKEN and SLACK_BOT_TOKEN\"")
	case socketmode.EventTypeConnectionError:
		s.logger.Printf("event=socketmode status=connection_error err=%v", ev.Data)
	case socketmode.EventTypeIncomingError:
		s.logger.Printf("event=socketmode status=incoming_error err=%v", ev.Data)
	case socketmode.EventTypeEventsAPI:
		// Ack first so Slack does not redeliver while the request runs.
		if ev.Request != nil {
			s.sm.Ack(*ev.Request)
		}
		payload, ok := ev.Data.(slackevents.EventsAPIEvent)
		if !ok || payload.Type != slackevents.CallbackEvent {
			return
		}
		switch data := payload.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			s.bot.OnMention(ctx, data)
		case *slackevents.MessageEvent:
			s.bot.OnMessage(ctx, data)
		}
	case socketmode.EventTypeSlashCommand:
		if ev.Request != nil {
			s.sm.Ack(*ev.Request)
		}
		cmd, ok := ev.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		s.bot.OnSlashCommand(ctx, cmd)
	}
}
