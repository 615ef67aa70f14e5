package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	appcfg "github.com/ca-srg/nova/internal/config"
	"github.com/ca-srg/nova/internal/router"
	"github.com/ca-srg/nova/internal/slackbot"
)

var slackCmd = &cobra.Command{
	Use:   "slack-bot",
	Short: "Run the Slack bot over Socket Mode",
	Long: `Run the assistant as a Slack bot. It answers mentions, direct messages,
thread replies and the slash commands:

  ` + strings.Join(router.CommandNames(), " ") + `

SLACK_BOT_TOKEN and SLACK_APP_TOKEN (xapp-) are required.`,
	RunE: runSlackBot,
}

func runSlackBot(cmd *cobra.Command, args []string) error {
	scfg, err := appcfg.LoadSlack()
	if err != nil {
		return fmt.Errorf("failed to load slack config: %w", err)
	}
	logger := log.New(os.Stdout, "slack-bot ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newAssistant(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Start(ctx)

	client := slack.New(scfg.BotToken,
		slack.OptionAppLevelToken(scfg.AppToken),
		slack.OptionDebug(scfg.Debug),
	)
	botUserID, err := slackbot.BotUserID(ctx, client)
	if err != nil {
		return err
	}

	bot := slackbot.NewBot(client, app.router, botUserID,
		slackbot.WithLogger(logger),
		slackbot.WithMaxMessageLength(scfg.MaxMessageLength),
		slackbot.WithRateLimiter(slackbot.NewRateLimiter(
			scfg.RateUserPerMinute,
			scfg.RateChannelPerMinute,
			scfg.RateGlobalPerMinute,
		)),
		slackbot.WithReporter(&slackbot.LogReporter{Logger: logger}),
	)
	sbot, err := slackbot.NewSocketBot(client, bot, logger, scfg.Debug)
	if err != nil {
		return err
	}

	logger.Printf("event=start status=ok bot_user=%s provider=%s analytics=%s", botUserID, cfg.LLMProvider, cfg.AnalyticsAPIURL)
	err = sbot.Start(ctx)
	m := bot.Metrics()
	logger.Printf("event=stop requests=%d responses=%d errors=%d rate_limited=%d avg_latency=%s",
		m.Requests.Load(), m.Responses.Load(), m.Errors.Load(), m.RateLimited.Load(), m.AverageLatency())
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
