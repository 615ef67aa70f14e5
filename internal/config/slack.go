package config

import (
	"fmt"
	"strings"

	env "github.com/netflix/go-env"
)

const maxSlackMessageLength = 4000

// SlackConfig holds the Socket Mode credentials and reply limits.
type SlackConfig struct {
	BotToken string `env:"SLACK_BOT_TOKEN,required=true"`
	// App-level token (xapp-) that opens the Socket Mode connection.
	AppToken         string `env:"SLACK_APP_TOKEN,required=true"`
	MaxMessageLength int    `env:"SLACK_MAX_MESSAGE_LENGTH,default=2800"`

	RateUserPerMinute    int  `env:"SLACK_RATE_USER_PER_MINUTE,default=10"`
	RateChannelPerMinute int  `env:"SLACK_RATE_CHANNEL_PER_MINUTE,default=30"`
	RateGlobalPerMinute  int  `env:"SLACK_RATE_GLOBAL_PER_MINUTE,default=100"`
	Debug                bool `env:"SLACK_DEBUG,default=false"`
}

// LoadSlack reads the Slack settings. Both tokens are required and must
// carry the prefix of their kind.
func LoadSlack() (*SlackConfig, error) {
	var cfg SlackConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse slack environment: %w", err)
	}
	cfg.BotToken = strings.TrimSpace(cfg.BotToken)
	cfg.AppToken = strings.TrimSpace(cfg.AppToken)

	switch {
	case cfg.BotToken == "" || cfg.AppToken == "":
		return nil, fmt.Errorf("SLACK_BOT_TOKEN and SLACK_APP_TOKEN are required for Socket Mode")
	case !strings.HasPrefix(cfg.BotToken, "xoxb-"):
		return nil, fmt.Errorf("SLACK_BOT_TOKEN must be a bot token (xoxb-)")
	case !strings.HasPrefix(cfg.AppToken, "xapp-"):
		return nil, fmt.Errorf("SLACK_APP_TOKEN must be an app-level token (xapp-)")
	}
	if cfg.MaxMessageLength <= 0 || cfg.MaxMessageLength > maxSlackMessageLength {
		cfg.MaxMessageLength = 2800
	}
	return &cfg, nil
}
