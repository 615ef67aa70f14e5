package slackbot

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// MentionDetector decides which incoming messages are addressed to the bot.
type MentionDetector struct {
	BotUserID string
}

// IsMention reports whether text contains an explicit mention of the bot.
func (d MentionDetector) IsMention(text string) bool {
	if d.BotUserID == "" {
		return false
	}
	return strings.Contains(text, fmt.Sprintf("<@%s>", d.BotUserID))
}

// IsOwn reports whether a message was written by the bot itself.
func (d MentionDetector) IsOwn(userID, botID string) bool {
	return botID != "" || (d.BotUserID != "" && userID == d.BotUserID)
}

// IsUserMessage filters out edits, joins and other system subtypes.
func IsUserMessage(subType string) bool {
	return subType == "" || subType == slack.MsgSubTypeFileShare
}
