package bot

import (
	"context"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// handleEvent routes Events API callbacks: app mentions in channels and
// direct messages. Both go through the same keyword router.
func (b *Bot) handleEvent(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		b.routeKeywords(ctx, ev.Channel, ev.User, ev.Text)
	case *slackevents.MessageEvent:
		// Only plain user DMs; skip our own messages and edits.
		if ev.ChannelType != "im" || ev.BotID != "" || ev.SubType != "" {
			return
		}
		b.routeKeywords(ctx, ev.Channel, ev.User, ev.Text)
	}
}

// routeKeywords answers free-form questions with the closest canned reply.
// Matching is deliberately loose; anything unrecognized gets the help text.
func (b *Bot) routeKeywords(ctx context.Context, channelID, userID, text string) {
	lower := strings.ToLower(text)
	b.log.Debug().Str("channel", channelID).Str("user", userID).Msg("routing message")

	switch {
	case containsAny(lower, "requirement", "token", "pat", "scope", "permission"):
		b.postEphemeral(ctx, channelID, userID, slack.MsgOptionText(requirementsText(), false))
	case strings.Contains(lower, "list") && strings.Contains(lower, "all"):
		b.sendProjectListAll(ctx, channelID, userID)
	case containsAny(lower, "list", "projects"):
		b.sendProjectPage(ctx, channelID, userID, 1)
	case containsAny(lower, "create", "new project", "add repo"):
		b.postEphemeral(ctx, channelID, userID,
			slack.MsgOptionText("Use `/devlake-create-project` to set up a project or `/devlake-add-repos` to extend one.", false))
	default:
		b.postEphemeral(ctx, channelID, userID, slack.MsgOptionText(helpText(b.dashboardURL), false))
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
