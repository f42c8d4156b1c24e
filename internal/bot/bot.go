// Package bot is the Slack front end. It runs a Socket Mode event loop,
// renders modals and paged listings, and hands provisioning work to Temporal.
// Access tokens submitted through modals are parked in the one-use vault and
// referenced by handle; they never enter a log record or a workflow payload.
package bot

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.temporal.io/sdk/client"

	"github.com/edvin/devlake-bot/internal/config"
	"github.com/edvin/devlake-bot/internal/devlake"
	"github.com/edvin/devlake-bot/internal/listing"
	"github.com/edvin/devlake-bot/internal/secret"
)

type Bot struct {
	log          zerolog.Logger
	api          *slack.Client
	socket       *socketmode.Client
	temporal     client.Client
	taskQueue    string
	vault        *secret.Vault
	devlake      *devlake.Client
	listing      *listing.Engine
	dashboardURL string
}

func New(cfg *config.Config, log zerolog.Logger, tc client.Client, vault *secret.Vault, dl *devlake.Client) *Bot {
	api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	return &Bot{
		log:          log.With().Str("component", "bot").Logger(),
		api:          api,
		socket:       socketmode.New(api),
		temporal:     tc,
		taskQueue:    cfg.TaskQueue(),
		vault:        vault,
		devlake:      dl,
		listing:      listing.NewEngine(dl),
		dashboardURL: cfg.DashboardURL,
	}
}

// Run drives the Socket Mode connection until ctx is cancelled. Every Slack
// event is acked within the handler and processed in its own goroutine so a
// slow platform call never stalls the socket.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		for evt := range b.socket.Events {
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				b.log.Info().Msg("connecting to Slack")
			case socketmode.EventTypeConnectionError:
				b.log.Warn().Msg("Slack connection error, retrying")
			case socketmode.EventTypeConnected:
				b.log.Info().Msg("connected to Slack")
			case socketmode.EventTypeSlashCommand:
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				req := evt.Request
				go b.handleSlashCommand(ctx, cmd, req)
			case socketmode.EventTypeInteractive:
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				req := evt.Request
				go b.handleInteraction(ctx, callback, req)
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				b.socket.Ack(*evt.Request)
				go b.handleEvent(ctx, apiEvent)
			}
		}
	}()

	return b.socket.RunContext(ctx)
}

func (b *Bot) postEphemeral(ctx context.Context, channelID, userID string, options ...slack.MsgOption) {
	if _, err := b.api.PostEphemeralContext(ctx, channelID, userID, options...); err != nil {
		b.log.Error().Err(err).Str("channel", channelID).Msg("posting ephemeral message failed")
	}
}

func (b *Bot) postMessage(ctx context.Context, channelID string, options ...slack.MsgOption) {
	if _, _, err := b.api.PostMessageContext(ctx, channelID, options...); err != nil {
		b.log.Error().Err(err).Str("channel", channelID).Msg("posting message failed")
	}
}
