package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/devlake-bot/internal/model"
)

// Routing targets for slash commands.
const (
	routeCreate       = "create"
	routeAddRepos     = "add-repos"
	routeList         = "list"
	routeListAll      = "list-all"
	routeRequirements = "requirements"
	routeHelp         = "help"
)

// commandRoute resolves a slash command to its routing target. Each operation
// has a dedicated command; a bare /devlake with a text subcommand routes the
// same way, and anything unrecognized gets the help text.
func commandRoute(command, text string) string {
	switch command {
	case "/devlake-create-project":
		return routeCreate
	case "/devlake-add-repos":
		return routeAddRepos
	case "/devlake-list-projects":
		return routeList
	case "/devlake-list-all":
		return routeListAll
	case "/devlake-requirements":
		return routeRequirements
	case "/devlake-help":
		return routeHelp
	}

	switch strings.TrimSpace(strings.ToLower(text)) {
	case "create":
		return routeCreate
	case "add-repos", "add_repos", "add":
		return routeAddRepos
	case "list":
		return routeList
	case "list all", "list-all":
		return routeListAll
	case "requirements":
		return routeRequirements
	default:
		return routeHelp
	}
}

// handleSlashCommand dispatches slash commands. Every path acks the request
// first; Slack drops commands that are not acked within its deadline.
func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand, req *socketmode.Request) {
	route := commandRoute(cmd.Command, cmd.Text)
	b.log.Info().Str("command", cmd.Command).Str("route", route).Str("user", cmd.UserID).Msg("slash command")

	switch route {
	case routeCreate:
		b.socket.Ack(*req)
		b.openCreateProjectModal(ctx, cmd)
	case routeAddRepos:
		b.socket.Ack(*req)
		b.openAddReposModal(ctx, cmd)
	case routeList:
		b.socket.Ack(*req)
		b.sendProjectPage(ctx, cmd.ChannelID, cmd.UserID, 1)
	case routeListAll:
		b.socket.Ack(*req)
		b.sendProjectListAll(ctx, cmd.ChannelID, cmd.UserID)
	case routeRequirements:
		b.socket.Ack(*req, ephemeralResponse(requirementsText()))
	default:
		b.socket.Ack(*req, ephemeralResponse(helpText(b.dashboardURL)))
	}
}

func ephemeralResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"response_type": "ephemeral",
		"text":          text,
	}
}

// privateMetadata carries the originating channel and user through the modal
// round trip so results can be reported where the command was issued.
func privateMetadata(channelID, userID string) string {
	return channelID + ":" + userID
}

func parsePrivateMetadata(meta string) (channelID, userID string) {
	channelID, userID, _ = strings.Cut(meta, ":")
	return channelID, userID
}

func (b *Bot) openCreateProjectModal(ctx context.Context, cmd slack.SlashCommand) {
	view := createProjectModal()
	view.PrivateMetadata = privateMetadata(cmd.ChannelID, cmd.UserID)
	if _, err := b.api.OpenViewContext(ctx, cmd.TriggerID, view); err != nil {
		b.log.Error().Err(err).Msg("opening create-project modal failed")
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID,
			slack.MsgOptionText("Could not open the form, please try again.", false))
	}
}

// openAddReposModal prefetches projects and connections in parallel before
// rendering the form. Both lists come from the platform, so a platform outage
// surfaces here instead of at submit time.
func (b *Bot) openAddReposModal(ctx context.Context, cmd slack.SlashCommand) {
	var (
		projects    []model.ProjectSummary
		connections = map[string][]model.Connection{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = b.listing.ListAll(gctx)
		return err
	})
	var githubConns, gitlabConns []model.Connection
	g.Go(func() error {
		var err error
		githubConns, err = b.devlake.ListConnections(gctx, model.ProviderGitHub)
		return err
	})
	g.Go(func() error {
		var err error
		gitlabConns, err = b.devlake.ListConnections(gctx, model.ProviderGitLab)
		return err
	})
	if err := g.Wait(); err != nil {
		b.log.Error().Err(err).Msg("prefetching add-repos modal data failed")
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID,
			slack.MsgOptionText("Could not reach DevLake, please try again later.", false))
		return
	}
	connections[model.ProviderGitHub] = githubConns
	connections[model.ProviderGitLab] = gitlabConns

	if len(projects) == 0 {
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID,
			slack.MsgOptionText("No projects yet. Use `/devlake-create-project` first.", false))
		return
	}
	if len(githubConns) == 0 && len(gitlabConns) == 0 {
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID,
			slack.MsgOptionText("No connections yet. Use `/devlake-create-project` first.", false))
		return
	}

	view := addReposModal(projects, connections)
	view.PrivateMetadata = privateMetadata(cmd.ChannelID, cmd.UserID)
	if _, err := b.api.OpenViewContext(ctx, cmd.TriggerID, view); err != nil {
		b.log.Error().Err(err).Msg("opening add-repos modal failed")
		b.postEphemeral(ctx, cmd.ChannelID, cmd.UserID,
			slack.MsgOptionText("Could not open the form, please try again.", false))
	}
}

func (b *Bot) sendProjectPage(ctx context.Context, channelID, userID string, pageNum int) {
	page, err := b.listing.Page(ctx, model.PageCursor{Page: pageNum})
	if err != nil {
		b.log.Error().Err(err).Msg("listing projects failed")
		b.postEphemeral(ctx, channelID, userID,
			slack.MsgOptionText("Could not list projects: "+err.Error(), false))
		return
	}
	b.postEphemeral(ctx, channelID, userID, slack.MsgOptionBlocks(b.projectPageBlocks(page)...))
}

func (b *Bot) sendProjectListAll(ctx context.Context, channelID, userID string) {
	projects, err := b.listing.ListAll(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("listing all projects failed")
		b.postEphemeral(ctx, channelID, userID,
			slack.MsgOptionText("Could not list projects: "+err.Error(), false))
		return
	}
	b.postEphemeral(ctx, channelID, userID, slack.MsgOptionText(formatProjectList(projects), false))
}

// replaceProjectPage swaps the paged listing in place when a nav button is
// clicked, using the interaction's response URL.
func (b *Bot) replaceProjectPage(ctx context.Context, responseURL string, pageNum int) {
	page, err := b.listing.Page(ctx, model.PageCursor{Page: pageNum})
	if err != nil {
		b.log.Error().Err(err).Msg("listing projects failed")
		return
	}
	_, _, err = b.api.PostMessageContext(ctx, "",
		slack.MsgOptionReplaceOriginal(responseURL),
		slack.MsgOptionBlocks(b.projectPageBlocks(page)...))
	if err != nil {
		b.log.Error().Err(err).Int("page", pageNum).Msg("updating project page failed")
	}
}

func pageFromActionValue(value string) int {
	page, err := strconv.Atoi(value)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
