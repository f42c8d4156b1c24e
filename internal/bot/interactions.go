package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/devlake-bot/internal/metrics"
	"github.com/edvin/devlake-bot/internal/model"
)

func (b *Bot) handleInteraction(ctx context.Context, callback slack.InteractionCallback, req *socketmode.Request) {
	switch callback.Type {
	case slack.InteractionTypeViewSubmission:
		switch callback.View.CallbackID {
		case createProjectCallbackID:
			b.handleCreateProjectSubmission(ctx, callback, req)
		case addReposCallbackID:
			b.handleAddReposSubmission(ctx, callback, req)
		default:
			b.socket.Ack(*req)
		}
	case slack.InteractionTypeBlockActions:
		b.socket.Ack(*req)
		for _, action := range callback.ActionCallback.BlockActions {
			switch action.ActionID {
			case actionProjectsPrev, actionProjectsNext:
				b.replaceProjectPage(ctx, callback.ResponseURL, pageFromActionValue(action.Value))
			}
		}
	default:
		b.socket.Ack(*req)
	}
}

var createProjectBlocks = map[string]string{
	"ProjectName": blockProjectName,
	"Provider":    blockProvider,
	"Token":       blockToken,
	"Repo":        blockRepo,
	"CronConfig":  blockSchedule,
}

var addReposBlocks = map[string]string{
	"ProjectName":  blockProject,
	"Provider":     blockConnection,
	"ConnectionID": blockConnection,
	"Repos":        blockRepos,
}

func errorsResponse(errs map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"response_action": "errors",
		"errors":          errs,
	}
}

// handleCreateProjectSubmission validates the form, then acks to close the
// modal and runs the provisioning saga. The token goes straight into the
// vault; from here on only the opaque reference travels.
func (b *Bot) handleCreateProjectSubmission(ctx context.Context, callback slack.InteractionCallback, req *socketmode.Request) {
	input := parseCreateProjectView(callback.View)
	if errs := validationErrors(validate.Struct(input), createProjectBlocks); errs != nil {
		b.socket.Ack(*req, errorsResponse(errs))
		return
	}
	b.socket.Ack(*req)

	channelID, userID := parsePrivateMetadata(callback.View.PrivateMetadata)
	b.postEphemeral(ctx, channelID, userID,
		slack.MsgOptionText(fmt.Sprintf("Setting up project *%s*, this can take a minute.", input.ProjectName), false))

	tokenRef := b.vault.Put(input.Token)
	params := model.ProvisionParams{
		ProjectName:  input.ProjectName,
		Provider:     input.Provider,
		RepoFullName: input.Repo,
		CronConfig:   input.CronConfig,
		TokenRef:     tokenRef,
	}

	run, err := b.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "provision-" + uuid.NewString(),
		TaskQueue: b.taskQueue,
	}, "ProvisionProjectWorkflow", params)
	if err != nil {
		b.vault.Drop(tokenRef)
		b.log.Error().Err(err).Str("project", input.ProjectName).Msg("starting provisioning workflow failed")
		b.postEphemeral(ctx, channelID, userID,
			slack.MsgOptionText("Could not start provisioning, please try again later.", false))
		return
	}
	b.log.Info().Str("project", input.ProjectName).Str("workflow_id", run.GetID()).Msg("provisioning started")

	var result model.ProvisionResult
	if err := run.Get(ctx, &result); err != nil {
		failure := provisionFailure(err)
		step := failure.Step
		if step == "" {
			step = "unknown"
		}
		metrics.Provisions.WithLabelValues(step).Inc()
		b.log.Warn().Str("project", input.ProjectName).Str("step", failure.Step).
			Int("status_code", failure.StatusCode).Msg("provisioning failed")
		b.postEphemeral(ctx, channelID, userID,
			slack.MsgOptionText(formatProvisionFailure(failure), false))
		return
	}

	metrics.Provisions.WithLabelValues("success").Inc()
	b.log.Info().Str("project", input.ProjectName).Int64("pipeline_id", result.PipelineID).Msg("provisioning completed")
	b.postMessage(ctx, channelID,
		slack.MsgOptionText(formatProvisionSuccess(&result, b.dashboardURL), false))
}

// provisionFailure unpacks the typed workflow error. Falls back to a generic
// report when the error carries no details, which keeps raw error chains out
// of the channel.
func provisionFailure(err error) model.ProvisionFailure {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		failure := model.ProvisionFailure{Step: appErr.Type(), Message: appErr.Message()}
		if appErr.HasDetails() {
			var details model.ProvisionFailure
			if derr := appErr.Details(&details); derr == nil {
				return details
			}
		}
		return failure
	}
	return model.ProvisionFailure{Message: "provisioning did not complete"}
}

func (b *Bot) handleAddReposSubmission(ctx context.Context, callback slack.InteractionCallback, req *socketmode.Request) {
	input := parseAddReposView(callback.View)
	if errs := validationErrors(validate.Struct(input), addReposBlocks); errs != nil {
		b.socket.Ack(*req, errorsResponse(errs))
		return
	}
	b.socket.Ack(*req)

	channelID, userID := parsePrivateMetadata(callback.View.PrivateMetadata)
	b.postEphemeral(ctx, channelID, userID,
		slack.MsgOptionText(fmt.Sprintf("Adding %d repositories to *%s*.", len(input.Repos), input.ProjectName), false))

	params := model.AddScopesParams{
		ProjectName:  input.ProjectName,
		Provider:     input.Provider,
		ConnectionID: input.ConnectionID,
		Repos:        input.Repos,
	}
	run, err := b.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "add-scopes-" + uuid.NewString(),
		TaskQueue: b.taskQueue,
	}, "AddScopesWorkflow", params)
	if err != nil {
		b.log.Error().Err(err).Str("project", input.ProjectName).Msg("starting add-scopes workflow failed")
		b.postEphemeral(ctx, channelID, userID,
			slack.MsgOptionText("Could not start adding repositories, please try again later.", false))
		return
	}

	var result model.AddScopesResult
	if err := run.Get(ctx, &result); err != nil {
		b.log.Error().Err(err).Str("project", input.ProjectName).Msg("add-scopes workflow failed")
		b.postEphemeral(ctx, channelID, userID,
			slack.MsgOptionText("Adding repositories failed, please try again later.", false))
		return
	}

	b.postEphemeral(ctx, channelID, userID,
		slack.MsgOptionText(formatAddScopesResult(input.ProjectName, &result), false))
}
