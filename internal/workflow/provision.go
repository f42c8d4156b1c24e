package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/devlake-bot/internal/activity"
	"github.com/edvin/devlake-bot/internal/model"
)

// sagaActivityOptions runs every saga step with a single attempt: the saga is
// fail-fast and non-compensating, so a failed step aborts the remaining steps
// and leaves already-created platform resources in place.
func sagaActivityOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

// ProvisionProjectWorkflow turns one project submission into a running
// pipeline: create connection → add scope → create project+blueprint →
// trigger pipeline, strictly in order, each step feeding the next.
//
// The access token is consumed inside the CreateConnection activity via a
// one-use vault reference; it is not retained past that step and never
// appears in workflow history. On failure the workflow returns a step-typed
// error whose details payload names the resources created so far.
func ProvisionProjectWorkflow(ctx workflow.Context, params model.ProvisionParams) (*model.ProvisionResult, error) {
	ctx = sagaActivityOptions(ctx)
	logger := workflow.GetLogger(ctx)

	var created []model.CreatedResource

	connName := params.ProjectName + "-" + params.Provider
	var connectionID int64
	err := workflow.ExecuteActivity(ctx, "CreateConnection", activity.CreateConnectionParams{
		Name:     connName,
		Provider: params.Provider,
		Endpoint: params.Endpoint,
		TokenRef: params.TokenRef,
	}).Get(ctx, &connectionID)
	if err != nil {
		return nil, stepFailed(model.StepCreateConnection, err, created)
	}
	created = append(created, model.CreatedResource{Kind: "connection", ID: connectionID, Name: connName})
	logger.Info("connection created", "project", params.ProjectName, "connection_id", connectionID)

	var repositoryID int64
	err = workflow.ExecuteActivity(ctx, "AddScope", activity.AddScopeParams{
		Provider:     params.Provider,
		ConnectionID: connectionID,
		FullName:     params.RepoFullName,
	}).Get(ctx, &repositoryID)
	if err != nil {
		return nil, stepFailed(model.StepAddScope, err, created)
	}
	created = append(created, model.CreatedResource{Kind: "scope", ID: repositoryID, Name: params.RepoFullName})
	logger.Info("scope added", "project", params.ProjectName, "repository_id", repositoryID)

	var blueprintID int64
	err = workflow.ExecuteActivity(ctx, "CreateProject", activity.CreateProjectParams{
		ProjectName:  params.ProjectName,
		Provider:     params.Provider,
		ConnectionID: connectionID,
		RepositoryID: repositoryID,
		CronConfig:   params.CronConfig,
	}).Get(ctx, &blueprintID)
	if err != nil {
		return nil, stepFailed(model.StepCreateProject, err, created)
	}
	created = append(created, model.CreatedResource{Kind: "blueprint", ID: blueprintID, Name: params.ProjectName + "-Blueprint"})
	logger.Info("project created", "project", params.ProjectName, "blueprint_id", blueprintID)

	var run model.PipelineRun
	err = workflow.ExecuteActivity(ctx, "TriggerPipeline", activity.TriggerPipelineParams{
		BlueprintID: blueprintID,
	}).Get(ctx, &run)
	if err != nil {
		return nil, stepFailed(model.StepTriggerPipeline, err, created)
	}
	logger.Info("pipeline triggered", "project", params.ProjectName, "pipeline_id", run.ID, "status", run.Status)

	return &model.ProvisionResult{
		ProjectName:    params.ProjectName,
		ConnectionID:   connectionID,
		RepositoryID:   repositoryID,
		BlueprintID:    blueprintID,
		PipelineID:     run.ID,
		PipelineStatus: run.Status,
	}, nil
}

// AddScopesWorkflow attaches repositories to an existing connection and
// relinks them to the project's blueprint. Unlike the provisioning saga it
// continues past per-repository failures and reports each outcome, matching
// the additive nature of scopes.
func AddScopesWorkflow(ctx workflow.Context, params model.AddScopesParams) (*model.AddScopesResult, error) {
	ctx = sagaActivityOptions(ctx)
	logger := workflow.GetLogger(ctx)

	result := &model.AddScopesResult{}
	var repositoryIDs []int64

	for _, repo := range params.Repos {
		var repositoryID int64
		err := workflow.ExecuteActivity(ctx, "AddScope", activity.AddScopeParams{
			Provider:     params.Provider,
			ConnectionID: params.ConnectionID,
			FullName:     repo,
		}).Get(ctx, &repositoryID)
		if err != nil {
			result.Failed = append(result.Failed, model.ScopeFailure{FullName: repo, Message: sanitizedMessage(err)})
			continue
		}
		result.Added = append(result.Added, model.AddedScope{FullName: repo, RepositoryID: repositoryID})
		repositoryIDs = append(repositoryIDs, repositoryID)
	}

	if len(repositoryIDs) == 0 {
		return result, nil
	}

	err := workflow.ExecuteActivity(ctx, "LinkScopes", activity.LinkScopesParams{
		ProjectName:   params.ProjectName,
		Provider:      params.Provider,
		ConnectionID:  params.ConnectionID,
		RepositoryIDs: repositoryIDs,
	}).Get(ctx, nil)
	if err != nil {
		// Scopes are attached to the connection even when the relink fails;
		// report it instead of failing the whole run.
		result.LinkMessage = sanitizedMessage(err)
		logger.Error("blueprint relink failed", "project", params.ProjectName, "error", result.LinkMessage)
		return result, nil
	}

	result.Linked = true
	return result, nil
}
