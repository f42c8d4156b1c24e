package activity

import (
	"context"
	"strconv"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/devlake-bot/internal/devlake"
	"github.com/edvin/devlake-bot/internal/model"
	"github.com/edvin/devlake-bot/internal/secret"
)

// Default source host API endpoints per provider.
const (
	defaultGitHubEndpoint = "https://api.github.com/"
	defaultGitLabEndpoint = "https://gitlab.com/api/v4/"
)

// DevLake contains the activities backing the provisioning workflows. Each
// activity is one DevLake API call; none of them retries (the workflows run
// every activity with MaximumAttempts 1).
type DevLake struct {
	client *devlake.Client
	vault  *secret.Vault
}

// NewDevLake creates the DevLake activity struct.
func NewDevLake(client *devlake.Client, vault *secret.Vault) *DevLake {
	return &DevLake{client: client, vault: vault}
}

// CreateConnectionParams holds parameters for the CreateConnection activity.
// TokenRef is a one-use vault reference; the token itself never appears in
// activity inputs.
type CreateConnectionParams struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Endpoint string `json:"endpoint,omitempty"`
	TokenRef string `json:"token_ref"`
}

// CreateConnection resolves the access token from the vault (consuming the
// reference) and creates the connection. After this call starts, the token is
// gone from the process regardless of outcome.
func (a *DevLake) CreateConnection(ctx context.Context, params CreateConnectionParams) (int64, error) {
	token, ok := a.vault.Take(params.TokenRef)
	if !ok {
		return 0, temporal.NewNonRetryableApplicationError(
			"credential reference expired or already used", "CredentialExpired", nil,
			model.StepFailure{Step: model.StepCreateConnection, Message: "credential reference expired or already used"})
	}

	endpoint := params.Endpoint
	if endpoint == "" {
		endpoint = defaultGitHubEndpoint
		if params.Provider == model.ProviderGitLab {
			endpoint = defaultGitLabEndpoint
		}
	}

	return a.client.CreateConnection(ctx, params.Provider, devlake.CreateConnectionParams{
		Name:          params.Name,
		Endpoint:      endpoint,
		Token:         token,
		EnableGraphql: params.Provider == model.ProviderGitHub,
	})
}

// AddScopeParams holds parameters for the AddScope activity.
type AddScopeParams struct {
	Provider     string `json:"provider"`
	ConnectionID int64  `json:"connection_id"`
	FullName     string `json:"full_name"`
}

// AddScope attaches a repository to a connection and returns its platform id.
func (a *DevLake) AddScope(ctx context.Context, params AddScopeParams) (int64, error) {
	return a.client.AddScope(ctx, params.Provider, params.ConnectionID, params.FullName)
}

// CreateProjectParams holds parameters for the CreateProject activity.
type CreateProjectParams struct {
	ProjectName  string `json:"project_name"`
	Provider     string `json:"provider"`
	ConnectionID int64  `json:"connection_id"`
	RepositoryID int64  `json:"repository_id"`
	CronConfig   string `json:"cron_config"`
}

// CreateProject creates the project with its blueprint and returns the
// blueprint id.
func (a *DevLake) CreateProject(ctx context.Context, params CreateProjectParams) (int64, error) {
	return a.client.CreateProject(ctx, devlake.CreateProjectParams{
		ProjectName:  params.ProjectName,
		Provider:     params.Provider,
		ConnectionID: params.ConnectionID,
		RepositoryID: params.RepositoryID,
		CronConfig:   params.CronConfig,
	})
}

// TriggerPipelineParams holds parameters for the TriggerPipeline activity.
type TriggerPipelineParams struct {
	BlueprintID int64 `json:"blueprint_id"`
}

// TriggerPipeline starts the first pipeline run of a blueprint.
func (a *DevLake) TriggerPipeline(ctx context.Context, params TriggerPipelineParams) (*model.PipelineRun, error) {
	return a.client.TriggerBlueprint(ctx, params.BlueprintID)
}

// LinkScopesParams holds parameters for the LinkScopes activity.
type LinkScopesParams struct {
	ProjectName   string  `json:"project_name"`
	Provider      string  `json:"provider"`
	ConnectionID  int64   `json:"connection_id"`
	RepositoryIDs []int64 `json:"repository_ids"`
}

// LinkScopes adds the given repository scopes to the project's blueprint,
// merging with whatever the blueprint already references.
func (a *DevLake) LinkScopes(ctx context.Context, params LinkScopesParams) error {
	blueprintID, err := a.client.GetProjectBlueprintID(ctx, params.ProjectName)
	if err != nil {
		return err
	}

	blueprint, err := a.client.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return err
	}

	connections := mergeScopes(blueprint.Connections, params.Provider, params.ConnectionID, params.RepositoryIDs)
	return a.client.UpdateBlueprintConnections(ctx, blueprintID, connections)
}

// mergeScopes adds repository ids to the matching connection entry without
// duplicating existing scopes, creating the entry if absent.
func mergeScopes(connections []model.BlueprintConnection, provider string, connectionID int64, repositoryIDs []int64) []model.BlueprintConnection {
	for i, conn := range connections {
		if conn.PluginName != provider || conn.ConnectionID != connectionID {
			continue
		}
		existing := make(map[string]bool, len(conn.Scopes))
		for _, s := range conn.Scopes {
			existing[s.ScopeID] = true
		}
		for _, id := range repositoryIDs {
			scopeID := strconv.FormatInt(id, 10)
			if !existing[scopeID] {
				connections[i].Scopes = append(connections[i].Scopes, model.BlueprintScope{ScopeID: scopeID})
			}
		}
		return connections
	}

	scopes := make([]model.BlueprintScope, 0, len(repositoryIDs))
	for _, id := range repositoryIDs {
		scopes = append(scopes, model.BlueprintScope{ScopeID: strconv.FormatInt(id, 10)})
	}
	return append(connections, model.BlueprintConnection{
		PluginName:   provider,
		ConnectionID: connectionID,
		Scopes:       scopes,
	})
}
