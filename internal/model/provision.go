package model

// Saga step names. These are the operation names surfaced to the user and
// used as error types on failed provisioning workflows.
const (
	StepCreateConnection = "createConnection"
	StepAddScope         = "addScope"
	StepCreateProject    = "createProject"
	StepTriggerPipeline  = "triggerPipeline"
	StepLinkScopes       = "linkScopes"
)

// Supported source code host providers.
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// ProvisionParams are the inputs of ProvisionProjectWorkflow. The personal
// access token itself is never part of the params; TokenRef is a one-shot
// vault handle resolved inside the CreateConnection activity, so the secret
// never enters Temporal payloads or event history.
type ProvisionParams struct {
	ProjectName  string `json:"project_name"`
	Provider     string `json:"provider"`
	RepoFullName string `json:"repo_full_name"`
	CronConfig   string `json:"cron_config"`
	TokenRef     string `json:"token_ref"`
	Endpoint     string `json:"endpoint,omitempty"`
}

// ProvisionResult is the outcome of a fully successful provisioning run.
type ProvisionResult struct {
	ProjectName    string `json:"project_name"`
	ConnectionID   int64  `json:"connection_id"`
	RepositoryID   int64  `json:"repository_id"`
	BlueprintID    int64  `json:"blueprint_id"`
	PipelineID     int64  `json:"pipeline_id"`
	PipelineStatus string `json:"pipeline_status"`
}

// CreatedResource names a platform resource left in place by a partially
// completed saga. The saga never compensates, so these are reported to the
// user instead of rolled back.
type CreatedResource struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// StepFailure is the detail payload attached to a failed activity. It carries
// only the allow-listed fields: step name, HTTP status, and the sanitized
// platform message.
type StepFailure struct {
	Step       string `json:"step"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// ProvisionFailure is the detail payload of a failed provisioning workflow:
// the failing step plus everything that was created before it.
type ProvisionFailure struct {
	Step       string            `json:"step"`
	StatusCode int               `json:"status_code,omitempty"`
	Message    string            `json:"message"`
	Created    []CreatedResource `json:"created,omitempty"`
}

// AddScopesParams are the inputs of AddScopesWorkflow: attach repositories to
// an existing connection and relink them to the project's blueprint.
type AddScopesParams struct {
	ProjectName  string   `json:"project_name"`
	Provider     string   `json:"provider"`
	ConnectionID int64    `json:"connection_id"`
	Repos        []string `json:"repos"`
}

// AddedScope records one repository successfully attached to a connection.
type AddedScope struct {
	FullName     string `json:"full_name"`
	RepositoryID int64  `json:"repository_id"`
}

// ScopeFailure records one repository that could not be attached.
type ScopeFailure struct {
	FullName string `json:"full_name"`
	Message  string `json:"message"`
}

// AddScopesResult reports per-repository outcomes. Linked is false when the
// blueprint relink failed even though some scopes were added; LinkMessage
// then carries the sanitized reason.
type AddScopesResult struct {
	Added       []AddedScope   `json:"added,omitempty"`
	Failed      []ScopeFailure `json:"failed,omitempty"`
	Linked      bool           `json:"linked"`
	LinkMessage string         `json:"link_message,omitempty"`
}
