package model

// Connection is a DevLake connection to a source code host.
type Connection struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Pipeline run status constants as reported by DevLake.
const (
	PipelineCreated   = "TASK_CREATED"
	PipelineRunning   = "TASK_RUNNING"
	PipelineCompleted = "TASK_COMPLETED"
	PipelineFailed    = "TASK_FAILED"
)

// PipelineRun is one execution of a blueprint.
type PipelineRun struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// BlueprintScope references one repository scope inside a blueprint
// connection entry.
type BlueprintScope struct {
	ScopeID string `json:"scopeId"`
}

// BlueprintConnection links a plugin connection and its scopes to a blueprint.
type BlueprintConnection struct {
	PluginName   string           `json:"pluginName"`
	ConnectionID int64            `json:"connectionId"`
	Scopes       []BlueprintScope `json:"scopes"`
}

// Blueprint holds the blueprint fields the bot reads back from DevLake.
type Blueprint struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Connections []BlueprintConnection `json:"connections"`
}
