package devlake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/edvin/devlake-bot/internal/metrics"
	"github.com/edvin/devlake-bot/internal/model"
)

const requestTimeout = 30 * time.Second

// Client is a typed HTTP client for the DevLake API. It is stateless apart
// from the base URL and an optional API bearer token; per-call credentials
// (personal access tokens) are passed in and never retained.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// NewClient creates a DevLake client with a fixed 30-second per-call timeout.
func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		apiToken:   apiToken,
	}
}

// BaseURL returns the configured DevLake base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues one request and decodes the JSON response into out (if non-nil).
// Non-2xx responses and transport failures are normalized into *Error; only
// the status code and the platform "message" field ever make it into the
// error, never the request body.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: "encode request"}
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: "create request"}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			metrics.ObserveAPIRequest(op, 0, true)
			return &Error{Op: op, Message: "request timed out", Timeout: true}
		}
		metrics.ObserveAPIRequest(op, 0, false)
		return &Error{Op: op, Message: "request failed"}
	}
	defer resp.Body.Close()

	metrics.ObserveAPIRequest(op, resp.StatusCode, false)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: platformMessage(resp)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Op: op, StatusCode: resp.StatusCode, Message: "decode response"}
		}
	}
	return nil
}

// platformMessage extracts DevLake's error message field from a failure
// response, falling back to the HTTP status text.
func platformMessage(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return body.Message
	}
	return http.StatusText(resp.StatusCode)
}

// CreateConnectionParams holds the createConnection request fields. Token is
// the user's personal access token; it exists only for the duration of this
// one call.
type CreateConnectionParams struct {
	Name          string `json:"name"`
	Endpoint      string `json:"endpoint"`
	AuthMethod    string `json:"authMethod"`
	Token         string `json:"token"`
	EnableGraphql bool   `json:"enableGraphql"`
}

// CreateConnection creates a source host connection and returns its id.
func (c *Client) CreateConnection(ctx context.Context, provider string, params CreateConnectionParams) (int64, error) {
	if params.AuthMethod == "" {
		params.AuthMethod = "AccessToken"
	}
	var out struct {
		ID int64 `json:"id"`
	}
	path := fmt.Sprintf("/api/plugins/%s/connections", provider)
	if err := c.do(ctx, model.StepCreateConnection, http.MethodPost, path, params, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// AddScope attaches one repository to a connection and returns the platform's
// numeric repository id (githubId or gitlabId depending on provider).
func (c *Client) AddScope(ctx context.Context, provider string, connectionID int64, fullName string) (int64, error) {
	body := struct {
		Data []map[string]string `json:"data"`
	}{
		Data: []map[string]string{{"fullName": fullName}},
	}

	var out struct {
		Scopes []struct {
			Scope struct {
				GithubID int64 `json:"githubId"`
				GitlabID int64 `json:"gitlabId"`
			} `json:"scope"`
		} `json:"scopes"`
	}

	path := fmt.Sprintf("/api/plugins/%s/connections/%d/scopes", provider, connectionID)
	if err := c.do(ctx, model.StepAddScope, http.MethodPut, path, body, &out); err != nil {
		return 0, err
	}

	if len(out.Scopes) == 0 {
		return 0, &Error{Op: model.StepAddScope, Message: "repository not found or not accessible"}
	}
	id := out.Scopes[0].Scope.GithubID
	if provider == model.ProviderGitLab {
		id = out.Scopes[0].Scope.GitlabID
	}
	if id == 0 {
		return 0, &Error{Op: model.StepAddScope, Message: "repository not found or not accessible"}
	}
	return id, nil
}

// CreateProjectParams holds everything needed to compose the createProject
// payload: the project, its blueprint, and the single plugin invocation
// referencing the connection and repository.
type CreateProjectParams struct {
	ProjectName  string
	Provider     string
	ConnectionID int64
	RepositoryID int64
	CronConfig   string
}

type projectMetric struct {
	PluginName string `json:"pluginName"`
	Enable     bool   `json:"enable"`
}

type pluginInvocation struct {
	Plugin  string         `json:"plugin"`
	Options map[string]any `json:"options"`
}

type blueprintPayload struct {
	Name        string               `json:"name"`
	ProjectName string               `json:"projectName"`
	Mode        string               `json:"mode"`
	Enable      bool                 `json:"enable"`
	CronConfig  string               `json:"cronConfig"`
	Plan        [][]pluginInvocation `json:"plan"`
}

type projectPayload struct {
	Name      string           `json:"name"`
	Enable    bool             `json:"enable"`
	Metrics   []projectMetric  `json:"metrics"`
	Blueprint blueprintPayload `json:"blueprint"`
}

// CreateProject creates a project with its blueprint and returns the
// blueprint id. The cron expression is passed through exactly as given.
func (c *Client) CreateProject(ctx context.Context, params CreateProjectParams) (int64, error) {
	idKey := "githubId"
	if params.Provider == model.ProviderGitLab {
		idKey = "gitlabId"
	}

	body := projectPayload{
		Name:   params.ProjectName,
		Enable: true,
		Metrics: []projectMetric{
			{PluginName: "dora", Enable: true},
			{PluginName: "issue_trace", Enable: true},
		},
		Blueprint: blueprintPayload{
			Name:        params.ProjectName + "-Blueprint",
			ProjectName: params.ProjectName,
			Mode:        "NORMAL",
			Enable:      true,
			CronConfig:  params.CronConfig,
			Plan: [][]pluginInvocation{{{
				Plugin: params.Provider,
				Options: map[string]any{
					"connectionId": params.ConnectionID,
					idKey:          params.RepositoryID,
				},
			}}},
		},
	}

	var out struct {
		Blueprint struct {
			ID int64 `json:"id"`
		} `json:"blueprint"`
	}
	if err := c.do(ctx, model.StepCreateProject, http.MethodPost, "/api/projects", body, &out); err != nil {
		return 0, err
	}
	return out.Blueprint.ID, nil
}

// TriggerBlueprint starts one pipeline run of a blueprint. DevLake versions
// differ on the id field name, so both pipelineId and id are accepted.
func (c *Client) TriggerBlueprint(ctx context.Context, blueprintID int64) (*model.PipelineRun, error) {
	var out struct {
		ID         int64  `json:"id"`
		PipelineID int64  `json:"pipelineId"`
		Status     string `json:"status"`
	}
	path := fmt.Sprintf("/api/blueprints/%d/trigger", blueprintID)
	if err := c.do(ctx, model.StepTriggerPipeline, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	run := &model.PipelineRun{ID: out.PipelineID, Status: out.Status}
	if run.ID == 0 {
		run.ID = out.ID
	}
	return run, nil
}

// ListProjects fetches one page of projects and the total project count.
func (c *Client) ListProjects(ctx context.Context, page, pageSize int) ([]model.ProjectSummary, int, error) {
	var out struct {
		Projects []struct {
			Name      string `json:"name"`
			Blueprint *struct {
				Name string `json:"name"`
			} `json:"blueprint"`
		} `json:"projects"`
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/api/projects?page=%d&pageSize=%d", page, pageSize)
	if err := c.do(ctx, "listProjects", http.MethodGet, path, nil, &out); err != nil {
		return nil, 0, err
	}

	items := make([]model.ProjectSummary, 0, len(out.Projects))
	for _, p := range out.Projects {
		summary := model.ProjectSummary{Name: p.Name}
		if p.Blueprint != nil {
			summary.BlueprintName = p.Blueprint.Name
		}
		items = append(items, summary)
	}
	return items, out.Count, nil
}

// ListConnections lists the existing connections for a provider.
func (c *Client) ListConnections(ctx context.Context, provider string) ([]model.Connection, error) {
	var out []model.Connection
	path := fmt.Sprintf("/api/plugins/%s/connections", provider)
	if err := c.do(ctx, "listConnections", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProjectBlueprintID looks up a project by name and returns its blueprint id.
func (c *Client) GetProjectBlueprintID(ctx context.Context, projectName string) (int64, error) {
	var out struct {
		Blueprint struct {
			ID int64 `json:"id"`
		} `json:"blueprint"`
	}
	path := "/api/projects/" + url.PathEscape(projectName)
	if err := c.do(ctx, "getProject", http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Blueprint.ID, nil
}

// GetBlueprint fetches a blueprint with its connection entries.
func (c *Client) GetBlueprint(ctx context.Context, blueprintID int64) (*model.Blueprint, error) {
	var out model.Blueprint
	path := fmt.Sprintf("/api/blueprints/%d", blueprintID)
	if err := c.do(ctx, "getBlueprint", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBlueprintConnections replaces a blueprint's connection entries,
// linking scopes to the project.
func (c *Client) UpdateBlueprintConnections(ctx context.Context, blueprintID int64, connections []model.BlueprintConnection) error {
	body := struct {
		Connections []model.BlueprintConnection `json:"connections"`
	}{Connections: connections}
	path := fmt.Sprintf("/api/blueprints/%d", blueprintID)
	return c.do(ctx, model.StepLinkScopes, http.MethodPatch, path, body, nil)
}

// Ping performs a minimal listing call, used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.ListProjects(ctx, 1, 1)
	return err
}
