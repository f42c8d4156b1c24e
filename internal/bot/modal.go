package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"github.com/edvin/devlake-bot/internal/model"
)

// Modal callback and block identifiers. Block IDs double as the keys for
// inline validation errors in the view_submission ack.
const (
	createProjectCallbackID = "create_project_modal"
	addReposCallbackID      = "add_repos_modal"

	blockProjectName = "project_name"
	blockProvider    = "provider"
	blockToken       = "token"
	blockRepo        = "repo"
	blockSchedule    = "schedule"
	blockProject     = "project"
	blockConnection  = "connection"
	blockRepos       = "repos"

	actionValue = "value"
)

// scheduleOption maps a human schedule choice to its cron expression.
type scheduleOption struct {
	Value string
	Label string
	Cron  string
}

var scheduleOptions = []scheduleOption{
	{Value: "daily", Label: "Daily at midnight", Cron: "0 0 * * *"},
	{Value: "weekly", Label: "Weekly on Monday", Cron: "0 0 * * 1"},
	{Value: "every_6h", Label: "Every 6 hours", Cron: "0 */6 * * *"},
	{Value: "every_12h", Label: "Every 12 hours", Cron: "0 */12 * * *"},
}

func cronForSchedule(value string) string {
	for _, opt := range scheduleOptions {
		if opt.Value == value {
			return opt.Cron
		}
	}
	return ""
}

func plainText(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, s, false, false)
}

func providerOptions() []*slack.OptionBlockObject {
	return []*slack.OptionBlockObject{
		slack.NewOptionBlockObject(model.ProviderGitHub, plainText("GitHub"), nil),
		slack.NewOptionBlockObject(model.ProviderGitLab, plainText("GitLab"), nil),
	}
}

// createProjectModal builds the project provisioning form. The token input is
// a plain input block like any other; its value only ever exists in the
// submitted view payload and in the vault.
func createProjectModal() slack.ModalViewRequest {
	nameInput := slack.NewPlainTextInputBlockElement(plainText("e.g. payments"), actionValue)
	tokenInput := slack.NewPlainTextInputBlockElement(plainText("Personal access token"), actionValue)
	repoInput := slack.NewPlainTextInputBlockElement(plainText("owner/repo"), actionValue)

	providerSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("Select provider"), actionValue, providerOptions()...)

	scheduleOpts := make([]*slack.OptionBlockObject, 0, len(scheduleOptions))
	for _, opt := range scheduleOptions {
		scheduleOpts = append(scheduleOpts, slack.NewOptionBlockObject(opt.Value, plainText(opt.Label), nil))
	}
	scheduleSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("Select collection schedule"), actionValue, scheduleOpts...)

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: createProjectCallbackID,
		Title:      plainText("Create DevLake project"),
		Submit:     plainText("Create"),
		Close:      plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(blockProjectName, plainText("Project name"), nil, nameInput),
			slack.NewInputBlock(blockProvider, plainText("Git provider"), nil, providerSelect),
			slack.NewInputBlock(blockToken, plainText("Access token"),
				plainText("Used once to create the connection, never stored."), tokenInput),
			slack.NewInputBlock(blockRepo, plainText("Repository"), nil, repoInput),
			slack.NewInputBlock(blockSchedule, plainText("Collection schedule"), nil, scheduleSelect),
		}},
	}
}

// addReposModal builds the add-repositories form. Projects and connections
// are prefetched so both selects are populated from live platform state.
// Connection option values carry "provider:id" so a single select resolves
// both fields on submit.
func addReposModal(projects []model.ProjectSummary, connections map[string][]model.Connection) slack.ModalViewRequest {
	projectOpts := make([]*slack.OptionBlockObject, 0, len(projects))
	for _, p := range projects {
		projectOpts = append(projectOpts, slack.NewOptionBlockObject(p.Name, plainText(p.Name), nil))
	}
	projectSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("Select project"), actionValue, projectOpts...)

	var connOpts []*slack.OptionBlockObject
	for _, provider := range []string{model.ProviderGitHub, model.ProviderGitLab} {
		for _, conn := range connections[provider] {
			value := fmt.Sprintf("%s:%d", provider, conn.ID)
			label := fmt.Sprintf("%s (%s)", conn.Name, provider)
			connOpts = append(connOpts, slack.NewOptionBlockObject(value, plainText(label), nil))
		}
	}
	connSelect := slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic, plainText("Select connection"), actionValue, connOpts...)

	reposInput := slack.NewPlainTextInputBlockElement(plainText("owner/repo, one per line"), actionValue)
	reposInput.Multiline = true

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: addReposCallbackID,
		Title:      plainText("Add repositories"),
		Submit:     plainText("Add"),
		Close:      plainText("Cancel"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(blockProject, plainText("Project"), nil, projectSelect),
			slack.NewInputBlock(blockConnection, plainText("Connection"), nil, connSelect),
			slack.NewInputBlock(blockRepos, plainText("Repositories"), nil, reposInput),
		}},
	}
}

func viewValue(view slack.View, blockID string) string {
	block, ok := view.State.Values[blockID]
	if !ok {
		return ""
	}
	v := block[actionValue]
	if v.SelectedOption.Value != "" {
		return v.SelectedOption.Value
	}
	return v.Value
}

// parseCreateProjectView extracts the create-project form fields from a
// submitted view. The schedule select value is resolved to its cron
// expression here so validation sees the final cron string.
func parseCreateProjectView(view slack.View) createProjectInput {
	return createProjectInput{
		ProjectName: strings.TrimSpace(viewValue(view, blockProjectName)),
		Provider:    viewValue(view, blockProvider),
		Token:       viewValue(view, blockToken),
		Repo:        strings.TrimSpace(viewValue(view, blockRepo)),
		CronConfig:  cronForSchedule(viewValue(view, blockSchedule)),
	}
}

// parseAddReposView extracts the add-repositories form fields, splitting the
// connection value back into provider and connection ID.
func parseAddReposView(view slack.View) addReposInput {
	input := addReposInput{
		ProjectName: viewValue(view, blockProject),
		Repos:       splitRepoLines(viewValue(view, blockRepos)),
	}
	provider, id, ok := strings.Cut(viewValue(view, blockConnection), ":")
	if !ok {
		return input
	}
	input.Provider = provider
	input.ConnectionID, _ = strconv.ParseInt(id, 10, 64)
	return input
}
