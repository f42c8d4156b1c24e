package bot

import (
	"fmt"
	"strings"

	"github.com/edvin/devlake-bot/internal/model"
)

func helpText(dashboardURL string) string {
	var b strings.Builder
	b.WriteString("*DevLake bot*\n")
	b.WriteString("• `/devlake-create-project` opens the project creation form\n")
	b.WriteString("• `/devlake-add-repos` attaches repositories to an existing project\n")
	b.WriteString("• `/devlake-list-projects` shows projects page by page\n")
	b.WriteString("• `/devlake-list-all` shows every project at once\n")
	b.WriteString("• `/devlake-requirements` explains what the access token needs\n")
	fmt.Fprintf(&b, "Dashboards: %s", dashboardURL)
	return b.String()
}

func requirementsText() string {
	return strings.Join([]string{
		"*Access token requirements*",
		"• GitHub: a classic personal access token with `repo` and `read:org` scopes, or a fine-grained token with read access to the repositories you want to collect.",
		"• GitLab: a personal access token with `read_api` scope.",
		"The token is used exactly once to create the connection and is never stored or logged.",
	}, "\n")
}

// formatProvisionSuccess is the public channel announcement for a completed
// provisioning run.
func formatProvisionSuccess(result *model.ProvisionResult, dashboardURL string) string {
	return fmt.Sprintf(
		":white_check_mark: Project *%s* is set up. Pipeline %d is %s; first results will appear at %s once collection finishes.",
		result.ProjectName, result.PipelineID, pipelineStatusLabel(result.PipelineStatus), dashboardURL)
}

func pipelineStatusLabel(status string) string {
	switch status {
	case model.PipelineCreated:
		return "queued"
	case model.PipelineRunning:
		return "running"
	case model.PipelineCompleted:
		return "completed"
	case model.PipelineFailed:
		return "failed"
	default:
		return strings.ToLower(status)
	}
}

// formatProvisionFailure renders a failure report from the typed workflow
// error details. Only the platform-derived message is shown; resources that
// were created before the failure are listed so the user knows what to clean
// up or reuse.
func formatProvisionFailure(failure model.ProvisionFailure) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":x: Project setup failed at the *%s* step", stepLabel(failure.Step))
	if failure.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", failure.StatusCode)
	}
	if failure.Message != "" {
		fmt.Fprintf(&b, ": %s", failure.Message)
	}
	if len(failure.Created) == 0 {
		b.WriteString("\nNothing was created.")
		return b.String()
	}
	b.WriteString("\nCreated before the failure:")
	for _, res := range failure.Created {
		fmt.Fprintf(&b, "\n• %s *%s* (id %d)", res.Kind, res.Name, res.ID)
	}
	return b.String()
}

func stepLabel(step string) string {
	switch step {
	case model.StepCreateConnection:
		return "create connection"
	case model.StepAddScope:
		return "add repository"
	case model.StepCreateProject:
		return "create project"
	case model.StepTriggerPipeline:
		return "trigger pipeline"
	case model.StepLinkScopes:
		return "link repositories"
	default:
		return step
	}
}

// formatAddScopesResult reports per-repository outcomes of an add-repos run.
func formatAddScopesResult(projectName string, result *model.AddScopesResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repositories for *%s*:", projectName)
	for _, added := range result.Added {
		fmt.Fprintf(&b, "\n:white_check_mark: %s", added.FullName)
	}
	for _, failed := range result.Failed {
		fmt.Fprintf(&b, "\n:x: %s: %s", failed.FullName, failed.Message)
	}
	if len(result.Added) > 0 && !result.Linked {
		msg := result.LinkMessage
		if msg == "" {
			msg = "unknown error"
		}
		fmt.Fprintf(&b, "\n:warning: Repositories were added to the connection but linking them to the project failed: %s", msg)
	}
	return b.String()
}
