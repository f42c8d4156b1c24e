package bot

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = validator.New()

var (
	projectNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]{0,99}$`)
	repoPathRegex    = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)
)

func init() {
	validate.RegisterValidation("project_name", func(fl validator.FieldLevel) bool {
		return projectNameRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("repo_path", func(fl validator.FieldLevel) bool {
		return repoPathRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("cron_5", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
}

// createProjectInput is the validated shape of the create-project modal.
// The token is required but deliberately not validated beyond presence; its
// value is handed to the vault untouched and never inspected.
type createProjectInput struct {
	ProjectName string `validate:"required,project_name"`
	Provider    string `validate:"required,oneof=github gitlab"`
	Token       string `validate:"required"`
	Repo        string `validate:"required,repo_path"`
	CronConfig  string `validate:"required,cron_5"`
}

// addReposInput is the validated shape of the add-repositories modal.
type addReposInput struct {
	ProjectName  string   `validate:"required"`
	Provider     string   `validate:"required,oneof=github gitlab"`
	ConnectionID int64    `validate:"required,gt=0"`
	Repos        []string `validate:"required,min=1,dive,repo_path"`
}

// validationErrors maps validator failures to the modal block IDs so Slack can
// render them inline under the offending input. Returns nil when the input is
// valid.
func validationErrors(err error, blockByField map[string]string) map[string]string {
	if err == nil {
		return nil
	}
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out[blockByField["ProjectName"]] = "invalid input"
		return out
	}
	for _, fe := range verrs {
		field := fe.StructField()
		block, ok := blockByField[field]
		if !ok {
			continue
		}
		out[block] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return "this field is required"
	case "project_name":
		return "use letters, digits, dots, dashes or underscores, starting with a letter"
	case "repo_path":
		return "use the owner/repo form, e.g. acme/payments"
	case "cron_5":
		return "use a standard 5-field cron expression, e.g. 0 0 * * *"
	case "oneof":
		return "choose one of the offered options"
	case "gt":
		return "pick a connection"
	default:
		return "invalid value"
	}
}

// splitRepoLines parses the multiline repositories input, one owner/repo per
// line, skipping blanks and trimming whitespace.
func splitRepoLines(raw string) []string {
	var repos []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		repos = append(repos, line)
	}
	return repos
}
