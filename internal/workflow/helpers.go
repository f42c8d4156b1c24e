package workflow

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/edvin/devlake-bot/internal/model"
)

// stepFailed converts an activity failure into the workflow's terminal error.
// The error type carries the step name and the details payload records the
// HTTP status, the platform message and every resource created before the
// failure, so callers can render an exact partial-success report.
func stepFailed(step string, err error, created []model.CreatedResource) error {
	failure := model.ProvisionFailure{
		Step:    step,
		Message: err.Error(),
		Created: created,
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		failure.Message = appErr.Message()
		if appErr.HasDetails() {
			var sf model.StepFailure
			if derr := appErr.Details(&sf); derr == nil {
				failure.StatusCode = sf.StatusCode
				if sf.Message != "" {
					failure.Message = sf.Message
				}
			}
		}
	}

	return temporal.NewApplicationError(failure.Message, step, failure)
}

// sanitizedMessage extracts the platform-derived message from an activity
// error. Only the typed message travels to the user; raw error chains stay in
// worker logs.
func sanitizedMessage(err error) string {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	if appErr.HasDetails() {
		var sf model.StepFailure
		if derr := appErr.Details(&sf); derr == nil && sf.Message != "" {
			return sf.Message
		}
	}
	return appErr.Message()
}
