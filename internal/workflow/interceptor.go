package workflow

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/devlake-bot/internal/devlake"
	"github.com/edvin/devlake-bot/internal/model"
)

// ErrorTypingInterceptor is a Temporal worker interceptor that wraps activity
// errors with the activity name as the error type. Platform API errors
// additionally get a StepFailure details payload carrying the HTTP status and
// the platform's own message, which is the only error text shown to users.
type ErrorTypingInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (e *ErrorTypingInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &errorTypingActivityInterceptor{
		ActivityInboundInterceptorBase: interceptor.ActivityInboundInterceptorBase{},
		next:                           next,
	}
}

type errorTypingActivityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next interceptor.ActivityInboundInterceptor
}

func (e *errorTypingActivityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return e.next.Init(outbound)
}

func (e *errorTypingActivityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	result, err := e.next.ExecuteActivity(ctx, in)
	if err == nil {
		return result, nil
	}

	// Don't double-wrap errors that already have a type.
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return result, err
	}

	actName := activity.GetInfo(ctx).ActivityType.Name

	var derr *devlake.Error
	if errors.As(err, &derr) {
		msg := derr.Message
		if derr.Timeout {
			msg = "request timed out"
		}
		return result, temporal.NewNonRetryableApplicationError(msg, actName, err, model.StepFailure{
			Step:       derr.Op,
			StatusCode: derr.StatusCode,
			Message:    msg,
		})
	}

	return result, temporal.NewNonRetryableApplicationError(err.Error(), actName, err)
}
