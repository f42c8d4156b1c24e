package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/devlake-bot/internal/activity"
	"github.com/edvin/devlake-bot/internal/model"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized correctly
// by the Temporal test framework. All activities are mocked via OnActivity,
// but the framework still needs the type information.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.DevLake{})
}

// ---------- ProvisionProjectWorkflow ----------

type ProvisionProjectWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ProvisionProjectWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *ProvisionProjectWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *ProvisionProjectWorkflowTestSuite) params() model.ProvisionParams {
	return model.ProvisionParams{
		ProjectName:  "payments",
		Provider:     model.ProviderGitHub,
		RepoFullName: "acme/payments",
		CronConfig:   "0 0 * * *",
		TokenRef:     "ref-1",
	}
}

func (s *ProvisionProjectWorkflowTestSuite) TestSuccess() {
	s.env.OnActivity("CreateConnection", mock.Anything, activity.CreateConnectionParams{
		Name:     "payments-github",
		Provider: model.ProviderGitHub,
		TokenRef: "ref-1",
	}).Return(int64(7), nil)
	s.env.OnActivity("AddScope", mock.Anything, activity.AddScopeParams{
		Provider:     model.ProviderGitHub,
		ConnectionID: 7,
		FullName:     "acme/payments",
	}).Return(int64(991), nil)
	s.env.OnActivity("CreateProject", mock.Anything, activity.CreateProjectParams{
		ProjectName:  "payments",
		Provider:     model.ProviderGitHub,
		ConnectionID: 7,
		RepositoryID: 991,
		CronConfig:   "0 0 * * *",
	}).Return(int64(12), nil)
	s.env.OnActivity("TriggerPipeline", mock.Anything, activity.TriggerPipelineParams{
		BlueprintID: 12,
	}).Return(&model.PipelineRun{ID: 55, Status: model.PipelineCreated}, nil)

	s.env.ExecuteWorkflow(ProvisionProjectWorkflow, s.params())
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result model.ProvisionResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Equal("payments", result.ProjectName)
	s.Equal(int64(7), result.ConnectionID)
	s.Equal(int64(991), result.RepositoryID)
	s.Equal(int64(12), result.BlueprintID)
	s.Equal(int64(55), result.PipelineID)
	s.Equal(model.PipelineCreated, result.PipelineStatus)
}

func (s *ProvisionProjectWorkflowTestSuite) TestAddScopeFails_StopsSaga() {
	s.env.OnActivity("CreateConnection", mock.Anything, mock.Anything).Return(int64(7), nil)
	s.env.OnActivity("AddScope", mock.Anything, mock.Anything).Return(int64(0),
		temporal.NewNonRetryableApplicationError("repository not found or not accessible", "AddScope", nil, model.StepFailure{
			Step:       model.StepAddScope,
			StatusCode: 422,
			Message:    "repository not found or not accessible",
		}))

	s.env.ExecuteWorkflow(ProvisionProjectWorkflow, s.params())
	s.True(s.env.IsWorkflowCompleted())

	err := s.env.GetWorkflowError()
	s.Error(err)

	var appErr *temporal.ApplicationError
	s.True(errors.As(err, &appErr))
	s.Equal(model.StepAddScope, appErr.Type())

	var failure model.ProvisionFailure
	s.NoError(appErr.Details(&failure))
	s.Equal(model.StepAddScope, failure.Step)
	s.Equal(422, failure.StatusCode)
	s.Equal("repository not found or not accessible", failure.Message)
	s.Len(failure.Created, 1)
	s.Equal("connection", failure.Created[0].Kind)
	s.Equal(int64(7), failure.Created[0].ID)

	s.env.AssertNotCalled(s.T(), "CreateProject", mock.Anything, mock.Anything)
	s.env.AssertNotCalled(s.T(), "TriggerPipeline", mock.Anything, mock.Anything)
}

func (s *ProvisionProjectWorkflowTestSuite) TestCreateConnectionFails_NothingCreated() {
	s.env.OnActivity("CreateConnection", mock.Anything, mock.Anything).Return(int64(0),
		temporal.NewNonRetryableApplicationError("authentication failed", "CreateConnection", nil, model.StepFailure{
			Step:       model.StepCreateConnection,
			StatusCode: 401,
			Message:    "authentication failed",
		}))

	s.env.ExecuteWorkflow(ProvisionProjectWorkflow, s.params())
	s.True(s.env.IsWorkflowCompleted())

	err := s.env.GetWorkflowError()
	s.Error(err)

	var appErr *temporal.ApplicationError
	s.True(errors.As(err, &appErr))
	s.Equal(model.StepCreateConnection, appErr.Type())

	var failure model.ProvisionFailure
	s.NoError(appErr.Details(&failure))
	s.Equal(401, failure.StatusCode)
	s.Empty(failure.Created)

	s.env.AssertNotCalled(s.T(), "AddScope", mock.Anything, mock.Anything)
}

func (s *ProvisionProjectWorkflowTestSuite) TestTriggerPipelineFails_ReportsAllCreated() {
	s.env.OnActivity("CreateConnection", mock.Anything, mock.Anything).Return(int64(7), nil)
	s.env.OnActivity("AddScope", mock.Anything, mock.Anything).Return(int64(991), nil)
	s.env.OnActivity("CreateProject", mock.Anything, mock.Anything).Return(int64(12), nil)
	s.env.OnActivity("TriggerPipeline", mock.Anything, mock.Anything).Return((*model.PipelineRun)(nil),
		temporal.NewNonRetryableApplicationError("internal error", "TriggerPipeline", nil, model.StepFailure{
			Step:       model.StepTriggerPipeline,
			StatusCode: 500,
			Message:    "internal error",
		}))

	s.env.ExecuteWorkflow(ProvisionProjectWorkflow, s.params())
	s.True(s.env.IsWorkflowCompleted())

	err := s.env.GetWorkflowError()
	s.Error(err)

	var appErr *temporal.ApplicationError
	s.True(errors.As(err, &appErr))
	s.Equal(model.StepTriggerPipeline, appErr.Type())

	var failure model.ProvisionFailure
	s.NoError(appErr.Details(&failure))
	s.Len(failure.Created, 3)
	s.Equal("connection", failure.Created[0].Kind)
	s.Equal("scope", failure.Created[1].Kind)
	s.Equal("blueprint", failure.Created[2].Kind)
	s.Equal("payments-Blueprint", failure.Created[2].Name)
}

func (s *ProvisionProjectWorkflowTestSuite) TestUntypedFailure_StillStepTyped() {
	s.env.OnActivity("CreateConnection", mock.Anything, mock.Anything).Return(int64(0),
		errors.New("boom"))

	s.env.ExecuteWorkflow(ProvisionProjectWorkflow, s.params())
	s.True(s.env.IsWorkflowCompleted())

	err := s.env.GetWorkflowError()
	s.Error(err)

	var appErr *temporal.ApplicationError
	s.True(errors.As(err, &appErr))
	s.Equal(model.StepCreateConnection, appErr.Type())
}

func TestProvisionProjectWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(ProvisionProjectWorkflowTestSuite))
}

// ---------- AddScopesWorkflow ----------

type AddScopesWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *AddScopesWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *AddScopesWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *AddScopesWorkflowTestSuite) TestAllAddedAndLinked() {
	s.env.OnActivity("AddScope", mock.Anything, activity.AddScopeParams{
		Provider: model.ProviderGitHub, ConnectionID: 7, FullName: "acme/api",
	}).Return(int64(1), nil)
	s.env.OnActivity("AddScope", mock.Anything, activity.AddScopeParams{
		Provider: model.ProviderGitHub, ConnectionID: 7, FullName: "acme/web",
	}).Return(int64(2), nil)
	s.env.OnActivity("LinkScopes", mock.Anything, activity.LinkScopesParams{
		ProjectName:   "payments",
		Provider:      model.ProviderGitHub,
		ConnectionID:  7,
		RepositoryIDs: []int64{1, 2},
	}).Return(nil)

	s.env.ExecuteWorkflow(AddScopesWorkflow, model.AddScopesParams{
		ProjectName:  "payments",
		Provider:     model.ProviderGitHub,
		ConnectionID: 7,
		Repos:        []string{"acme/api", "acme/web"},
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result model.AddScopesResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Len(result.Added, 2)
	s.Empty(result.Failed)
	s.True(result.Linked)
}

func (s *AddScopesWorkflowTestSuite) TestPartialFailure_ContinuesAndLinks() {
	s.env.OnActivity("AddScope", mock.Anything, activity.AddScopeParams{
		Provider: model.ProviderGitHub, ConnectionID: 7, FullName: "acme/api",
	}).Return(int64(0),
		temporal.NewNonRetryableApplicationError("repository not found or not accessible", "AddScope", nil, model.StepFailure{
			Step:       model.StepAddScope,
			StatusCode: 422,
			Message:    "repository not found or not accessible",
		}))
	s.env.OnActivity("AddScope", mock.Anything, activity.AddScopeParams{
		Provider: model.ProviderGitHub, ConnectionID: 7, FullName: "acme/web",
	}).Return(int64(2), nil)
	s.env.OnActivity("LinkScopes", mock.Anything, activity.LinkScopesParams{
		ProjectName:   "payments",
		Provider:      model.ProviderGitHub,
		ConnectionID:  7,
		RepositoryIDs: []int64{2},
	}).Return(nil)

	s.env.ExecuteWorkflow(AddScopesWorkflow, model.AddScopesParams{
		ProjectName:  "payments",
		Provider:     model.ProviderGitHub,
		ConnectionID: 7,
		Repos:        []string{"acme/api", "acme/web"},
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result model.AddScopesResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Len(result.Added, 1)
	s.Len(result.Failed, 1)
	s.Equal("acme/api", result.Failed[0].FullName)
	s.Equal("repository not found or not accessible", result.Failed[0].Message)
	s.True(result.Linked)
}

func (s *AddScopesWorkflowTestSuite) TestAllFail_NoLink() {
	s.env.OnActivity("AddScope", mock.Anything, mock.Anything).Return(int64(0),
		temporal.NewNonRetryableApplicationError("repository not found or not accessible", "AddScope", nil))

	s.env.ExecuteWorkflow(AddScopesWorkflow, model.AddScopesParams{
		ProjectName:  "payments",
		Provider:     model.ProviderGitHub,
		ConnectionID: 7,
		Repos:        []string{"acme/api"},
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result model.AddScopesResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Empty(result.Added)
	s.Len(result.Failed, 1)
	s.False(result.Linked)

	s.env.AssertNotCalled(s.T(), "LinkScopes", mock.Anything, mock.Anything)
}

func (s *AddScopesWorkflowTestSuite) TestLinkFails_ReportedNotFatal() {
	s.env.OnActivity("AddScope", mock.Anything, mock.Anything).Return(int64(2), nil)
	s.env.OnActivity("LinkScopes", mock.Anything, mock.Anything).Return(
		temporal.NewNonRetryableApplicationError("blueprint not found", "LinkScopes", nil, model.StepFailure{
			Step:       model.StepLinkScopes,
			StatusCode: 404,
			Message:    "blueprint not found",
		}))

	s.env.ExecuteWorkflow(AddScopesWorkflow, model.AddScopesParams{
		ProjectName:  "payments",
		Provider:     model.ProviderGitHub,
		ConnectionID: 7,
		Repos:        []string{"acme/web"},
	})
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())

	var result model.AddScopesResult
	s.NoError(s.env.GetWorkflowResult(&result))
	s.Len(result.Added, 1)
	s.False(result.Linked)
	s.Equal("blueprint not found", result.LinkMessage)
}

func TestAddScopesWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(AddScopesWorkflowTestSuite))
}
