package bot

import (
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/devlake-bot/internal/listing"
	"github.com/edvin/devlake-bot/internal/model"
)

func TestFormatProvisionSuccess(t *testing.T) {
	msg := formatProvisionSuccess(&model.ProvisionResult{
		ProjectName:    "payments",
		PipelineID:     55,
		PipelineStatus: model.PipelineCreated,
	}, "https://devlake.example.com")

	assert.Contains(t, msg, "payments")
	assert.Contains(t, msg, "55")
	assert.Contains(t, msg, "https://devlake.example.com")
}

func TestFormatProvisionFailureListsCreated(t *testing.T) {
	msg := formatProvisionFailure(model.ProvisionFailure{
		Step:       model.StepCreateProject,
		StatusCode: 409,
		Message:    "project already exists",
		Created: []model.CreatedResource{
			{Kind: "connection", ID: 7, Name: "payments-github"},
			{Kind: "scope", ID: 991, Name: "acme/payments"},
		},
	})

	assert.Contains(t, msg, "create project")
	assert.Contains(t, msg, "HTTP 409")
	assert.Contains(t, msg, "project already exists")
	assert.Contains(t, msg, "payments-github")
	assert.Contains(t, msg, "acme/payments")
}

func TestFormatProvisionFailureNothingCreated(t *testing.T) {
	msg := formatProvisionFailure(model.ProvisionFailure{
		Step:       model.StepCreateConnection,
		StatusCode: 401,
		Message:    "authentication failed",
	})

	assert.Contains(t, msg, "create connection")
	assert.Contains(t, msg, "Nothing was created.")
}

func TestFormatAddScopesResult(t *testing.T) {
	msg := formatAddScopesResult("payments", &model.AddScopesResult{
		Added:  []model.AddedScope{{FullName: "acme/api", RepositoryID: 1}},
		Failed: []model.ScopeFailure{{FullName: "acme/gone", Message: "repository not found or not accessible"}},
		Linked: true,
	})

	assert.Contains(t, msg, "acme/api")
	assert.Contains(t, msg, "acme/gone")
	assert.Contains(t, msg, "repository not found or not accessible")
	assert.NotContains(t, msg, "linking them to the project failed")
}

func TestFormatAddScopesResultLinkFailed(t *testing.T) {
	msg := formatAddScopesResult("payments", &model.AddScopesResult{
		Added:       []model.AddedScope{{FullName: "acme/api", RepositoryID: 1}},
		Linked:      false,
		LinkMessage: "blueprint not found",
	})

	assert.Contains(t, msg, "linking them to the project failed")
	assert.Contains(t, msg, "blueprint not found")
}

func pagingBot() *Bot {
	return &Bot{listing: listing.NewEngine(nil)}
}

func TestProjectPageBlocks(t *testing.T) {
	page := &model.ProjectPage{
		Items: []model.ProjectSummary{
			{Name: "payments", BlueprintName: "payments-Blueprint"},
			{Name: "infra"},
		},
		TotalCount:  25,
		Cursor:      model.PageCursor{Page: 2, PageSize: 10},
		HasNext:     true,
		HasPrevious: true,
	}

	blocks := pagingBot().projectPageBlocks(page)
	require.Len(t, blocks, 4)

	header, ok := blocks[0].(*slack.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "Projects 11-12 of 25", header.Text.Text)

	nav, ok := blocks[3].(*slack.ActionBlock)
	require.True(t, ok)
	require.Len(t, nav.Elements.ElementSet, 2)

	prev, ok := nav.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	require.True(t, ok)
	assert.Equal(t, actionProjectsPrev, prev.ActionID)
	assert.Equal(t, "1", prev.Value)

	next, ok := nav.Elements.ElementSet[1].(*slack.ButtonBlockElement)
	require.True(t, ok)
	assert.Equal(t, actionProjectsNext, next.ActionID)
	assert.Equal(t, "3", next.Value)
}

func TestProjectPageBlocksFirstAndLastPage(t *testing.T) {
	first := &model.ProjectPage{
		Items:      []model.ProjectSummary{{Name: "payments"}},
		TotalCount: 15,
		Cursor:     model.PageCursor{Page: 1, PageSize: 10},
		HasNext:    true,
	}
	blocks := pagingBot().projectPageBlocks(first)
	nav, ok := blocks[len(blocks)-1].(*slack.ActionBlock)
	require.True(t, ok)
	require.Len(t, nav.Elements.ElementSet, 1)
	btn := nav.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	assert.Equal(t, actionProjectsNext, btn.ActionID)

	last := &model.ProjectPage{
		Items:       []model.ProjectSummary{{Name: "zeta"}},
		TotalCount:  11,
		Cursor:      model.PageCursor{Page: 2, PageSize: 10},
		HasPrevious: true,
	}
	blocks = pagingBot().projectPageBlocks(last)
	nav, ok = blocks[len(blocks)-1].(*slack.ActionBlock)
	require.True(t, ok)
	require.Len(t, nav.Elements.ElementSet, 1)
	btn = nav.Elements.ElementSet[0].(*slack.ButtonBlockElement)
	assert.Equal(t, actionProjectsPrev, btn.ActionID)
	assert.Equal(t, "1", btn.Value)
}

func TestProjectPageBlocksEmpty(t *testing.T) {
	blocks := pagingBot().projectPageBlocks(&model.ProjectPage{Cursor: model.PageCursor{Page: 1, PageSize: 10}})
	require.Len(t, blocks, 1)
	section, ok := blocks[0].(*slack.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, "No projects yet")
}

func TestPageFromActionValue(t *testing.T) {
	assert.Equal(t, 3, pageFromActionValue("3"))
	assert.Equal(t, 1, pageFromActionValue("0"))
	assert.Equal(t, 1, pageFromActionValue("junk"))
}
