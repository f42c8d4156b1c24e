package bot

import (
	"fmt"
	"strconv"

	"github.com/slack-go/slack"

	"github.com/edvin/devlake-bot/internal/model"
)

const (
	actionProjectsPrev = "projects_prev"
	actionProjectsNext = "projects_next"
)

// projectPageBlocks renders one page of projects with Previous / Show More
// buttons. Button values carry the target page number computed by the listing
// engine's cursor helpers, so the action handler is stateless and the cursor
// never moves past either end.
func (b *Bot) projectPageBlocks(page *model.ProjectPage) []slack.Block {
	if page.TotalCount == 0 {
		return []slack.Block{
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, "No projects yet. Use `/devlake-create-project` to set one up.", false, false),
				nil, nil),
		}
	}

	start := (page.Cursor.Page-1)*page.Cursor.PageSize + 1
	end := start + len(page.Items) - 1

	blocks := []slack.Block{
		slack.NewHeaderBlock(plainText(fmt.Sprintf("Projects %d-%d of %d", start, end, page.TotalCount))),
	}
	for _, p := range page.Items {
		text := fmt.Sprintf("*%s*", p.Name)
		if p.BlueprintName != "" {
			text += fmt.Sprintf("\nblueprint: %s", p.BlueprintName)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil))
	}

	var buttons []slack.BlockElement
	if page.HasPrevious {
		buttons = append(buttons, slack.NewButtonBlockElement(
			actionProjectsPrev, strconv.Itoa(b.listing.Prev(page).Page), plainText("Previous")))
	}
	if page.HasNext {
		buttons = append(buttons, slack.NewButtonBlockElement(
			actionProjectsNext, strconv.Itoa(b.listing.Next(page).Page), plainText("Show More")))
	}
	if len(buttons) > 0 {
		blocks = append(blocks, slack.NewActionBlock("projects_nav", buttons...))
	}
	return blocks
}

// formatProjectList renders the full listing as plain markdown, used by
// "list all" where interactive paging is pointless.
func formatProjectList(projects []model.ProjectSummary) string {
	if len(projects) == 0 {
		return "No projects yet. Use `/devlake-create-project` to set one up."
	}
	text := fmt.Sprintf("*%d projects:*", len(projects))
	for _, p := range projects {
		text += fmt.Sprintf("\n• %s", p.Name)
	}
	return text
}
