package arbiter

import (
	"fmt"
	"strings"

	"github.com/gleehq/glee/internal/models"
)

// BuildDraftPrompt generates the coder prompt for one iteration. After the
// first iteration it carries the items the coder must apply.
func BuildDraftPrompt(task string, iteration int, rework []models.ReviewItem) string {
	var b strings.Builder

	b.WriteString("You are a coding agent. Implement the task below in the current working directory, then summarize what you changed.\n\n")
	b.WriteString("## Task\n")
	b.WriteString(task)
	b.WriteString("\n")

	if iteration > 0 && len(rework) > 0 {
		b.WriteString("\n## Review feedback to apply\n")
		b.WriteString("The previous draft was reviewed. Apply every item below before summarizing:\n\n")
		for _, it := range rework {
			fmt.Fprintf(&b, "- [%s] %s (%s)\n", it.Severity, it.Text, it.ID)
		}
	}

	b.WriteString("\nEnd with a short summary of the changes you made.\n")
	return b.String()
}

// BuildReviewerPrompt generates the reviewer prompt. Reviewers must emit one
// line per concern, prefixed with exactly one severity tag, because that is
// the wire format the classifier parses.
func BuildReviewerPrompt(task, draft string, focus []string) string {
	var b strings.Builder

	b.WriteString("You are a code review agent. Review the work described below against the current working directory.\n\n")
	b.WriteString("## Task under review\n")
	b.WriteString(task)
	b.WriteString("\n\n## Coder's summary of changes\n")
	b.WriteString(draft)
	b.WriteString("\n\n")

	if len(focus) > 0 {
		fmt.Fprintf(&b, "Focus on: %s.\n\n", strings.Join(focus, ", "))
	}

	b.WriteString("## Output format\n")
	b.WriteString("Report one concern per line, each prefixed with exactly one tag:\n")
	b.WriteString("- [MUST] non-negotiable recommendation\n")
	b.WriteString("- [SHOULD] recommendation worth considering\n")
	b.WriteString("- [HIGH] serious defect\n")
	b.WriteString("- [MEDIUM] moderate defect\n")
	b.WriteString("- [LOW] minor defect\n\n")
	b.WriteString("Continuation lines without a tag belong to the previous concern.\n")
	b.WriteString("If the work is clean, output nothing.\n")
	return b.String()
}

// BuildResponsePrompt asks the coder to accept or reject each review item.
func BuildResponsePrompt(items []models.ReviewItem) string {
	var b strings.Builder

	b.WriteString("You are the coder. Reviewers raised the items below against your draft. ")
	b.WriteString("For each item respond with one line: either `ACCEPT <id>` or `REJECT <id>: <reason>`.\n")
	b.WriteString("Accepting means you will apply the item in the next draft. Rejecting a MUST or HIGH item opens a dispute, so give a concrete reason.\n\n")
	b.WriteString("## Review items\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s [%s] %s\n", it.ID, it.Severity, it.Text)
	}
	b.WriteString("\nRespond with one ACCEPT/REJECT line per item and nothing else.\n")
	return b.String()
}

// BuildJudgePrompt generates the judge prompt for one dispute. The judge must
// answer with a single decision token.
func BuildJudgePrompt(d *models.Dispute, code string) string {
	var b strings.Builder

	b.WriteString("You are the arbitration judge for a code review dispute. A reviewer raised a mandatory item and the coder rejected it. Decide who is right.\n\n")
	b.WriteString("## Code under review\n")
	b.WriteString(code)
	b.WriteString("\n\n## Disputed item\n")
	fmt.Fprintf(&b, "[%s] %s (from %s)\n", d.Item.Severity, d.Item.Text, d.Item.SourceReviewer)
	b.WriteString("\n## Coder's objection\n")
	b.WriteString(d.CoderObjection)
	b.WriteString("\n\n## Verdict\n")
	b.WriteString("Answer with exactly one token:\n")
	b.WriteString("- ENFORCE  the reviewer is right, the item must be applied\n")
	b.WriteString("- DISMISS  the coder is right, the item is dropped\n")
	b.WriteString("- ESCALATE you cannot decide, hand off to a human\n")
	return b.String()
}
