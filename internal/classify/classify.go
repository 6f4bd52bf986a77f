// Package classify parses raw reviewer output into severity-tagged review items.
package classify

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/gleehq/glee/internal/models"
)

// ErrMalformedReviewOutput signals that non-empty reviewer output contained no
// recognized severity tags. The caller decides whether to drop the output or
// degrade it to a single unclassified item (see Unclassified).
var ErrMalformedReviewOutput = errors.New("malformed review output: no severity tags found")

// severityTags maps a line-leading bracket tag to its severity, e.g. "[MUST]".
var severityTags = []models.Severity{
	models.SeverityMust,
	models.SeverityShould,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
}

// Classify parses one reviewer's raw text output into an ordered sequence of
// review items. A line starting with one of [MUST] [SHOULD] [HIGH] [MEDIUM]
// [LOW] opens a new item; untagged lines are appended to the preceding item as
// continuation text; text before the first tag is discarded as preamble.
//
// Empty (or whitespace-only) output yields no items and no error. Non-empty
// output with zero tags fails with ErrMalformedReviewOutput.
func Classify(raw, reviewer string) ([]models.ReviewItem, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var items []models.ReviewItem
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		sev, rest, ok := matchTag(line)
		if ok {
			items = append(items, models.ReviewItem{
				ID:             itemID(reviewer, len(items)),
				Kind:           sev.Kind(),
				Severity:       sev,
				Text:           strings.TrimSpace(rest),
				SourceReviewer: reviewer,
			})
			continue
		}

		// Continuation of the previous item; preamble otherwise.
		if len(items) > 0 && strings.TrimSpace(line) != "" {
			last := &items[len(items)-1]
			last.Text = last.Text + "\n" + strings.TrimSpace(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan reviewer output: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrMalformedReviewOutput
	}
	return items, nil
}

// Unclassified wraps an entire untagged reviewer response as a single
// SHOULD-level opinion so malformed output degrades instead of being lost.
func Unclassified(raw, reviewer string) models.ReviewItem {
	return models.ReviewItem{
		ID:             itemID(reviewer, 0),
		Kind:           models.KindOpinion,
		Severity:       models.SeverityShould,
		Text:           strings.TrimSpace(raw),
		SourceReviewer: reviewer,
	}
}

// matchTag checks for a recognized bracket tag at the start of the line and
// returns the severity and the text after the tag.
func matchTag(line string) (models.Severity, string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, sev := range severityTags {
		tag := "[" + string(sev) + "]"
		if strings.HasPrefix(trimmed, tag) {
			return sev, trimmed[len(tag):], true
		}
	}
	return "", "", false
}

// itemID builds an item ID unique within one cycle: reviewer names are unique
// per project and the index is per-reviewer within one classification pass.
func itemID(reviewer string, n int) string {
	return fmt.Sprintf("%s-%03d", reviewer, n+1)
}
