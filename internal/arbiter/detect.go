package arbiter

import "github.com/gleehq/glee/internal/models"

// Detect inspects the coder's decision on one review item and returns a
// Dispute iff the item is mandatory and the coder rejected it. Pure; never
// mutates the item. Rejections of optional items are not disputes - the coder
// may discard those freely.
func Detect(item *models.ReviewItem, decision models.CoderDecision, objection string) *models.Dispute {
	if decision != models.DecisionReject || !item.Mandatory() {
		return nil
	}
	return &models.Dispute{
		Item:           item,
		CoderObjection: objection,
		Outcome:        models.OutcomePending,
	}
}
