package models

// ItemKind is the category of a piece of reviewer feedback.
type ItemKind string

const (
	KindOpinion ItemKind = "opinion" // recommendation (MUST/SHOULD)
	KindIssue   ItemKind = "issue"   // identified defect (HIGH/MEDIUM/LOW)
)

// Severity is the reviewer-assigned weight of one feedback item.
type Severity string

const (
	SeverityMust   Severity = "MUST"
	SeverityShould Severity = "SHOULD"
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Kind returns the item kind implied by the severity.
func (s Severity) Kind() ItemKind {
	switch s {
	case SeverityMust, SeverityShould:
		return KindOpinion
	default:
		return KindIssue
	}
}

// Mandatory reports whether items of this severity cannot be silently
// discarded by the coder. Always derived from severity, never stored.
func (s Severity) Mandatory() bool {
	return s == SeverityMust || s == SeverityHigh
}

// ReviewItem is one piece of reviewer feedback, produced by the classifier
// from a reviewer's raw output. Immutable after creation.
type ReviewItem struct {
	ID             string
	Kind           ItemKind
	Severity       Severity
	Text           string
	SourceReviewer string
}

// Mandatory reports whether the coder must address this item or dispute it.
func (it ReviewItem) Mandatory() bool {
	return it.Severity.Mandatory()
}

// CoderDecision is the coder's verdict on one review item.
type CoderDecision string

const (
	DecisionAccept CoderDecision = "accept"
	DecisionReject CoderDecision = "reject"
)

// ResolutionAction is the final disposition of one review item.
type ResolutionAction string

const (
	ActionApplied   ResolutionAction = "applied"   // coder accepted and will apply
	ActionDiscarded ResolutionAction = "discarded" // dropped, legitimately
	ActionEnforced  ResolutionAction = "enforced"  // arbitration upheld the item
)

// Decider identifies who produced a resolution.
type Decider string

const (
	DecidedByCoder Decider = "coder"
	DecidedByJudge Decider = "judge"
	DecidedByHuman Decider = "human"
)

// Resolution is the terminal disposition of one ReviewItem. Every item in a
// completed cycle has exactly one.
type Resolution struct {
	ItemID    string           `json:"item_id"`
	Action    ResolutionAction `json:"action"`
	DecidedBy Decider          `json:"decided_by"`
}

// ResolutionPath selects how a dispute is arbitrated.
type ResolutionPath string

const (
	PathJudge   ResolutionPath = "judge"
	PathHuman   ResolutionPath = "human"
	PathDiscard ResolutionPath = "discard"
)

// DisputeOutcome is the arbitration verdict on a dispute.
type DisputeOutcome string

const (
	OutcomePending  DisputeOutcome = "pending"
	OutcomeEnforce  DisputeOutcome = "enforce"
	OutcomeDismiss  DisputeOutcome = "dismiss"
	OutcomeEscalate DisputeOutcome = "escalate"
)

// Dispute records a coder's rejection of a mandatory review item. It exists
// only for mandatory items and collapses into a Resolution once the outcome
// becomes terminal; a dismissed dispute is never re-opened within the cycle.
type Dispute struct {
	Item           *ReviewItem
	CoderObjection string
	Path           ResolutionPath
	Outcome        DisputeOutcome
}

// Terminal reports whether the dispute has reached a final verdict.
// Escalate is not terminal; it re-routes resolution to another path.
func (d *Dispute) Terminal() bool {
	return d.Outcome == OutcomeEnforce || d.Outcome == OutcomeDismiss
}
