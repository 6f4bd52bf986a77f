package models

// CycleStatus is the state of one review cycle.
type CycleStatus string

const (
	CyclePending               CycleStatus = "pending"
	CycleDrafting              CycleStatus = "drafting"
	CycleReviewing             CycleStatus = "reviewing"
	CycleAwaitingCoderResponse CycleStatus = "awaiting_coder_response"
	CycleResolving             CycleStatus = "resolving"
	CycleCompleted             CycleStatus = "completed"
	CycleExhausted             CycleStatus = "exhausted"
	CycleAborted               CycleStatus = "aborted"
)

// Terminal reports whether the status is final. A cycle in a terminal state
// never transitions again.
func (s CycleStatus) Terminal() bool {
	switch s {
	case CycleCompleted, CycleExhausted, CycleAborted:
		return true
	}
	return false
}

// CycleOutcome is what the engine emits to the session recorder when a cycle
// terminates.
type CycleOutcome struct {
	IterationCount int          `json:"iteration_count"`
	Status         CycleStatus  `json:"status"`
	Resolutions    []Resolution `json:"resolutions"`
	Warnings       []string     `json:"warnings"`
}
