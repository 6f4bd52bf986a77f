package models

import "time"

// ReviewSession is one recorded review cycle outcome.
type ReviewSession struct {
	ID          string
	ProjectID   string
	Target      string
	Coder       string
	Reviewers   []string
	Status      CycleStatus
	Iterations  int
	Resolutions []Resolution
	Warnings    []string
	StartedAt   time.Time
	EndedAt     *time.Time
}

// Memory is one captured piece of project context.
type Memory struct {
	ID        string
	ProjectID string
	SessionID string
	Category  string
	Content   string
	CreatedAt time.Time
}

// AgentLog records one agent invocation: the prompt sent, what came back,
// and how long it took.
type AgentLog struct {
	ID        string
	ProjectID string
	Agent     string
	Prompt    string
	Output    string
	Error     string
	Duration  time.Duration
	Success   bool
	CreatedAt time.Time
}
