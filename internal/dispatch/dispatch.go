// Package dispatch selects which agents handle a role for a given task.
//
// Design rules:
//  1. No fallback agent - each agent has a clear specialization.
//  2. No additional reviewers during a dispute - judge/human/discard only.
//  3. Domain mismatch uses first coder - if no coder matches the requested
//     domain, the first registered coder (by priority) is used.
package dispatch

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/gleehq/glee/internal/models"
)

// Strategy is the rule for picking agents for a role.
type Strategy string

const (
	StrategyFirst      Strategy = "first"
	StrategyRandom     Strategy = "random"
	StrategyRoundRobin Strategy = "round-robin"
	StrategyAll        Strategy = "all"
)

// ErrNoCandidates is returned when no agent holds the requested role.
var ErrNoCandidates = errors.New("no candidate agents for role")

// Selector applies a dispatch strategy to a candidate list. The round-robin
// cursor and random source are owned per instance, not package globals, so
// tests can build independent selectors.
type Selector struct {
	mu      sync.Mutex
	cursors map[models.Role]int
	rng     *rand.Rand
}

// NewSelector builds a selector seeded from the current time.
func NewSelector() *Selector {
	return NewSeededSelector(time.Now().UnixNano())
}

// NewSeededSelector builds a selector with a fixed random seed for
// deterministic selection in tests.
func NewSeededSelector(seed int64) *Selector {
	return &Selector{
		cursors: make(map[models.Role]int),
		rng:     rand.New(rand.NewPCG(uint64(seed), 0)),
	}
}

// Select returns the agents that should handle the role, in invocation order.
// Candidates not holding the role are filtered out first; registration order
// is preserved for ties and for strategy "all".
func (s *Selector) Select(candidates []models.Agent, role models.Role, strategy Strategy) ([]models.Agent, error) {
	pool := filterByRole(candidates, role)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoCandidates, role)
	}

	switch strategy {
	case StrategyFirst:
		return []models.Agent{byPriority(pool)[0]}, nil

	case StrategyRandom:
		s.mu.Lock()
		pick := pool[s.rng.IntN(len(pool))]
		s.mu.Unlock()
		return []models.Agent{pick}, nil

	case StrategyRoundRobin:
		s.mu.Lock()
		idx := s.cursors[role] % len(pool)
		s.cursors[role]++
		s.mu.Unlock()
		return []models.Agent{pool[idx]}, nil

	case StrategyAll:
		out := make([]models.Agent, len(pool))
		copy(out, pool)
		return out, nil

	default:
		return nil, fmt.Errorf("unknown dispatch strategy: %s", strategy)
	}
}

// SelectCoder picks the coder for a task. A domain match wins; otherwise the
// first registered coder by priority is used (design rule #3).
func (s *Selector) SelectCoder(candidates []models.Agent, domain string) (models.Agent, error) {
	pool := filterByRole(candidates, models.RoleCoder)
	if len(pool) == 0 {
		return models.Agent{}, fmt.Errorf("%w %s", ErrNoCandidates, models.RoleCoder)
	}

	if domain != "" {
		for _, a := range pool {
			if a.HasDomain(domain) {
				return a, nil
			}
		}
	}
	return byPriority(pool)[0], nil
}

// Judge returns the configured judge. Only one judge handles disputes
// (design rule #2); extras are ignored.
func Judge(candidates []models.Agent) (models.Agent, bool) {
	pool := filterByRole(candidates, models.RoleJudge)
	if len(pool) == 0 {
		return models.Agent{}, false
	}
	return pool[0], true
}

func filterByRole(candidates []models.Agent, role models.Role) []models.Agent {
	var pool []models.Agent
	for _, a := range candidates {
		if a.HasRole(role) {
			pool = append(pool, a)
		}
	}
	return pool
}

// byPriority returns a copy sorted by ascending priority, registration order
// breaking ties.
func byPriority(pool []models.Agent) []models.Agent {
	out := make([]models.Agent, len(pool))
	copy(out, pool)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
