package models

// Role is a capability an agent can hold. One agent may hold several roles;
// roles are tags on a single Agent record, not distinct agent types.
type Role string

const (
	RoleCoder    Role = "coder"
	RoleReviewer Role = "reviewer"
	RoleJudge    Role = "judge"
)

// Agent is one configured CLI or API agent connected to a project.
type Agent struct {
	Name     string   `yaml:"name"`
	Command  string   `yaml:"command,omitempty"` // CLI executable (claude, codex, gemini)
	Model    string   `yaml:"model,omitempty"`   // API model name; when set the agent is invoked via the Anthropic API instead of a subprocess
	Roles    []Role   `yaml:"roles"`
	Domain   []string `yaml:"domain,omitempty"` // coder specialization (backend, frontend, shell)
	Focus    []string `yaml:"focus,omitempty"`  // reviewer focus areas (security, performance)
	Priority int      `yaml:"priority,omitempty"`
}

// HasRole reports whether the agent holds the given role capability.
func (a Agent) HasRole(r Role) bool {
	for _, have := range a.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// HasDomain reports whether the agent's coder domains include d.
func (a Agent) HasDomain(d string) bool {
	for _, have := range a.Domain {
		if have == d {
			return true
		}
	}
	return false
}
