// Package config manages per-project configuration stored in .glee/config.yml.
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gleehq/glee/internal/models"
)

// ProjectDir is the per-project configuration directory.
const ProjectDir = ".glee"

// ErrNotInitialized is returned when a project has no .glee/config.yml.
var ErrNotInitialized = errors.New("project not initialized, run 'glee init' first")

// Project identifies one configured project.
type Project struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Dispatch holds the per-role dispatch strategies.
type Dispatch struct {
	Coder    string `yaml:"coder"`
	Reviewer string `yaml:"reviewer"`
}

// Arbitration holds the dispute-resolution settings.
type Arbitration struct {
	MaxIterations  int    `yaml:"max_iterations,omitempty"`
	MaxReviewers   int    `yaml:"max_reviewers,omitempty"`
	DisputePath    string `yaml:"dispute_path,omitempty"`
	EscalateTo     string `yaml:"escalate_to,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// Config is the full project configuration.
type Config struct {
	Project     Project        `yaml:"project"`
	Agents      []models.Agent `yaml:"agents"`
	Dispatch    Dispatch       `yaml:"dispatch"`
	Arbitration Arbitration    `yaml:"arbitration,omitempty"`
}

// DefaultDispatch returns the default dispatch strategies.
func DefaultDispatch() Dispatch {
	return Dispatch{Coder: "first", Reviewer: "all"}
}

func configPath(projectPath string) string {
	return filepath.Join(projectPath, ProjectDir, "config.yml")
}

// Load reads the project config from projectPath. Missing config is
// ErrNotInitialized.
func Load(projectPath string) (*Config, error) {
	data, err := os.ReadFile(configPath(projectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("read project config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	if cfg.Dispatch == (Dispatch{}) {
		cfg.Dispatch = DefaultDispatch()
	}
	return &cfg, nil
}

// Save writes the config back to .glee/config.yml.
func (c *Config) Save(projectPath string) error {
	dir := filepath.Join(projectPath, ProjectDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal project config: %w", err)
	}
	if err := os.WriteFile(configPath(projectPath), data, 0644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	return nil
}

// Init initializes a project at projectPath. Idempotent: an existing config
// keeps its ID, agents, and dispatch settings.
func Init(projectPath, projectID string) (*Config, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	cfg, err := Load(abs)
	if err != nil && !errors.Is(err, ErrNotInitialized) {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{Dispatch: DefaultDispatch()}
	}

	if projectID != "" {
		cfg.Project.ID = projectID
	}
	if cfg.Project.ID == "" {
		cfg.Project.ID = randomSuffix(12)
	}
	cfg.Project.Name = filepath.Base(abs)
	cfg.Project.Path = abs

	if err := cfg.Save(abs); err != nil {
		return nil, err
	}
	if err := addToGitignore(abs, ProjectDir+"/"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConnectAgent adds an agent with a unique generated name like claude-a1b2c3
// and returns the stored record.
func (c *Config) ConnectAgent(command string, roles []models.Role, domain, focus []string, priority int) models.Agent {
	agent := models.Agent{
		Name:     generateAgentName(command),
		Command:  command,
		Roles:    roles,
		Domain:   domain,
		Focus:    focus,
		Priority: priority,
	}
	c.Agents = append(c.Agents, agent)
	return agent
}

// DisconnectAgent removes the named agent. Returns false when not found.
func (c *Config) DisconnectAgent(name string) bool {
	for i, a := range c.Agents {
		if a.Name == name {
			c.Agents = append(c.Agents[:i], c.Agents[i+1:]...)
			return true
		}
	}
	return false
}

// AgentsByRole returns the agents holding the role, in registration order.
func (c *Config) AgentsByRole(role models.Role) []models.Agent {
	var out []models.Agent
	for _, a := range c.Agents {
		if a.HasRole(role) {
			out = append(out, a)
		}
	}
	return out
}

// generateAgentName builds a unique agent name like "claude-a1b2c3".
func generateAgentName(command string) string {
	return fmt.Sprintf("%s-%s", filepath.Base(command), randomSuffix(6))
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}

// addToGitignore appends entry to the project's .gitignore when the file
// exists and doesn't already list it.
func addToGitignore(projectPath, entry string) error {
	path := filepath.Join(projectPath, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read .gitignore: %w", err)
	}

	content := string(data)
	for _, line := range strings.Split(content, "\n") {
		if line == entry || line == strings.TrimSuffix(entry, "/") {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open .gitignore: %w", err)
	}
	defer f.Close()

	if content != "" && !strings.HasSuffix(content, "\n") {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		return fmt.Errorf("append to .gitignore: %w", err)
	}
	return nil
}
