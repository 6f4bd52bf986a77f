package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Registry is the global list of initialized projects, kept under the user
// config dir so any project can be found by ID.
type Registry struct {
	Projects []Project `yaml:"projects"`
}

func registryPath(globalDir string) string {
	return filepath.Join(globalDir, "projects.yml")
}

// LoadRegistry reads the global project registry. A missing file yields an
// empty registry.
func LoadRegistry(globalDir string) (*Registry, error) {
	data, err := os.ReadFile(registryPath(globalDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("read project registry: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse project registry: %w", err)
	}
	return &reg, nil
}

// RegisterProject upserts the project into the global registry by ID.
func RegisterProject(globalDir string, p Project) error {
	reg, err := LoadRegistry(globalDir)
	if err != nil {
		return err
	}

	found := false
	for i, existing := range reg.Projects {
		if existing.ID == p.ID {
			reg.Projects[i] = p
			found = true
			break
		}
	}
	if !found {
		reg.Projects = append(reg.Projects, p)
	}

	if err := os.MkdirAll(globalDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal project registry: %w", err)
	}
	if err := os.WriteFile(registryPath(globalDir), data, 0644); err != nil {
		return fmt.Errorf("write project registry: %w", err)
	}
	return nil
}
