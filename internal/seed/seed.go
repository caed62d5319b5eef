// Package seed loads the starter agent library into an empty store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soyeahso/thecafe/internal/domain"
	"github.com/soyeahso/thecafe/internal/logging"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is a seed file: agents addressed by key, and projects that
// reference those keys.
type Catalog struct {
	Agents   []AgentEntry   `yaml:"agents"`
	Projects []ProjectEntry `yaml:"projects"`
}

// AgentEntry is one seeded agent.
type AgentEntry struct {
	Key               string `yaml:"key"`
	domain.AgentInput `yaml:",inline"`
}

// ProjectEntry is one seeded project. Agents lists AgentEntry keys.
type ProjectEntry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Emoji       string   `yaml:"emoji,omitempty"`
	Color       string   `yaml:"color,omitempty"`
	Agents      []string `yaml:"agents,omitempty"`
}

// Store is the part of the entity store seeding writes to.
type Store interface {
	Empty() bool
	CreateAgent(ctx context.Context, in domain.AgentInput) (domain.Agent, error)
	CreateProject(ctx context.Context, in domain.ProjectInput) (domain.Project, error)
}

// Result counts what Apply created.
type Result struct {
	Agents   int
	Projects int
	Skipped  bool
}

// Default returns the embedded starter catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and checks a catalog. Every agent must validate, keys must
// be unique and projects may only name known keys.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing seed catalog: %w", err)
	}

	var errs []error
	keys := make(map[string]bool, len(cat.Agents))
	for i, a := range cat.Agents {
		switch {
		case a.Key == "":
			errs = append(errs, fmt.Errorf("agents[%d]: key is required", i))
		case keys[a.Key]:
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate key %q", i, a.Key))
		}
		keys[a.Key] = true
		if err := a.AgentInput.Normalize().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("agents[%d] (%s): %w", i, a.Key, err))
		}
	}
	for i, p := range cat.Projects {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("projects[%d]: name is required", i))
		}
		for _, k := range p.Agents {
			if !keys[k] {
				errs = append(errs, fmt.Errorf("projects[%d] (%s): unknown agent key %q", i, p.Name, k))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &cat, nil
}

// Apply creates the catalog's agents and projects. A store that already
// holds anything is left untouched.
func Apply(ctx context.Context, store Store, cat *Catalog, log *logging.Logger) (Result, error) {
	log = log.Sub("seed")
	if !store.Empty() {
		log.Debug().Msg("store not empty, skipping seed")
		return Result{Skipped: true}, nil
	}

	var res Result
	ids := make(map[string]string, len(cat.Agents))
	for _, entry := range cat.Agents {
		a, err := store.CreateAgent(ctx, entry.AgentInput)
		if err != nil {
			return res, fmt.Errorf("seeding agent %s: %w", entry.Key, err)
		}
		ids[entry.Key] = a.ID
		res.Agents++
	}
	for _, entry := range cat.Projects {
		in := domain.ProjectInput{
			Name:        entry.Name,
			Description: entry.Description,
			Emoji:       entry.Emoji,
			Color:       entry.Color,
		}
		for _, k := range entry.Agents {
			in.AgentIDs = append(in.AgentIDs, ids[k])
		}
		if _, err := store.CreateProject(ctx, in); err != nil {
			return res, fmt.Errorf("seeding project %s: %w", entry.Name, err)
		}
		res.Projects++
	}

	log.Info().Int("agents", res.Agents).Int("projects", res.Projects).Msg("seed catalog applied")
	return res, nil
}
