package manager

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/emergent-labs/livedev/internal/project"
)

// Step is one scripted build step: a progress milestone with an
// operator-facing message and the files it pretends to produce.
type Step struct {
	Message  string   `yaml:"message"`
	Progress int      `yaml:"progress"`
	Files    []string `yaml:"files,omitempty"`
}

// Playbook scripts a full build run for one project type.
type Playbook struct {
	Type  string `yaml:"type"`
	Steps []Step `yaml:"steps"`
}

// Simulator drives scripted build runs against the manager, standing in
// for a real scaffolding pipeline.
type Simulator struct {
	manager   *Manager
	playbooks map[string]Playbook
	interval  time.Duration
	logger    zerolog.Logger
}

// NewSimulator creates a simulator with the built-in playbooks.
// interval is the pause between steps.
func NewSimulator(m *Manager, interval time.Duration, logger zerolog.Logger) *Simulator {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Simulator{
		manager:   m,
		playbooks: defaultPlaybooks(),
		interval:  interval,
		logger:    logger.With().Str("component", "simulator").Logger(),
	}
}

// LoadPlaybooks merges playbooks from a YAML file over the built-in
// set. File entries win on type collisions.
func (s *Simulator) LoadPlaybooks(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading playbooks: %w", err)
	}

	var loaded []Playbook
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("parsing playbooks: %w", err)
	}

	for _, pb := range loaded {
		if pb.Type == "" || len(pb.Steps) == 0 {
			return fmt.Errorf("playbook entries need a type and at least one step")
		}
		s.playbooks[pb.Type] = pb
	}
	s.logger.Info().Int("playbooks", len(loaded)).Str("path", path).Msg("playbooks loaded")
	return nil
}

// Playbook returns the playbook for a project type, falling back to the
// react_app script for unknown types.
func (s *Simulator) Playbook(projectType string) Playbook {
	if pb, ok := s.playbooks[projectType]; ok {
		return pb
	}
	return s.playbooks[project.TypeReactApp]
}

// Run executes the playbook for projectID until done or ctx is
// cancelled. Intended to run on its own goroutine; the creation request
// does not wait for it.
func (s *Simulator) Run(ctx context.Context, projectID, projectType string) {
	pb := s.Playbook(projectType)
	s.logger.Info().
		Str("project_id", projectID).
		Str("type", pb.Type).
		Int("steps", len(pb.Steps)).
		Msg("simulation started")

	for _, step := range pb.Steps {
		select {
		case <-ctx.Done():
			s.logger.Warn().Str("project_id", projectID).Msg("simulation cancelled")
			return
		case <-time.After(s.interval):
		}

		s.manager.UpdateProgress(projectID, step.Progress, step.Message)
		s.manager.AddLog(projectID, step.Message)
		for _, file := range step.Files {
			s.manager.AddCreatedFile(projectID, file)
		}
	}

	s.manager.CompleteProject(projectID)
	s.logger.Info().Str("project_id", projectID).Msg("simulation completed")
}

func defaultPlaybooks() map[string]Playbook {
	react := Playbook{
		Type: project.TypeReactApp,
		Steps: []Step{
			{Message: "Initializing project...", Progress: 5},
			{Message: "Creating folder structure...", Progress: 15,
				Files: []string{"src/", "src/components/", "src/pages/", "public/"}},
			{Message: "Generating package.json...", Progress: 25, Files: []string{"package.json"}},
			{Message: "Creating React components...", Progress: 35,
				Files: []string{"src/App.jsx", "src/components/Header.jsx", "src/components/Footer.jsx"}},
			{Message: "Configuring styles...", Progress: 45,
				Files: []string{"src/App.css", "src/index.css"}},
			{Message: "Configuring build tooling...", Progress: 55,
				Files: []string{"webpack.config.js", "babel.config.js"}},
			{Message: "Creating responsive components...", Progress: 65,
				Files: []string{"src/components/MobileNav.jsx"}},
			{Message: "Configuring routes...", Progress: 75,
				Files: []string{"src/Router.jsx", "src/pages/Home.jsx"}},
			{Message: "Optimizing performance...", Progress: 85},
			{Message: "Finalizing configuration...", Progress: 95},
			{Message: "Project complete!", Progress: 100},
		},
	}

	node := Playbook{
		Type: project.TypeNodeAPI,
		Steps: []Step{
			{Message: "Initializing project...", Progress: 10},
			{Message: "Generating package.json...", Progress: 25, Files: []string{"package.json"}},
			{Message: "Creating server entrypoint...", Progress: 45,
				Files: []string{"src/server.js", "src/routes/index.js"}},
			{Message: "Adding middleware...", Progress: 65, Files: []string{"src/middleware/auth.js"}},
			{Message: "Writing API tests...", Progress: 85, Files: []string{"test/api.test.js"}},
			{Message: "Project complete!", Progress: 100},
		},
	}

	return map[string]Playbook{
		react.Type: react,
		node.Type:  node,
	}
}
