package catalog

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phishplay/phishplay/internal/domain"
)

//go:embed data/default.yaml
var defaultFS embed.FS

// File is the YAML document shape for a catalog file.
type File struct {
	Cues      []cueEntry      `yaml:"cues"`
	Scenarios []scenarioEntry `yaml:"scenarios"`
}

type cueEntry struct {
	ID       string   `yaml:"id"`
	Label    string   `yaml:"label"`
	Patterns []string `yaml:"patterns"`
}

type scenarioEntry struct {
	ID         string   `yaml:"id"`
	Theme      string   `yaml:"theme"`
	Sender     string   `yaml:"sender"`
	Subject    string   `yaml:"subject"`
	Body       string   `yaml:"body"`
	Cues       []string `yaml:"cues"`
	Difficulty string   `yaml:"difficulty"`
	IsPhishing bool     `yaml:"is_phishing"`
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	cues := make([]domain.Cue, 0, len(f.Cues))
	for _, c := range f.Cues {
		cues = append(cues, domain.Cue{ID: c.ID, Label: c.Label, Patterns: c.Patterns})
	}

	scenarios := make([]domain.Scenario, 0, len(f.Scenarios))
	for _, s := range f.Scenarios {
		scenarios = append(scenarios, domain.Scenario{
			ID:         s.ID,
			Theme:      domain.Theme(s.Theme),
			Sender:     s.Sender,
			Subject:    s.Subject,
			Body:       s.Body,
			Cues:       s.Cues,
			Difficulty: domain.Difficulty(s.Difficulty),
			IsPhishing: s.IsPhishing,
		})
	}

	return New(scenarios, cues)
}

// Load reads a catalog from a YAML file on disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// LoadDefault builds the catalog shipped with the binary.
func LoadDefault() (*Catalog, error) {
	data, err := defaultFS.ReadFile("data/default.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Parse(data)
}
