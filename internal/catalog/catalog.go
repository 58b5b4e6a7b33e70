// Package catalog provides the immutable scenario catalog and cue pattern
// dictionary consumed by the evaluation engine.
package catalog

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"sync"

	"github.com/phishplay/phishplay/internal/domain"
)

// ErrNotFound is returned when no scenario is available for a theme or any
// of its fallbacks. Callers must treat this as "no more content".
var ErrNotFound = errors.New("catalog: no scenarios available")

// Dictionary maps cue ids to their definitions. It is a pure lookup table.
type Dictionary struct {
	cues map[string]domain.Cue
	ids  []string
}

// NewDictionary builds a dictionary from cue definitions. Every pattern must
// compile as a case-insensitive regular expression.
func NewDictionary(cues []domain.Cue) (*Dictionary, error) {
	d := &Dictionary{cues: make(map[string]domain.Cue, len(cues))}
	for _, c := range cues {
		if c.ID == "" {
			return nil, fmt.Errorf("cue with empty id")
		}
		if _, exists := d.cues[c.ID]; exists {
			return nil, fmt.Errorf("duplicate cue id %q", c.ID)
		}
		for _, p := range c.Patterns {
			if _, err := regexp.Compile("(?i)" + p); err != nil {
				return nil, fmt.Errorf("cue %q pattern %q: %w", c.ID, p, err)
			}
		}
		d.cues[c.ID] = c
		d.ids = append(d.ids, c.ID)
	}
	sort.Strings(d.ids)
	return d, nil
}

// CueByID returns the cue definition for id.
func (d *Dictionary) CueByID(id string) (domain.Cue, bool) {
	c, ok := d.cues[id]
	return c, ok
}

// CueIDs returns all cue ids in ascending order.
func (d *Dictionary) CueIDs() []string {
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}

// Cues returns all cue definitions ordered by id.
func (d *Dictionary) Cues() []domain.Cue {
	out := make([]domain.Cue, 0, len(d.ids))
	for _, id := range d.ids {
		out = append(out, d.cues[id])
	}
	return out
}

// Catalog holds scenarios partitioned by theme.
type Catalog struct {
	dict    *Dictionary
	byTheme map[domain.Theme][]domain.Scenario

	mu  sync.Mutex
	rng *rand.Rand
}

// New validates scenarios against the cue dictionary and builds a catalog.
// Validation failures here are construction-time errors; the engine never
// sees a scenario referencing an unknown cue.
func New(scenarios []domain.Scenario, cues []domain.Cue) (*Catalog, error) {
	return NewWithSource(scenarios, cues, nil)
}

// NewWithSource is New with an injectable randomness source for
// deterministic selection in tests. A nil source uses a time-seeded one.
func NewWithSource(scenarios []domain.Scenario, cues []domain.Cue, src rand.Source) (*Catalog, error) {
	dict, err := NewDictionary(cues)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		dict:    dict,
		byTheme: make(map[domain.Theme][]domain.Scenario),
	}
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	c.rng = rand.New(src)

	seen := make(map[string]bool, len(scenarios))
	for _, s := range scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario with empty id")
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true

		if !s.IsPhishing && len(s.Cues) > 0 {
			return nil, fmt.Errorf("scenario %q: benign scenarios must not carry cues", s.ID)
		}
		for _, cueID := range s.Cues {
			if _, ok := dict.CueByID(cueID); !ok {
				return nil, fmt.Errorf("scenario %q references unknown cue %q", s.ID, cueID)
			}
		}
		c.byTheme[s.Theme] = append(c.byTheme[s.Theme], s)
	}

	return c, nil
}

// Dictionary returns the cue pattern dictionary backing this catalog.
func (c *Catalog) Dictionary() *Dictionary {
	return c.dict
}

// Themes returns the themes with at least one scenario, in ascending order.
func (c *Catalog) Themes() []domain.Theme {
	themes := make([]domain.Theme, 0, len(c.byTheme))
	for t := range c.byTheme {
		themes = append(themes, t)
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i] < themes[j] })
	return themes
}

// Size returns the number of scenarios for a theme.
func (c *Catalog) Size(theme domain.Theme) int {
	return len(c.byTheme[theme])
}

// Next returns a uniformly random scenario for the theme, falling back to
// the default theme when the requested one has no scenarios. Scenario ids in
// exclude are skipped to avoid immediate repeats; when exclusion would empty
// the candidate set, the full set is used instead. ErrNotFound means the
// catalog has no scenarios at all for the theme or its fallback.
func (c *Catalog) Next(theme domain.Theme, exclude map[string]bool) (domain.Scenario, error) {
	candidates := c.byTheme[theme]
	if len(candidates) == 0 {
		candidates = c.byTheme[domain.DefaultTheme]
	}
	if len(candidates) == 0 {
		return domain.Scenario{}, ErrNotFound
	}

	eligible := candidates
	if len(exclude) > 0 {
		filtered := make([]domain.Scenario, 0, len(candidates))
		for _, s := range candidates {
			if !exclude[s.ID] {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) > 0 {
			eligible = filtered
		}
	}

	c.mu.Lock()
	idx := c.rng.Intn(len(eligible))
	c.mu.Unlock()

	return eligible[idx], nil
}
