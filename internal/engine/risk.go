package engine

import (
	"math/rand"

	"github.com/phishplay/phishplay/internal/domain"
)

// Risk score bands. The two ranges are disjoint.
const (
	phishingRiskBase = 0.65
	phishingRiskSpan = 0.30
	benignRiskBase   = 0.10
	benignRiskSpan   = 0.20
)

// RiskScorer draws a risk value in [0,1] biased toward the scenario's
// ground-truth class. Each scorer owns its randomness source, so concurrent
// sessions never share mutable random state.
type RiskScorer struct {
	rng *rand.Rand
}

// NewRiskScorer creates a scorer from the given source. A nil source is
// seeded from the global generator.
func NewRiskScorer(src rand.Source) *RiskScorer {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &RiskScorer{rng: rand.New(src)}
}

// Score returns the simulated detector risk for the scenario:
// uniform in [0.65, 0.95) for phishing, [0.10, 0.30) for benign.
func (r *RiskScorer) Score(s *domain.Scenario) float64 {
	if s.IsPhishing {
		return phishingRiskBase + r.rng.Float64()*phishingRiskSpan
	}
	return benignRiskBase + r.rng.Float64()*benignRiskSpan
}
