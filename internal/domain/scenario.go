// Package domain contains core domain types for the PhishPlay application.
package domain

// Theme identifies a scenario category. Themes partition the catalog;
// they have no effect on scoring.
type Theme string

// Known training themes.
const (
	ThemeSciFi    Theme = "sci_fi"
	ThemeSports   Theme = "sports"
	ThemeCampus   Theme = "campus"
	ThemeHR       Theme = "hr"
	ThemeFinance  Theme = "finance"
	ThemeShipping Theme = "shipping"
)

// DefaultTheme is the fallback when a requested theme has no scenarios.
const DefaultTheme = ThemeCampus

// Difficulty is a descriptive label on a scenario. It does not affect scoring.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Scenario is one simulated message with ground truth and evidence tags.
// Scenarios are immutable once the catalog is built.
type Scenario struct {
	ID         string     `json:"id"`
	Theme      Theme      `json:"theme"`
	Sender     string     `json:"sender"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Cues       []string   `json:"cues"`
	Difficulty Difficulty `json:"difficulty"`
	IsPhishing bool       `json:"is_phishing"`
}

// HasCue reports whether cueID is a true positive for this scenario.
func (s *Scenario) HasCue(cueID string) bool {
	for _, c := range s.Cues {
		if c == cueID {
			return true
		}
	}
	return false
}
