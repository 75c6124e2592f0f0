package wine

import "fmt"

// PremiumThreshold is the lowest score classified as premium.
const PremiumThreshold = 7.0

// Assessment is the outcome of scoring one vector.
type Assessment struct {
	Score   float64 `json:"score"`
	Premium bool    `json:"premium"`
}

// NewAssessment classifies a predicted quality score.
func NewAssessment(score float64) Assessment {
	return Assessment{Score: score, Premium: score >= PremiumThreshold}
}

// Display renders the score with two decimals.
func (a Assessment) Display() string {
	return fmt.Sprintf("%.2f", a.Score)
}
