package engine

import (
	"math"

	"github.com/phishplay/phishplay/internal/domain"
)

// Improvement is the relative change between the pre- and post-training
// phases, in percent, rounded to one decimal. Click rate and response time
// improvements are reported as reductions; accuracy as an increase.
type Improvement struct {
	ClickRateDelta    float64 `json:"click_rate_delta"`
	ResponseTimeDelta float64 `json:"response_time_delta"`
	AccuracyDelta     float64 `json:"accuracy_delta"`
}

// Compare computes training impact from two completed phase summaries.
// A zero-valued pre-phase metric yields a 0% delta rather than a
// non-finite value.
func Compare(pre, post domain.PhaseSummary) Improvement {
	return Improvement{
		ClickRateDelta:    relativeChange(pre.ClickRate, pre.ClickRate-post.ClickRate),
		ResponseTimeDelta: relativeChange(pre.AvgResponseTime, pre.AvgResponseTime-post.AvgResponseTime),
		AccuracyDelta:     relativeChange(pre.Accuracy, post.Accuracy-pre.Accuracy),
	}
}

func relativeChange(base, delta float64) float64 {
	if base == 0 {
		return 0
	}
	return math.Round(delta/base*1000) / 10
}
