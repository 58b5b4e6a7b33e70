package engine

import (
	"testing"

	"github.com/phishplay/phishplay/internal/domain"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	pre := domain.PhaseSummary{ClickRate: 75, AvgResponseTime: 12, Accuracy: 50}
	post := domain.PhaseSummary{ClickRate: 28, AvgResponseTime: 9, Accuracy: 80}

	got := Compare(pre, post)
	if got.ClickRateDelta != 62.7 {
		t.Errorf("click rate delta = %v, want 62.7", got.ClickRateDelta)
	}
	if got.ResponseTimeDelta != 25 {
		t.Errorf("response time delta = %v, want 25", got.ResponseTimeDelta)
	}
	if got.AccuracyDelta != 60 {
		t.Errorf("accuracy delta = %v, want 60", got.AccuracyDelta)
	}
}

func TestCompareZeroBaseline(t *testing.T) {
	t.Parallel()

	pre := domain.PhaseSummary{}
	post := domain.PhaseSummary{ClickRate: 10, AvgResponseTime: 5, Accuracy: 90}

	got := Compare(pre, post)
	if got.ClickRateDelta != 0 || got.ResponseTimeDelta != 0 || got.AccuracyDelta != 0 {
		t.Errorf("zero baseline should yield zero deltas, got %+v", got)
	}
}

func TestCompareRegression(t *testing.T) {
	t.Parallel()

	pre := domain.PhaseSummary{ClickRate: 20, AvgResponseTime: 10, Accuracy: 80}
	post := domain.PhaseSummary{ClickRate: 40, AvgResponseTime: 10, Accuracy: 60}

	got := Compare(pre, post)
	if got.ClickRateDelta != -100 {
		t.Errorf("click rate delta = %v, want -100", got.ClickRateDelta)
	}
	if got.ResponseTimeDelta != 0 {
		t.Errorf("response time delta = %v, want 0", got.ResponseTimeDelta)
	}
	if got.AccuracyDelta != -25 {
		t.Errorf("accuracy delta = %v, want -25", got.AccuracyDelta)
	}
}
