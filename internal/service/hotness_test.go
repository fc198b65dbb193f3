package service

import (
	"math"
	"testing"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestHotness_MatchesClosedForm(t *testing.T) {
	tests := []struct {
		name string
		m    model.EngagementMetrics
	}{
		{"fresh with plays", model.EngagementMetrics{RecentPlays: 10}},
		{"mixed engagement", model.EngagementMetrics{RecentPlays: 42, RecentVotes: 7, RecentComments: 3, RecentDownloads: 11, AgeHours: 5.5}},
		{"negative net votes", model.EngagementMetrics{RecentPlays: 20, RecentVotes: -15, AgeHours: 2}},
		{"old content", model.EngagementMetrics{RecentPlays: 100, RecentDownloads: 50, AgeHours: 96}},
		{"fractional age", model.EngagementMetrics{RecentComments: 9, AgeHours: 0.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := float64(tt.m.RecentPlays)*1.0 +
				float64(tt.m.RecentVotes)*2.0 +
				float64(tt.m.RecentComments)*3.0 +
				float64(tt.m.RecentDownloads)*1.5
			want := int64(math.Round(raw * math.Pow(0.5, tt.m.AgeHours/24.0) * 100))

			if got := CalculateHotnessScore(tt.m); got != want {
				t.Errorf("score = %d, want %d", got, want)
			}
		})
	}
}

func TestHotness_ZeroEngagementIsZeroAtAnyAge(t *testing.T) {
	for _, age := range []float64{0, 1, 24, 720, 8760} {
		m := model.EngagementMetrics{AgeHours: age}
		if got := CalculateHotnessScore(m); got != 0 {
			t.Errorf("zero engagement at age %.0fh scored %d, want 0", age, got)
		}
	}
}

func TestHotness_MonotonicInEngagement(t *testing.T) {
	base := model.EngagementMetrics{RecentPlays: 10, RecentVotes: 5, RecentComments: 2, RecentDownloads: 4, AgeHours: 6}
	baseScore := CalculateHotnessScore(base)

	bump := func(name string, m model.EngagementMetrics) {
		if got := CalculateHotnessScore(m); got <= baseScore {
			t.Errorf("increasing %s: score %d, want > %d", name, got, baseScore)
		}
	}

	more := base
	more.RecentPlays += 10
	bump("plays", more)

	more = base
	more.RecentVotes += 10
	bump("netVotes", more)

	more = base
	more.RecentComments += 10
	bump("comments", more)

	more = base
	more.RecentDownloads += 10
	bump("downloads", more)
}

func TestHotness_StrictlyDecreasingInAge(t *testing.T) {
	m := model.EngagementMetrics{RecentPlays: 100, RecentVotes: 20}

	prev := CalculateHotnessScore(m)
	for _, age := range []float64{6, 12, 24, 48, 96} {
		m.AgeHours = age
		got := CalculateHotnessScore(m)
		if got >= prev {
			t.Errorf("score at age %.0fh = %d, want < %d", age, got, prev)
		}
		prev = got
	}
}

func TestHotness_HalfLife(t *testing.T) {
	m := model.EngagementMetrics{RecentPlays: 77, RecentVotes: 13, RecentComments: 5, RecentDownloads: 21}

	fresh := CalculateHotnessScore(m)
	m.AgeHours = HotnessHalfLifeHours
	aged := CalculateHotnessScore(m)

	// Score at exactly one half-life equals half the fresh score, within
	// ±1 from integer rounding.
	if !almostEqual(float64(aged), float64(fresh)/2, 1) {
		t.Errorf("score at one half-life = %d, want ~%d/2", aged, fresh)
	}
}

func TestHotness_NetNegativeVotesScoreBelowZero(t *testing.T) {
	// Heavily downvoted content scores negative. The hot listing has no
	// score floor, so these entries still rank — last, not gone.
	m := model.EngagementMetrics{RecentPlays: 2, RecentVotes: -10}
	got := CalculateHotnessScore(m)
	if got >= 0 {
		t.Errorf("score = %d, want < 0", got)
	}
	if want := int64(-1800); got != want {
		t.Errorf("score = %d, want %d", got, want)
	}
}

func TestHotness_ScalePreservesTwoDecimals(t *testing.T) {
	// One download at age 0: raw = 1.5, scaled = 150.
	m := model.EngagementMetrics{RecentDownloads: 1}
	if got := CalculateHotnessScore(m); got != 150 {
		t.Errorf("one download = %d, want 150", got)
	}
}
