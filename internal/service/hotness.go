package service

import (
	"math"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

// Hotness scoring constants. The half-life gives a 24-hour decay: a media
// file's score halves for every day of age.
const (
	HotnessHalfLifeHours = 24.0

	weightPlay     = 1.0
	weightVote     = 2.0
	weightComment  = 3.0
	weightDownload = 1.5
)

// CalculateHotnessScore turns recent engagement plus content age into a
// single decayed ranking score:
//
//	raw   = plays*1.0 + netVotes*2.0 + comments*3.0 + downloads*1.5
//	score = round(raw * 0.5^(ageHours/24) * 100)
//
// The x100 scaling keeps two decimal digits of precision in integer storage.
// Zero engagement yields exactly 0 at any age.
func CalculateHotnessScore(m model.EngagementMetrics) int64 {
	raw := float64(m.RecentPlays)*weightPlay +
		float64(m.RecentVotes)*weightVote +
		float64(m.RecentComments)*weightComment +
		float64(m.RecentDownloads)*weightDownload

	decayed := raw * math.Pow(0.5, m.AgeHours/HotnessHalfLifeHours)
	return int64(math.Round(decayed * 100))
}
