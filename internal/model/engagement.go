package model

// Engagement event kinds recorded in the append-only event log.
const (
	EventPlay     = "play"
	EventDownload = "download"
	EventView     = "view"
	EventVote     = "vote"
)

// EngagementMetrics is the scorer input: trailing-window engagement plus
// content age. Always derived fresh from the ledger, never persisted.
type EngagementMetrics struct {
	RecentPlays     int
	RecentVotes     int // net: upvotes minus downvotes within the window
	RecentComments  int
	RecentDownloads int
	AgeHours        float64
}

// LogResult reports the outcome of an append to the engagement event log.
type LogResult struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}
