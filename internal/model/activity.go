package model

import "time"

// Activity action kinds delivered to live subscribers.
const (
	ActionPlay     = "play"
	ActionDownload = "download"
	ActionUpload   = "upload"
	ActionComment  = "comment"
	ActionVote     = "vote"
	ActionView     = "view"
)

// ValidActivityKinds are the action kinds accepted by the activity feed.
var ValidActivityKinds = map[string]bool{
	ActionPlay:     true,
	ActionDownload: true,
	ActionUpload:   true,
	ActionComment:  true,
	ActionVote:     true,
}

// ActivityEvent is the wire shape pushed to live subscribers and stored in
// the bounded activity feed. Location is coarse (e.g. country or city),
// never a raw address.
type ActivityEvent struct {
	Type       string    `json:"type"`
	MediaID    int64     `json:"mediaFileId,omitempty"`
	MediaTitle string    `json:"mediaTitle,omitempty"`
	Location   string    `json:"location,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ActivityItem is a persisted activity feed row.
type ActivityItem struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"type"`
	MediaID    *int64    `json:"mediaFileId,omitempty"`
	MediaTitle *string   `json:"mediaTitle,omitempty"`
	Location   *string   `json:"location,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}
