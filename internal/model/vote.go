package model

import "time"

// Vote types. At most one live vote exists per (media, identity) pair.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// ValidVoteTypes are the allowed vote type values.
var ValidVoteTypes = map[string]bool{
	VoteUp:   true,
	VoteDown: true,
}

// Vote represents an individual vote record.
type Vote struct {
	MediaID      int64     `json:"mediaFileId"`
	IdentityHash string    `json:"-"`
	VoteType     string    `json:"voteType"`
	SessionID    string    `json:"sessionId,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	VoteType  string `json:"voteType"`
	SessionID string `json:"sessionId,omitempty"`
}

// VoteResult reports the outcome of a vote mutation. PreviousVote is the
// vote type the identity previously held on the media, empty if none.
type VoteResult struct {
	Success      bool   `json:"success"`
	PreviousVote string `json:"previousVote,omitempty"`
	Message      string `json:"message,omitempty"`
}

// VoteCounts holds the denormalized up/down tallies for one media file.
type VoteCounts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}
