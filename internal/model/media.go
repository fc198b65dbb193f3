package model

import "time"

// Media represents a media file's engagement-facing view of the library row.
// CRUD fields (section, uploader, storage path, ...) live outside this core.
type Media struct {
	ID            int64     `json:"mediaFileId"`
	Title         string    `json:"title"`
	Upvotes       int       `json:"upvotes"`
	Downvotes     int       `json:"downvotes"`
	PlayCount     int64     `json:"playCount"`
	DownloadCount int64     `json:"downloadCount"`
	ViewCount     int64     `json:"viewCount"`
	HotnessScore  int64     `json:"hotnessScore"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RankedMedia is one entry of a trending/popular/hot listing.
type RankedMedia struct {
	ID           int64  `json:"mediaFileId"`
	Title        string `json:"title"`
	Rank         int    `json:"rank"`
	Value        int64  `json:"value"` // velocity, play count, or hotness score
	HotnessScore int64  `json:"hotnessScore,omitempty"`
}

// Period selects a trailing time window for windowed counts.
type Period string

const (
	PeriodDay   Period = "24h"
	PeriodWeek  Period = "7d"
	PeriodMonth Period = "30d"
	PeriodAll   Period = "all"
)

// Duration returns the trailing window, or 0 for the unbounded period.
func (p Period) Duration() time.Duration {
	switch p {
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	case PeriodMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodAll:
		return true
	}
	return false
}
