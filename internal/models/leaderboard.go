package models

import (
	"fmt"
	"math"
)

// LeaderboardEntry is one competitor's aggregate for a leaderboard period,
// as returned by the get_leaderboard_period procedure
type LeaderboardEntry struct {
	UserID        string   `gorm:"column:user_id" json:"user_id"`
	DisplayName   string   `gorm:"column:display_name" json:"display_name"`
	ProfileImage  *string  `gorm:"column:profile_image" json:"profile_image,omitempty"`
	TotalDistance *float64 `gorm:"column:total_distance" json:"total_distance"`
	TotalRuns     int      `gorm:"column:total_runs" json:"total_runs"`
	BestPace      *float64 `gorm:"column:best_pace" json:"best_pace"`
	AvgPace       *float64 `gorm:"column:avg_pace" json:"avg_pace"`
}

// Distance returns the total distance, treating an absent value as 0
func (e LeaderboardEntry) Distance() float64 {
	if e.TotalDistance == nil {
		return 0
	}
	return *e.TotalDistance
}

// LeaderboardView is what the presentation layer renders for a session
type LeaderboardView struct {
	Period      string             `json:"period"`
	Offset      int                `json:"offset"`
	MaxOffset   int                `json:"max_offset"`
	Label       string             `json:"label"`
	Status      string             `json:"status"`
	Entries     []LeaderboardEntry `json:"entries"`
	Error       string             `json:"error,omitempty"`
	Loading     bool               `json:"loading"`
	Prefetching bool               `json:"prefetching"`
}

// PeriodRequest selects a leaderboard timeframe
type PeriodRequest struct {
	Period string `json:"period" validate:"required,oneof=all year month week"`
}

// NavigateRequest moves the leaderboard one period older or newer
type NavigateRequest struct {
	Direction string `json:"direction" validate:"required,oneof=older newer"`
}

// UserStatsResponse combines a user's all-time standing with their runs
type UserStatsResponse struct {
	Entry LeaderboardEntry `json:"entry"`
	Runs  []Run            `json:"runs"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// FormatPace renders seconds per kilometer as m:ss/km.
// Returns an empty string for non-positive paces.
func FormatPace(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return ""
	}
	rounded := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d/km", rounded/60, rounded%60)
}
