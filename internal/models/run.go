package models

import (
	"time"
)

// Run is a single logged run
type Run struct {
	ID          string    `gorm:"type:uuid;primarykey" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;index" json:"user_id"`
	DistanceKm  float64   `gorm:"not null" json:"distance_km"`
	TimeSeconds int       `gorm:"not null" json:"time_seconds"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Run) TableName() string {
	return "runs"
}

// Pace returns seconds per kilometer, or 0 when distance is not positive
func (r Run) Pace() float64 {
	if r.DistanceKm <= 0 {
		return 0
	}
	return float64(r.TimeSeconds) / r.DistanceKm
}

// RunRequest is the payload for logging or editing a run
type RunRequest struct {
	DistanceKm  float64 `json:"distance_km" validate:"required,gt=0"`
	TimeSeconds int     `json:"time_seconds" validate:"required,gt=0"`
}

// RunResponse adds derived pace fields to a run
type RunResponse struct {
	Run
	Pace        float64 `json:"pace"`
	PaceDisplay string  `json:"pace_display,omitempty"`
}

// NewRunResponse builds the response form of a run
func NewRunResponse(r Run) RunResponse {
	pace := r.Pace()
	return RunResponse{
		Run:         r,
		Pace:        pace,
		PaceDisplay: FormatPace(pace),
	}
}
