package models

import (
	"time"
)

// Profile holds the public details of a competitor
type Profile struct {
	ID           string    `gorm:"type:uuid;primarykey" json:"id"`
	DisplayName  string    `gorm:"not null" json:"display_name"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// ProfileRequest is the payload for editing a profile
type ProfileRequest struct {
	DisplayName  string  `json:"display_name" validate:"required,min=1,max=80"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,url"`
}
