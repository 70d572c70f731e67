package models

import "gorm.io/gorm"

// User is the backend account behind an authenticated request.
type User struct {
	ID     int64  `json:"id"`
	AuthID string `json:"auth_id"`
	Name   string `json:"name"`
}

// UserLink caches the backend user id for an Auth0 subject so the backend
// is only asked once per subject.
type UserLink struct {
	gorm.Model
	AuthID string `gorm:"uniqueIndex;not null;size:200"`
	UserID int64  `gorm:"not null"`
	Name   string `gorm:"size:200"`
}
