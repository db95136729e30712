package models

import (
	"time"

	"gorm.io/gorm"
)

// Subscriber remembers the chat room a user talks to the bot from, so
// reminders and broadcasts can be routed back to them.
type Subscriber struct {
	UserID    string    `gorm:"primaryKey;size:255" json:"user_id"`
	RoomID    string    `gorm:"size:255;not null" json:"room_id"`
	Username  string    `gorm:"size:255" json:"username"`
	FirstSeen time.Time `gorm:"not null" json:"first_seen"`
	LastSeen  time.Time `gorm:"not null;index" json:"last_seen"`
}

// BeforeCreate hook for subscribers
func (s *Subscriber) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if s.FirstSeen.IsZero() {
		s.FirstSeen = now
	}
	if s.LastSeen.IsZero() {
		s.LastSeen = now
	}
	return nil
}

// TableName specifies the table name for the Subscriber model
func (Subscriber) TableName() string {
	return "subscriber"
}
