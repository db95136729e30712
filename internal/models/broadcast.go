package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Broadcast is the audit record of one admin broadcast
type Broadcast struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	AdminID      string         `gorm:"size:255;not null;index" json:"admin_id"`
	Message      string         `gorm:"type:text;not null" json:"message"`
	SuccessCount int            `gorm:"not null" json:"success_count"`
	FailedCount  int            `gorm:"not null" json:"failed_count"`
	FailedUsers  datatypes.JSON `json:"failed_users"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate assigns an ID and timestamp
func (b *Broadcast) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	return nil
}

// TableName specifies the table name for the Broadcast model
func (Broadcast) TableName() string {
	return "broadcast"
}

// BroadcastRequest is the admin API payload for a broadcast
type BroadcastRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}
