package models

import (
	"time"

	"gorm.io/datatypes"
)

// GiftUsage tracks how many gift-advice calls a user made on LastCallDate.
// A row whose LastCallDate is not today counts as zero calls.
type GiftUsage struct {
	UserID       string         `gorm:"primaryKey;size:255" json:"user_id"`
	CallsToday   int            `gorm:"not null;default:0" json:"calls_today"`
	LastCallDate datatypes.Date `gorm:"not null;index" json:"last_call_date"`
}

// TableName specifies the table name for the GiftUsage model
func (GiftUsage) TableName() string {
	return "gift_usage"
}

// CallsOn returns the number of calls that count against the given day.
func (g *GiftUsage) CallsOn(day datatypes.Date) int {
	if !SameDay(g.LastCallDate, day) {
		return 0
	}
	return g.CallsToday
}

// SameDay compares two DATE values by calendar day.
func SameDay(a, b datatypes.Date) bool {
	return Day(time.Time(a)).Equal(Day(time.Time(b)))
}
