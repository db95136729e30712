package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateLayout is how event dates are typed in chat: day, month, year without separators.
const DateLayout = "02012006"

// DisplayDateLayout is how event dates are shown back to users.
const DisplayDateLayout = "02.01.2006"

// Event is a user-owned dated reminder
type Event struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string         `gorm:"size:255;not null;index:idx_event_user_date" json:"user_id"`
	Username  string         `gorm:"size:255;not null;default:unknown" json:"username"`
	Name      string         `gorm:"size:500;not null" json:"name"`
	EventDate datatypes.Date `gorm:"not null;index:idx_event_user_date" json:"event_date"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

// BeforeCreate hook is called before creating a new event
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Username == "" {
		e.Username = "unknown"
	}
	return nil
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "event"
}

// Date returns the event date as a UTC midnight time.
func (e *Event) Date() time.Time {
	return Day(time.Time(e.EventDate))
}

// DisplayDate formats the event date for chat output.
func (e *Event) DisplayDate() string {
	return e.Date().Format(DisplayDateLayout)
}

// Day truncates t to its calendar day, expressed as midnight UTC. All dates
// stored or compared by the service go through Day so that DATE columns
// compare the same way on every driver.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate converts a calendar day to the column type.
func NewDate(t time.Time) datatypes.Date {
	return datatypes.Date(Day(t))
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
