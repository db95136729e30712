package models

// ReminderKind is the band a reminder falls into, decided by days remaining
type ReminderKind string

const (
	// ReminderNone means nothing is sent for this pass.
	ReminderNone ReminderKind = ""
	// ReminderToday fires on the event day; the event is deleted afterwards.
	ReminderToday ReminderKind = "today"
	// ReminderUpcoming covers events 1 to 3 days out, at most once per day.
	ReminderUpcoming ReminderKind = "upcoming"
	// ReminderLongRange covers events more than 3 days out, at most once per week.
	ReminderLongRange ReminderKind = "long_range"
)

// Notification is one reminder produced by a scheduler pass
type Notification struct {
	UserID   string       `json:"user_id"`
	EventID  uint         `json:"event_id"`
	Kind     ReminderKind `json:"kind"`
	DaysLeft int          `json:"days_left"`
	Text     string       `json:"text"`
}
