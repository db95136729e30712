package models

// Stats is the usage summary shown to the admin
type Stats struct {
	TotalUsers     int64 `json:"total_users"`
	ActiveUsers    int64 `json:"active_users"`
	GiftCallsToday int64 `json:"gift_calls_today"`
	GiftUsersToday int64 `json:"gift_users_today"`
	GiftDailyLimit int   `json:"gift_daily_limit"`
}
