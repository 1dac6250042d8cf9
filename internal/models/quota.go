package models

// UserQuota tracks per-user token budgets. One record per user, created
// lazily on first use. DailyUsed resets to zero whenever the tracked date
// advances past LastResetDate; both counters only grow within their window.
type UserQuota struct {
	UserID        string `json:"user_id"`
	DailyLimit    int    `json:"daily_limit"`
	MonthlyLimit  int    `json:"monthly_limit"`
	DailyUsed     int    `json:"daily_used"`
	MonthlyUsed   int    `json:"monthly_used"`
	LastResetDate string `json:"last_reset_date"` // YYYY-MM-DD
}

// QuotaWindow is a snapshot of one budget window.
type QuotaWindow struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// UserStats is the caller-facing quota usage snapshot.
type UserStats struct {
	UserID  string      `json:"user_id"`
	Daily   QuotaWindow `json:"daily_quota"`
	Monthly QuotaWindow `json:"monthly_quota"`
}
