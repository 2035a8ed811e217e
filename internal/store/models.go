package store

import "time"

// TxType is the business reason for a point transaction.
type TxType string

const (
	TxFocusSessionCompleted TxType = "FOCUS_SESSION_COMPLETED"
	TxTaskCompleted         TxType = "TASK_COMPLETED"
	TxTaskUncompleted       TxType = "TASK_UNCOMPLETED"
	TxDailyStreak           TxType = "DAILY_STREAK"
)

type User struct {
	ID        string
	XP        int
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DailySession is one user's focus record for one calendar day.
type DailySession struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"userId"`
	Day               string    `json:"date"` // YYYY-MM-DD in the server time zone
	CompletedMinutes  int       `json:"completedMinutes"`
	ActiveMinutes     int       `json:"activeMinutes"`
	SessionsCompleted int       `json:"sessionsCompletedCount"`
	Achieved          bool      `json:"achieved"`
	SessionStart      int64     `json:"sessionStartInstant,omitempty"` // epoch ms
	LastUpdated       time.Time `json:"lastUpdated"`
}

// TotalMinutes is completed plus in-progress minutes.
func (d DailySession) TotalMinutes() int {
	return d.CompletedMinutes + d.ActiveMinutes
}

// TxMetadata is the type-specific detail stored with a transaction.
type TxMetadata struct {
	FocusSessionID  string `json:"focusSessionId,omitempty"`
	FocusMinutes    int    `json:"focusMinutes,omitempty"`
	TaskID          int64  `json:"taskId,omitempty"`
	StreakDays      int    `json:"streakDays,omitempty"`
	PreviousBalance int    `json:"previousBalance"`
	NewBalance      int    `json:"newBalance"`
}

// Transaction is an immutable ledger row.
type Transaction struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"userId"`
	Points    int        `json:"points"`
	Type      TxType     `json:"type"`
	Reason    string     `json:"reason"`
	Subject   string     `json:"-"` // task id or streak length, for lookups
	IdemKey   string     `json:"-"`
	Metadata  TxMetadata `json:"metadata"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TxFilter selects transactions. Zero fields are ignored.
type TxFilter struct {
	UserID  string
	Type    TxType
	Subject string
	IdemKey string
	Since   *time.Time
	Limit   int
}

type Task struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
