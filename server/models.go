package main

import "time"

// Time-of-day buckets for the daily habit board. "completed" is a bucket,
// not just a status: dropping a habit there is how it gets done.
const (
	BucketMorning   = "morning"
	BucketAfternoon = "afternoon"
	BucketEvening   = "evening"
	BucketCompleted = "completed"
)

// Habit statuses. "skipped" is only reachable from the plain list view,
// never from a board move.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// Task statuses (kanban columns). Any column is reachable from any other.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

func validBucket(b string) bool {
	switch b {
	case BucketMorning, BucketAfternoon, BucketEvening, BucketCompleted:
		return true
	}
	return false
}

func validHabitStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

func validTaskStatus(s string) bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// statusForBucket derives the status a board move must set: completed iff
// the habit landed in the completed bucket, pending otherwise.
func statusForBucket(bucket string) string {
	if bucket == BucketCompleted {
		return StatusCompleted
	}
	return StatusPending
}

type Habit struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TimeOfDay   string    `json:"time_of_day"`
	Date        string    `json:"date"`
	Status      string    `json:"status"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Task struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ScheduledTime string    `json:"scheduled_time,omitempty"` // wall clock "HH:MM", no date
	Status        string    `json:"status"`
	Date          string    `json:"date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DailyNote is the single free-text note per (user, date). Uniqueness is
// application-level: SaveNote queries before writing.
type DailyNote struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Date        string    `json:"date"`
	NoteContent string    `json:"note_content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HistoryEntry is an append-only record written when a habit transitions
// into the completed bucket. HabitTitle is joined in for display.
type HistoryEntry struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	HabitID    string    `json:"habit_id"`
	HabitTitle string    `json:"habit_title,omitempty"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HabitPatch carries explicit-field updates from PATCH /api/habits/{id}.
// Nil means "leave alone".
type HabitPatch struct {
	Title       *string
	Description *string
	TimeOfDay   *string
	Status      *string
}

type TaskPatch struct {
	Title         *string
	Description   *string
	ScheduledTime *string
	Status        *string
}

// AnalyticsSummary aggregates habit outcomes over a date range.
type AnalyticsSummary struct {
	TotalHabits        int    `json:"total_habits"`
	CompletedHabits    int    `json:"completed_habits"`
	CompletionRate     int    `json:"completion_rate"` // percent, rounded
	StreakDays         int    `json:"streak_days"`
	MostCompletedHabit string `json:"most_completed_habit"`
}

// Quote is a motivational quote served on the dashboard.
type Quote struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}
