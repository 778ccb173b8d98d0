package main

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidArgs = errors.New("invalid args")
)

// Store is the persistence boundary. PgStore is the real implementation;
// tests substitute an in-memory fake. Every entity read or write is scoped
// to its owning user.
type Store interface {
	// Users & sessions
	CreateUser(ctx context.Context, email, passwordHash, name string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	CreateSession(ctx context.Context, userID int64, ttl time.Duration) (token string, expires time.Time, err error)
	UserBySession(ctx context.Context, token string) (User, error)
	DeleteSession(ctx context.Context, token string) error
	EnsureOAuthUser(ctx context.Context, provider, providerUserID, email, name string) (User, error)
	UpdateUserPasswordByEmail(ctx context.Context, email, password string) error
	UpdateUserName(ctx context.Context, userID int64, name string) error

	// Habits
	HabitsByDate(ctx context.Context, userID int64, date string) ([]Habit, error)
	SeedHabits(ctx context.Context, habits []Habit) ([]Habit, error)
	CreateHabit(ctx context.Context, h Habit) (Habit, error)
	GetHabit(ctx context.Context, userID int64, id string) (Habit, error)
	UpdateHabit(ctx context.Context, userID int64, id string, p HabitPatch) (Habit, error)
	DeleteHabit(ctx context.Context, userID int64, id string) error
	// MoveHabit re-buckets a habit and derives its status. Moving to the
	// current bucket is a no-op (moved=false, nothing written). A move into
	// the completed bucket appends exactly one history entry atomically.
	MoveHabit(ctx context.Context, userID int64, id, bucket string) (h Habit, moved bool, err error)

	// Tasks
	TasksByDate(ctx context.Context, userID int64, date string) ([]Task, error)
	SeedTasks(ctx context.Context, tasks []Task) ([]Task, error)
	CreateTask(ctx context.Context, t Task) (Task, error)
	GetTask(ctx context.Context, userID int64, id string) (Task, error)
	UpdateTask(ctx context.Context, userID int64, id string, p TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, userID int64, id string) error
	// MoveTask changes a task's column. Tasks never write history.
	MoveTask(ctx context.Context, userID int64, id, status string) (t Task, moved bool, err error)

	// Notes
	NoteByDate(ctx context.Context, userID int64, date string) (DailyNote, error)
	SaveNote(ctx context.Context, userID int64, date, content string) (DailyNote, error)

	// History & analytics
	History(ctx context.Context, userID int64, from, to string) ([]HistoryEntry, error)
	HabitsInRange(ctx context.Context, userID int64, from, to string) ([]Habit, error)
}
