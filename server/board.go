package main

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Sync states a DayBoard moves through.
const (
	SyncIdle    = "idle"
	SyncSyncing = "syncing"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// DayBoard is the working set for one (user, date) pair: the habits, tasks
// and note a connected client is looking at. Edits apply to the local copy
// immediately. While online they also go straight to the store; while
// offline they queue as mutations and replay on reconnect, stale ones
// losing to whatever the server accepted in the meantime.
type DayBoard struct {
	store Store
	bus   *EventBus

	userID int64
	date   string

	mu     sync.Mutex
	habits []Habit
	tasks  []Task
	note   DailyNote

	online     bool
	queue      []Mutation
	seq        int64
	syncStatus string
	lastSynced time.Time
}

func NewDayBoard(store Store, bus *EventBus, userID int64, date string) *DayBoard {
	return &DayBoard{
		store:      store,
		bus:        bus,
		userID:     userID,
		date:       date,
		online:     true,
		syncStatus: SyncIdle,
	}
}

// Fetch loads the board, seeding defaults on first visit to a date.
func (b *DayBoard) Fetch(ctx context.Context) error {
	habits, err := b.store.HabitsByDate(ctx, b.userID, b.date)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		habits, err = b.store.SeedHabits(ctx, defaultHabits(b.userID, b.date))
		if err != nil {
			return err
		}
	}
	tasks, err := b.store.TasksByDate(ctx, b.userID, b.date)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		tasks, err = b.store.SeedTasks(ctx, defaultTasks(b.userID, b.date))
		if err != nil {
			return err
		}
	}
	note, err := b.store.NoteByDate(ctx, b.userID, b.date)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		note = DailyNote{UserID: b.userID, Date: b.date}
	}

	b.mu.Lock()
	b.habits, b.tasks, b.note = habits, tasks, note
	b.mu.Unlock()
	return nil
}

// Habits returns a copy of the local habit list.
func (b *DayBoard) Habits() []Habit {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Habit, len(b.habits))
	copy(out, b.habits)
	return out
}

// Tasks returns a copy of the local task list.
func (b *DayBoard) Tasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Note returns the local note.
func (b *DayBoard) Note() DailyNote {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.note
}

// SyncStatus reports the board's sync state and the time of the last
// successful replay.
func (b *DayBoard) SyncStatus() (status string, lastSynced time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncStatus, b.lastSynced
}

// QueueLen reports how many mutations await replay.
func (b *DayBoard) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// MoveHabit applies a bucket move optimistically, then either writes through
// or enqueues. A move to the current bucket is a no-op. A failed online write
// rolls the local copy back to last known good.
func (b *DayBoard) MoveHabit(ctx context.Context, id, bucket string) error {
	if !validBucket(bucket) {
		return ErrInvalidArgs
	}

	b.mu.Lock()
	idx := -1
	for i := range b.habits {
		if b.habits[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return ErrNotFound
	}
	if b.habits[idx].TimeOfDay == bucket {
		b.mu.Unlock()
		return nil
	}
	prev := b.habits[idx]
	b.habits[idx].TimeOfDay = bucket
	b.habits[idx].Status = statusForBucket(bucket)
	online := b.online
	if !online {
		b.seq++
		b.queue = append(b.queue, Mutation{
			Seq:       b.seq,
			Entity:    "habit",
			Op:        "move",
			ID:        id,
			TimeOfDay: bucket,
			ClientTS:  time.Now().UTC(),
		})
	}
	b.mu.Unlock()

	if !online {
		return nil
	}
	h, moved, err := b.store.MoveHabit(ctx, b.userID, id, bucket)
	if err != nil {
		b.mu.Lock()
		for i := range b.habits {
			if b.habits[i].ID == id {
				b.habits[i] = prev
				break
			}
		}
		b.syncStatus = SyncError
		b.mu.Unlock()
		return err
	}
	b.mu.Lock()
	for i := range b.habits {
		if b.habits[i].ID == id {
			b.habits[i] = h
			break
		}
	}
	b.syncStatus = SyncSynced
	b.lastSynced = time.Now().UTC()
	b.mu.Unlock()
	if moved && b.bus != nil {
		b.bus.Publish(Event{Type: "habit.moved", Entity: "habit", UserID: b.userID, Date: b.date, Payload: h})
	}
	return nil
}

// MoveTask is the task analogue of MoveHabit.
func (b *DayBoard) MoveTask(ctx context.Context, id, status string) error {
	if !validTaskStatus(status) {
		return ErrInvalidArgs
	}

	b.mu.Lock()
	idx := -1
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return ErrNotFound
	}
	if b.tasks[idx].Status == status {
		b.mu.Unlock()
		return nil
	}
	prev := b.tasks[idx]
	b.tasks[idx].Status = status
	online := b.online
	if !online {
		b.seq++
		b.queue = append(b.queue, Mutation{
			Seq:      b.seq,
			Entity:   "task",
			Op:       "move",
			ID:       id,
			Status:   status,
			ClientTS: time.Now().UTC(),
		})
	}
	b.mu.Unlock()

	if !online {
		return nil
	}
	t, moved, err := b.store.MoveTask(ctx, b.userID, id, status)
	if err != nil {
		b.mu.Lock()
		for i := range b.tasks {
			if b.tasks[i].ID == id {
				b.tasks[i] = prev
				break
			}
		}
		b.syncStatus = SyncError
		b.mu.Unlock()
		return err
	}
	b.mu.Lock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i] = t
			break
		}
	}
	b.syncStatus = SyncSynced
	b.lastSynced = time.Now().UTC()
	b.mu.Unlock()
	if moved && b.bus != nil {
		b.bus.Publish(Event{Type: "task.moved", Entity: "task", UserID: b.userID, Date: b.date, Payload: t})
	}
	return nil
}

// SaveNote writes the note through or enqueues it, keeping the local copy
// current either way.
func (b *DayBoard) SaveNote(ctx context.Context, content string) error {
	b.mu.Lock()
	b.note.NoteContent = content
	online := b.online
	if !online {
		b.seq++
		// Collapse earlier queued saves for the same note; only the latest
		// content matters.
		kept := b.queue[:0]
		for _, m := range b.queue {
			if m.Entity == "note" && m.Op == "save" && m.Date == b.date {
				continue
			}
			kept = append(kept, m)
		}
		b.queue = append(kept, Mutation{
			Seq:      b.seq,
			Entity:   "note",
			Op:       "save",
			Date:     b.date,
			Content:  content,
			ClientTS: time.Now().UTC(),
		})
	}
	b.mu.Unlock()

	if !online {
		return nil
	}
	n, err := b.store.SaveNote(ctx, b.userID, b.date, content)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.note = n
	b.mu.Unlock()
	if b.bus != nil {
		b.bus.Publish(Event{Type: "note.saved", Entity: "note", UserID: b.userID, Date: b.date, Payload: n})
	}
	return nil
}

// SetOnline flips connectivity. Going online drains the queue.
func (b *DayBoard) SetOnline(ctx context.Context, online bool) error {
	b.mu.Lock()
	was := b.online
	b.online = online
	b.mu.Unlock()
	if online && !was {
		return b.Replay(ctx)
	}
	return nil
}

// Replay drains the offline queue in logical-clock order. Mutations that
// lost a last-writer-wins race are dropped; a store failure keeps the
// remaining queue for the next attempt.
func (b *DayBoard) Replay(ctx context.Context) error {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.syncStatus = SyncSynced
		b.lastSynced = time.Now().UTC()
		b.mu.Unlock()
		return nil
	}
	pending := b.queue
	b.queue = nil
	b.syncStatus = SyncSyncing
	b.mu.Unlock()

	for i, m := range pending {
		if err := b.replayOne(ctx, m); err != nil {
			b.mu.Lock()
			b.queue = append(pending[i:], b.queue...)
			b.syncStatus = SyncError
			b.mu.Unlock()
			return err
		}
	}

	b.mu.Lock()
	b.syncStatus = SyncSynced
	b.lastSynced = time.Now().UTC()
	b.mu.Unlock()
	return b.Fetch(ctx)
}

func (b *DayBoard) replayOne(ctx context.Context, m Mutation) error {
	switch {
	case m.Entity == "habit" && m.Op == "move":
		h, err := b.store.GetHabit(ctx, b.userID, m.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil // deleted elsewhere, drop
			}
			return err
		}
		if h.UpdatedAt.After(m.ClientTS) {
			return nil // server row is newer, drop
		}
		_, _, err = b.store.MoveHabit(ctx, b.userID, m.ID, m.TimeOfDay)
		return err
	case m.Entity == "task" && m.Op == "move":
		t, err := b.store.GetTask(ctx, b.userID, m.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if t.UpdatedAt.After(m.ClientTS) {
			return nil
		}
		_, _, err = b.store.MoveTask(ctx, b.userID, m.ID, m.Status)
		return err
	case m.Entity == "note" && m.Op == "save":
		cur, err := b.store.NoteByDate(ctx, b.userID, m.Date)
		if err == nil && cur.UpdatedAt.After(m.ClientTS) {
			return nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		_, err = b.store.SaveNote(ctx, b.userID, m.Date, m.Content)
		return err
	}
	return nil
}
