package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestBoard(t *testing.T) (*DayBoard, *memStore) {
	t.Helper()
	store := newMemStore()
	u, err := store.CreateUser(context.Background(), "board@example.com", "", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	b := NewDayBoard(store, NewEventBus(), u.ID, "2024-01-01")
	if err := b.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	return b, store
}

func TestBoardFetchSeeds(t *testing.T) {
	t.Parallel()
	b, _ := newTestBoard(t)

	if got := len(b.Habits()); got != 9 {
		t.Fatalf("habits = %d, want 9", got)
	}
	if got := len(b.Tasks()); got != 3 {
		t.Fatalf("tasks = %d, want 3", got)
	}
	if n := b.Note(); n.NoteContent != "" {
		t.Fatalf("note content = %q, want empty", n.NoteContent)
	}
}

func TestBoardOnlineMoveWritesThrough(t *testing.T) {
	t.Parallel()
	b, store := newTestBoard(t)
	h := b.Habits()[0]

	if err := b.MoveHabit(context.Background(), h.ID, BucketCompleted); err != nil {
		t.Fatalf("move: %v", err)
	}
	stored, err := store.GetHabit(context.Background(), h.UserID, h.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TimeOfDay != BucketCompleted || stored.Status != StatusCompleted {
		t.Fatalf("stored habit = %+v", stored)
	}
	if len(store.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(store.history))
	}
	if b.QueueLen() != 0 {
		t.Fatalf("queue = %d, want 0", b.QueueLen())
	}
}

func TestBoardNoopMove(t *testing.T) {
	t.Parallel()
	b, store := newTestBoard(t)
	h := b.Habits()[0]

	if err := b.MoveHabit(context.Background(), h.ID, h.TimeOfDay); err != nil {
		t.Fatalf("move: %v", err)
	}
	stored, _ := store.GetHabit(context.Background(), h.UserID, h.ID)
	if !stored.UpdatedAt.Equal(h.UpdatedAt) {
		t.Fatal("no-op move touched the stored row")
	}
}

func TestBoardMoveRollbackOnError(t *testing.T) {
	t.Parallel()
	b, store := newTestBoard(t)
	h := b.Habits()[0]

	store.moveErr = errors.New("connection reset")
	if err := b.MoveHabit(context.Background(), h.ID, BucketCompleted); err == nil {
		t.Fatal("move succeeded, want error")
	}
	local := b.Habits()[0]
	if local.TimeOfDay != h.TimeOfDay || local.Status != h.Status {
		t.Fatalf("local copy not rolled back: %+v", local)
	}
}

func TestBoardOfflineQueueAndReplay(t *testing.T) {
	t.Parallel()
	b, store := newTestBoard(t)
	h := b.Habits()[0]

	if err := b.SetOnline(context.Background(), false); err != nil {
		t.Fatalf("offline: %v", err)
	}
	if err := b.MoveHabit(context.Background(), h.ID, BucketCompleted); err != nil {
		t.Fatalf("offline move: %v", err)
	}

	// Local copy reflects the move, store does not.
	if local := b.Habits()[0]; local.Status != StatusCompleted {
		t.Fatalf("local status = %s", local.Status)
	}
	stored, _ := store.GetHabit(context.Background(), h.UserID, h.ID)
	if stored.TimeOfDay != h.TimeOfDay {
		t.Fatalf("store written while offline: %+v", stored)
	}
	if b.QueueLen() != 1 {
		t.Fatalf("queue = %d, want 1", b.QueueLen())
	}

	if err := b.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("replay: %v", err)
	}
	stored, _ = store.GetHabit(context.Background(), h.UserID, h.ID)
	if stored.TimeOfDay != BucketCompleted || stored.Status != StatusCompleted {
		t.Fatalf("replay did not apply: %+v", stored)
	}
	if len(store.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(store.history))
	}
	if b.QueueLen() != 0 {
		t.Fatalf("queue = %d, want 0", b.QueueLen())
	}
	status, synced := b.SyncStatus()
	if status != SyncSynced || synced.IsZero() {
		t.Fatalf("sync status = %s, lastSynced = %v", status, synced)
	}
}

func TestBoardReplayStaleMutationLoses(t *testing.T) {
	t.Parallel()
	b, store := newTestBoard(t)
	h := b.Habits()[0]

	if err := b.SetOnline(context.Background(), false); err != nil {
		t.Fatalf("offline: %v", err)
	}
	if err := b.MoveHabit(context.Background(), h.ID, BucketCompleted); err != nil {
		t.Fatalf("offline move: %v", err)
	}

	// Another client edits the same habit after the offline edit was queued.
	time.Sleep(5 * time.Millisecond)
	if _, _, err := store.MoveHabit(context.Background(), h.UserID, h.ID, BucketEvening); err != nil {
		t.Fatalf("concurrent move: %v", err)
	}

	if err := b.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("replay: %v", err)
	}
	stored, _ := store.GetHabit(context.Background(), h.UserID, h.ID)
	if stored.TimeOfDay != BucketEvening {
		t.Fatalf("stale offline edit won: %+v", stored)
	}
	// Fetch after replay pulls the winning state back into the board.
	if local := b.Habits()[0]; local.TimeOfDay != BucketEvening {
		t.Fatalf("local copy = %+v", local)
	}
}

func TestBoardOfflineNoteSavesCollapse(t *testing.T) {
	t.Parallel()
	b, store := newTestBoard(t)

	if err := b.SetOnline(context.Background(), false); err != nil {
		t.Fatalf("offline: %v", err)
	}
	for _, content := range []string{"d", "dr", "draft"} {
		if err := b.SaveNote(context.Background(), content); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if b.QueueLen() != 1 {
		t.Fatalf("queue = %d, want 1 collapsed save", b.QueueLen())
	}

	if err := b.SetOnline(context.Background(), true); err != nil {
		t.Fatalf("replay: %v", err)
	}
	n, err := store.NoteByDate(context.Background(), b.userID, b.date)
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	if n.NoteContent != "draft" {
		t.Fatalf("content = %q, want draft", n.NoteContent)
	}
	if store.noteSaves != 1 {
		t.Fatalf("store saves = %d, want 1", store.noteSaves)
	}
}

func TestBoardReplayFailureKeepsQueue(t *testing.T) {
	t.Parallel()
	b, store := newTestBoard(t)
	h := b.Habits()[0]

	if err := b.SetOnline(context.Background(), false); err != nil {
		t.Fatalf("offline: %v", err)
	}
	if err := b.MoveHabit(context.Background(), h.ID, BucketCompleted); err != nil {
		t.Fatalf("offline move: %v", err)
	}

	store.moveErr = errors.New("connection reset")
	if err := b.SetOnline(context.Background(), true); err == nil {
		t.Fatal("replay succeeded, want error")
	}
	if b.QueueLen() != 1 {
		t.Fatalf("queue = %d, want 1 retained", b.QueueLen())
	}
	status, _ := b.SyncStatus()
	if status != SyncError {
		t.Fatalf("sync status = %s, want error", status)
	}

	// Next replay drains it.
	if err := b.Replay(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if b.QueueLen() != 0 {
		t.Fatalf("queue = %d after retry, want 0", b.QueueLen())
	}
}
