package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// memStore is the in-memory Store used by tests. Semantics mirror PgStore:
// ErrNotFound on misses, owner scoping on every access, move no-ops, history
// appended only on a move into the completed bucket.
type memStore struct {
	mu       sync.Mutex
	nextUser int64
	users    map[int64]*User
	hashes   map[int64]string // userID -> bcrypt hash
	byEmail  map[string]int64 // lowercased email -> userID
	sessions map[string]memSession
	oauth    map[string]int64 // provider:provider_user_id -> userID
	habits   map[string]Habit
	tasks    map[string]Task
	notes    map[string]DailyNote // userID:date -> note
	history  []HistoryEntry

	// moveErr, when set, fails the next MoveHabit call.
	moveErr error
	// noteSaves counts SaveNote calls, for debounce assertions.
	noteSaves int
}

type memSession struct {
	userID  int64
	expires time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*User{},
		hashes:   map[int64]string{},
		byEmail:  map[string]int64{},
		sessions: map[string]memSession{},
		oauth:    map[string]int64{},
		habits:   map[string]Habit{},
		tasks:    map[string]Task{},
		notes:    map[string]DailyNote{},
	}
}

func noteKey(userID int64, date string) string {
	return boardKey(userID, date)
}

func (s *memStore) CreateUser(ctx context.Context, email, passwordHash, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return User{}, ErrInvalidArgs
	}
	s.nextUser++
	u := User{ID: s.nextUser, Email: email, Name: name, CreatedAt: time.Now().UTC()}
	s.users[u.ID] = &u
	s.hashes[u.ID] = passwordHash
	s.byEmail[key] = u.ID
	return u, nil
}

func (s *memStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		s.mu.Unlock()
		return User{}, ErrNotFound
	}
	u := *s.users[id]
	hash := s.hashes[id]
	s.mu.Unlock()
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *memStore) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, time.Time, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	expires := time.Now().Add(ttl)
	s.mu.Lock()
	s.sessions[token] = memSession{userID: userID, expires: expires}
	s.mu.Unlock()
	return token, expires, nil
}

func (s *memStore) UserBySession(ctx context.Context, token string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || time.Now().After(sess.expires) {
		return User{}, ErrNotFound
	}
	u, ok := s.users[sess.userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (s *memStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

func (s *memStore) EnsureOAuthUser(ctx context.Context, provider, providerUserID, email, name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := provider + ":" + providerUserID
	if id, ok := s.oauth[key]; ok {
		return *s.users[id], nil
	}
	if id, ok := s.byEmail[strings.ToLower(email)]; ok {
		s.oauth[key] = id
		return *s.users[id], nil
	}
	s.nextUser++
	u := User{ID: s.nextUser, Email: email, Name: name, CreatedAt: time.Now().UTC()}
	s.users[u.ID] = &u
	s.byEmail[strings.ToLower(email)] = u.ID
	s.oauth[key] = u.ID
	return u, nil
}

func (s *memStore) UpdateUserPasswordByEmail(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil
	}
	s.hashes[id] = string(hash)
	return nil
}

func (s *memStore) UpdateUserName(ctx context.Context, userID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Name = name
	return nil
}

// --- Habits ---

func (s *memStore) HabitsByDate(ctx context.Context, userID int64, date string) ([]Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Habit
	for _, h := range s.habits {
		if h.UserID == userID && h.Date == date {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) SeedHabits(ctx context.Context, habits []Habit) ([]Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]Habit, 0, len(habits))
	for i, h := range habits {
		h.ID = uuid.NewString()
		// Preserve seed order under the created_at sort.
		h.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		h.UpdatedAt = h.CreatedAt
		s.habits[h.ID] = h
		out = append(out, h)
	}
	return out, nil
}

func (s *memStore) CreateHabit(ctx context.Context, h Habit) (Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = uuid.NewString()
	h.CreatedAt = time.Now().UTC()
	h.UpdatedAt = h.CreatedAt
	s.habits[h.ID] = h
	return h, nil
}

func (s *memStore) GetHabit(ctx context.Context, userID int64, id string) (Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return Habit{}, ErrNotFound
	}
	return h, nil
}

func (s *memStore) UpdateHabit(ctx context.Context, userID int64, id string, p HabitPatch) (Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return Habit{}, ErrNotFound
	}
	if p.Title != nil {
		h.Title = *p.Title
	}
	if p.Description != nil {
		h.Description = *p.Description
	}
	if p.TimeOfDay != nil {
		h.TimeOfDay = *p.TimeOfDay
	}
	if p.Status != nil {
		h.Status = *p.Status
	}
	h.UpdatedAt = time.Now().UTC()
	s.habits[id] = h
	return h, nil
}

func (s *memStore) DeleteHabit(ctx context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return ErrNotFound
	}
	delete(s.habits, id)
	return nil
}

func (s *memStore) MoveHabit(ctx context.Context, userID int64, id, bucket string) (Habit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveErr != nil {
		err := s.moveErr
		s.moveErr = nil
		return Habit{}, false, err
	}
	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return Habit{}, false, ErrNotFound
	}
	if h.TimeOfDay == bucket {
		return h, false, nil
	}
	h.TimeOfDay = bucket
	h.Status = statusForBucket(bucket)
	h.UpdatedAt = time.Now().UTC()
	s.habits[id] = h
	if bucket == BucketCompleted {
		s.history = append(s.history, HistoryEntry{
			ID:        uuid.NewString(),
			UserID:    userID,
			HabitID:   h.ID,
			Date:      h.Date,
			Status:    StatusCompleted,
			CreatedAt: time.Now().UTC(),
		})
	}
	return h, true, nil
}

// --- Tasks ---

func (s *memStore) TasksByDate(ctx context.Context, userID int64, date string) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for _, t := range s.tasks {
		if t.UserID == userID && t.Date == date {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) SeedTasks(ctx context.Context, tasks []Task) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]Task, 0, len(tasks))
	for i, t := range tasks {
		t.ID = uuid.NewString()
		t.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		t.UpdatedAt = t.CreatedAt
		s.tasks[t.ID] = t
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) CreateTask(ctx context.Context, t Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	s.tasks[t.ID] = t
	return t, nil
}

func (s *memStore) GetTask(ctx context.Context, userID int64, id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (s *memStore) UpdateTask(ctx context.Context, userID int64, id string, p TaskPatch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return Task{}, ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ScheduledTime != nil {
		t.ScheduledTime = *p.ScheduledTime
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = time.Now().UTC()
	s.tasks[id] = t
	return t, nil
}

func (s *memStore) DeleteTask(ctx context.Context, userID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memStore) MoveTask(ctx context.Context, userID int64, id, status string) (Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return Task{}, false, ErrNotFound
	}
	if t.Status == status {
		return t, false, nil
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	s.tasks[id] = t
	return t, true, nil
}

// --- Notes ---

func (s *memStore) NoteByDate(ctx context.Context, userID int64, date string) (DailyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[noteKey(userID, date)]
	if !ok {
		return DailyNote{}, ErrNotFound
	}
	return n, nil
}

func (s *memStore) SaveNote(ctx context.Context, userID int64, date, content string) (DailyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteSaves++
	key := noteKey(userID, date)
	now := time.Now().UTC()
	n, ok := s.notes[key]
	if !ok {
		n = DailyNote{ID: uuid.NewString(), UserID: userID, Date: date, CreatedAt: now}
	}
	n.NoteContent = content
	n.UpdatedAt = now
	s.notes[key] = n
	return n, nil
}

// --- History & analytics ---

func (s *memStore) History(ctx context.Context, userID int64, from, to string) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []HistoryEntry
	for _, e := range s.history {
		if e.UserID == userID && e.Date >= from && e.Date <= to {
			if h, ok := s.habits[e.HabitID]; ok {
				e.HabitTitle = h.Title
			}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) HabitsInRange(ctx context.Context, userID int64, from, to string) ([]Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Habit
	for _, h := range s.habits {
		if h.UserID == userID && h.Date >= from && h.Date <= to {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
