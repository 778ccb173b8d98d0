package main

import (
	"context"
	"sync"
	"time"
)

// noteSaver debounces note writes. Every Queue call resets the timer; the
// save only fires once the user has been quiet for the full delay, so a
// burst of keystrokes collapses into one write.
type noteSaver struct {
	board *DayBoard
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	dirty   bool
	lastErr error
}

func newNoteSaver(board *DayBoard, delay time.Duration) *noteSaver {
	return &noteSaver{board: board, delay: delay}
}

// Queue records the latest content and arms (or re-arms) the timer.
func (s *noteSaver) Queue(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = content
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *noteSaver) fire() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	content := s.pending
	s.dirty = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.board.SaveNote(ctx, content)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Flush saves any pending content immediately. Called on board close so a
// note typed just before navigating away is not lost.
func (s *noteSaver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	content := s.pending
	s.dirty = false
	s.mu.Unlock()
	return s.board.SaveNote(ctx, content)
}

// Err reports the outcome of the most recent background save.
func (s *noteSaver) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
