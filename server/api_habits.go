package main

import (
	"errors"
	"net/http"
	"strings"
)

// GET /api/days/{date}/habits
// Fetch-or-seed: a visited date always ends up with a non-empty,
// bucket-complete habit list.
func (a *api) handleHabitsByDate(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	date, ok := parseDate(r.PathValue("date"))
	if !ok {
		writeError(w, 400, "bad date")
		return
	}
	items, err := a.store.HabitsByDate(r.Context(), u.ID, date)
	if err != nil {
		a.log.Error("habits by date", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if len(items) == 0 {
		items, err = a.store.SeedHabits(r.Context(), defaultHabits(u.ID, date))
		if err != nil {
			a.log.Error("seed habits", "err", err)
			writeError(w, 500, "internal error")
			return
		}
	}
	writeJSON(w, 200, items)
}

// POST /api/days/{date}/habits
func (a *api) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	date, ok := parseDate(r.PathValue("date"))
	if !ok {
		writeError(w, 400, "bad date")
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		TimeOfDay   string `json:"time_of_day"`
	}
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	if !validBucket(req.TimeOfDay) {
		writeError(w, 400, "bad time_of_day")
		return
	}
	h, err := a.store.CreateHabit(r.Context(), Habit{
		UserID:      u.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		TimeOfDay:   req.TimeOfDay,
		Date:        date,
		Status:      statusForBucket(req.TimeOfDay),
	})
	if err != nil {
		a.log.Error("create habit", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 201, h)
	a.bus.Publish(Event{Type: "habit.created", Entity: "habit", UserID: u.ID, Date: h.Date, Payload: h})
}

// PATCH /api/habits/{id}
// The plain habit list view edits titles, descriptions and statuses here;
// this is the only path that can set "skipped".
func (a *api) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	id := r.PathValue("id")
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		TimeOfDay   *string `json:"time_of_day"`
		Status      *string `json:"status"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			writeError(w, 400, "title cannot be empty")
			return
		}
		req.Title = &t
	}
	if req.TimeOfDay != nil && !validBucket(*req.TimeOfDay) {
		writeError(w, 400, "bad time_of_day")
		return
	}
	if req.Status != nil && !validHabitStatus(*req.Status) {
		writeError(w, 400, "bad status")
		return
	}
	h, err := a.store.UpdateHabit(r.Context(), u.ID, id, HabitPatch{
		Title:       req.Title,
		Description: req.Description,
		TimeOfDay:   req.TimeOfDay,
		Status:      req.Status,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("update habit", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, h)
	a.bus.Publish(Event{Type: "habit.updated", Entity: "habit", UserID: u.ID, Date: h.Date, Payload: h})
}

// DELETE /api/habits/{id}
func (a *api) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	id := r.PathValue("id")
	h, err := a.store.GetHabit(r.Context(), u.ID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("get habit", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if err := a.store.DeleteHabit(r.Context(), u.ID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("delete habit", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
	a.bus.Publish(Event{Type: "habit.deleted", Entity: "habit", UserID: u.ID, Date: h.Date, Payload: map[string]any{"id": id}})
}

// POST /api/habits/{id}/move {time_of_day}
// Moving to the current bucket is a no-op; moving into "completed" derives
// status and appends one history entry.
func (a *api) handleMoveHabit(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	id := r.PathValue("id")
	var req struct {
		TimeOfDay string `json:"time_of_day"`
	}
	if err := readJSON(w, r, &req); err != nil || !validBucket(req.TimeOfDay) {
		writeError(w, 400, "invalid payload")
		return
	}
	h, moved, err := a.store.MoveHabit(r.Context(), u.ID, id, req.TimeOfDay)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("move habit", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, h)
	if moved {
		a.bus.Publish(Event{Type: "habit.moved", Entity: "habit", UserID: u.ID, Date: h.Date, Payload: h})
	}
}
