package main

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

func validScheduledTime(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// GET /api/days/{date}/tasks
func (a *api) handleTasksByDate(w http.ResponseWriter, r *http.Request) {
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
	items, err := a.store.TasksByDate(r.Context(), u.ID, date)
	if err != nil {
		a.log.Error("tasks by date", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if len(items) == 0 {
		items, err = a.store.SeedTasks(r.Context(), defaultTasks(u.ID, date))
		if err != nil {
			a.log.Error("seed tasks", "err", err)
			writeError(w, 500, "internal error")
			return
		}
	}
	writeJSON(w, 200, items)
}

// POST /api/days/{date}/tasks
func (a *api) handleCreateTask(w http.ResponseWriter, r *http.Request) {
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
		Title         string `json:"title"`
		Description   string `json:"description"`
		ScheduledTime string `json:"scheduled_time"`
	}
	if err := readJSON(w, r, &req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, 400, "invalid payload")
		return
	}
	if !validScheduledTime(req.ScheduledTime) {
		writeError(w, 400, "bad scheduled_time")
		return
	}
	t, err := a.store.CreateTask(r.Context(), Task{
		UserID:        u.ID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		ScheduledTime: req.ScheduledTime,
		Status:        TaskTodo,
		Date:          date,
	})
	if err != nil {
		a.log.Error("create task", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 201, t)
	a.bus.Publish(Event{Type: "task.created", Entity: "task", UserID: u.ID, Date: t.Date, Payload: t})
}

// PATCH /api/tasks/{id}
func (a *api) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	id := r.PathValue("id")
	var req struct {
		Title         *string `json:"title"`
		Description   *string `json:"description"`
		ScheduledTime *string `json:"scheduled_time"`
		Status        *string `json:"status"`
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
	if req.ScheduledTime != nil && !validScheduledTime(*req.ScheduledTime) {
		writeError(w, 400, "bad scheduled_time")
		return
	}
	if req.Status != nil && !validTaskStatus(*req.Status) {
		writeError(w, 400, "bad status")
		return
	}
	t, err := a.store.UpdateTask(r.Context(), u.ID, id, TaskPatch{
		Title:         req.Title,
		Description:   req.Description,
		ScheduledTime: req.ScheduledTime,
		Status:        req.Status,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("update task", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, t)
	a.bus.Publish(Event{Type: "task.updated", Entity: "task", UserID: u.ID, Date: t.Date, Payload: t})
}

// DELETE /api/tasks/{id}
func (a *api) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	id := r.PathValue("id")
	t, err := a.store.GetTask(r.Context(), u.ID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("get task", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if err := a.store.DeleteTask(r.Context(), u.ID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("delete task", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, map[string]any{"ok": true})
	a.bus.Publish(Event{Type: "task.deleted", Entity: "task", UserID: u.ID, Date: t.Date, Payload: map[string]any{"id": id}})
}

// POST /api/tasks/{id}/move {status}
// Columns are unconstrained: done can reopen to todo. No history is written
// for tasks.
func (a *api) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	id := r.PathValue("id")
	var req struct {
		Status string `json:"status"`
	}
	if err := readJSON(w, r, &req); err != nil || !validTaskStatus(req.Status) {
		writeError(w, 400, "invalid payload")
		return
	}
	t, moved, err := a.store.MoveTask(r.Context(), u.ID, id, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, 404, "not found")
			return
		}
		a.log.Error("move task", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, t)
	if moved {
		a.bus.Publish(Event{Type: "task.moved", Entity: "task", UserID: u.ID, Date: t.Date, Payload: t})
	}
}
