package main

import (
	"errors"
	"net/http"
)

// GET /api/days/{date}/note
// A missing note is absence, not an error: respond 200 with empty content.
func (a *api) handleGetNote(w http.ResponseWriter, r *http.Request) {
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
	n, err := a.store.NoteByDate(r.Context(), u.ID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, 200, DailyNote{UserID: u.ID, Date: date, NoteContent: ""})
			return
		}
		a.log.Error("get note", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, n)
}

// PUT /api/days/{date}/note {note_content}
// Upsert: at most one row per (user, date). Clients debounce; two tabs
// racing is last-writer-wins.
func (a *api) handleSaveNote(w http.ResponseWriter, r *http.Request) {
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
		NoteContent string `json:"note_content"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	n, err := a.store.SaveNote(r.Context(), u.ID, date, req.NoteContent)
	if err != nil {
		a.log.Error("save note", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, n)
	a.bus.Publish(Event{Type: "note.saved", Entity: "note", UserID: u.ID, Date: date, Payload: n})
}
