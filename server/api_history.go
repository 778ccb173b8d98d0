package main

import (
	"net/http"
	"strconv"
	"time"
)

// daysParam reads ?days=N, clamped to [1, 365].
func daysParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > 365 {
		n = 365
	}
	return n
}

// dateWindow returns the [from, to] date strings covering the last n days,
// inclusive of today.
func dateWindow(n int) (from, to string) {
	now := time.Now().UTC()
	to = now.Format("2006-01-02")
	from = now.AddDate(0, 0, -(n - 1)).Format("2006-01-02")
	return from, to
}

// GET /api/history?days=N
func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	from, to := dateWindow(daysParam(r, a.cfg.HistoryDays))
	entries, err := a.store.History(r.Context(), u.ID, from, to)
	if err != nil {
		a.log.Error("history", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	writeJSON(w, 200, entries)
}
