package main

import "net/http"

// GET /api/days/{date}/events
// Server-sent events for one day board. Other tabs of the same user watching
// the same date see habit, task and note changes live.
func (a *api) handleDayEvents(w http.ResponseWriter, r *http.Request) {
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
	a.bus.ServeSSE(w, r, u.ID, date)
}
