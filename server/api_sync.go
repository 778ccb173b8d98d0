package main

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"
)

// Mutation is one queued offline edit. Seq is a per-client logical clock so
// a replayed batch applies in the order the user made the edits; ClientTS
// carries the wall-clock moment for last-writer-wins against rows the server
// has changed since.
type Mutation struct {
	Seq       int64     `json:"seq"`
	Entity    string    `json:"entity"` // habit, task, note
	Op        string    `json:"op"`     // move, update, save
	ID        string    `json:"id,omitempty"`
	Date      string    `json:"date,omitempty"`
	TimeOfDay string    `json:"time_of_day,omitempty"`
	Status    string    `json:"status,omitempty"`
	Content   string    `json:"content,omitempty"`
	ClientTS  time.Time `json:"client_ts"`
}

type SyncResult struct {
	Seq     int64  `json:"seq"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// applyMutation resolves one replayed edit against current server state.
// A row the server updated after the client's edit wins; the mutation is
// reported as skipped rather than failed so the client can drop it.
func (a *api) applyMutation(ctx context.Context, userID int64, m Mutation) SyncResult {
	res := SyncResult{Seq: m.Seq}
	switch {
	case m.Entity == "habit" && m.Op == "move":
		if !validBucket(m.TimeOfDay) {
			res.Reason = "bad time_of_day"
			return res
		}
		h, err := a.store.GetHabit(ctx, userID, m.ID)
		if err != nil {
			res.Reason = mutationErrReason(err)
			return res
		}
		if h.UpdatedAt.After(m.ClientTS) {
			res.Reason = "stale"
			return res
		}
		h, moved, err := a.store.MoveHabit(ctx, userID, m.ID, m.TimeOfDay)
		if err != nil {
			res.Reason = mutationErrReason(err)
			return res
		}
		res.Applied = true
		if moved {
			a.bus.Publish(Event{Type: "habit.moved", Entity: "habit", UserID: userID, Date: h.Date, Payload: h})
		}
	case m.Entity == "habit" && m.Op == "update":
		if m.Status != "" && !validHabitStatus(m.Status) {
			res.Reason = "bad status"
			return res
		}
		h, err := a.store.GetHabit(ctx, userID, m.ID)
		if err != nil {
			res.Reason = mutationErrReason(err)
			return res
		}
		if h.UpdatedAt.After(m.ClientTS) {
			res.Reason = "stale"
			return res
		}
		var p HabitPatch
		if m.Status != "" {
			p.Status = &m.Status
		}
		h, err = a.store.UpdateHabit(ctx, userID, m.ID, p)
		if err != nil {
			res.Reason = mutationErrReason(err)
			return res
		}
		res.Applied = true
		a.bus.Publish(Event{Type: "habit.updated", Entity: "habit", UserID: userID, Date: h.Date, Payload: h})
	case m.Entity == "task" && m.Op == "move":
		if !validTaskStatus(m.Status) {
			res.Reason = "bad status"
			return res
		}
		t, err := a.store.GetTask(ctx, userID, m.ID)
		if err != nil {
			res.Reason = mutationErrReason(err)
			return res
		}
		if t.UpdatedAt.After(m.ClientTS) {
			res.Reason = "stale"
			return res
		}
		t, moved, err := a.store.MoveTask(ctx, userID, m.ID, m.Status)
		if err != nil {
			res.Reason = mutationErrReason(err)
			return res
		}
		res.Applied = true
		if moved {
			a.bus.Publish(Event{Type: "task.moved", Entity: "task", UserID: userID, Date: t.Date, Payload: t})
		}
	case m.Entity == "note" && m.Op == "save":
		if _, ok := parseDate(m.Date); !ok {
			res.Reason = "bad date"
			return res
		}
		cur, err := a.store.NoteByDate(ctx, userID, m.Date)
		if err == nil && cur.UpdatedAt.After(m.ClientTS) {
			res.Reason = "stale"
			return res
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			res.Reason = mutationErrReason(err)
			return res
		}
		n, err := a.store.SaveNote(ctx, userID, m.Date, m.Content)
		if err != nil {
			res.Reason = mutationErrReason(err)
			return res
		}
		res.Applied = true
		a.bus.Publish(Event{Type: "note.saved", Entity: "note", UserID: userID, Date: n.Date, Payload: n})
	default:
		res.Reason = "unknown mutation"
	}
	return res
}

func mutationErrReason(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not found"
	}
	return "internal error"
}

// POST /api/sync {mutations: [...]}
// Replays a client's offline queue in logical-clock order. Each mutation
// resolves independently: stale or invalid entries are skipped, the rest
// apply, and the client clears its queue from the per-entry results.
func (a *api) handleSync(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	var req struct {
		Mutations []Mutation `json:"mutations"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, 400, "invalid payload")
		return
	}
	sort.SliceStable(req.Mutations, func(i, j int) bool {
		return req.Mutations[i].Seq < req.Mutations[j].Seq
	})
	results := make([]SyncResult, 0, len(req.Mutations))
	for _, m := range req.Mutations {
		results = append(results, a.applyMutation(r.Context(), u.ID, m))
	}
	writeJSON(w, 200, map[string]any{
		"results":   results,
		"synced_at": time.Now().UTC().Format(time.RFC3339),
	})
}
