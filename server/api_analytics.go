package main

import (
	"math"
	"net/http"
	"time"
)

// summarize folds a window of habit rows into the dashboard numbers.
func summarize(habits []Habit) AnalyticsSummary {
	s := AnalyticsSummary{TotalHabits: len(habits)}
	if len(habits) == 0 {
		return s
	}

	completedByTitle := make(map[string]int)
	completedDates := make(map[string]bool)
	for _, h := range habits {
		if h.Status != StatusCompleted {
			continue
		}
		s.CompletedHabits++
		completedByTitle[h.Title]++
		completedDates[h.Date] = true
	}
	s.CompletionRate = int(math.Round(float64(s.CompletedHabits) / float64(s.TotalHabits) * 100))

	best, bestCount := "", 0
	for title, n := range completedByTitle {
		if n > bestCount || (n == bestCount && title < best) {
			best, bestCount = title, n
		}
	}
	s.MostCompletedHabit = best

	// Streak: consecutive days with at least one completion, counting back
	// from today and allowing today itself to still be in progress.
	day := time.Now().UTC()
	if !completedDates[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}
	for completedDates[day.Format("2006-01-02")] {
		s.StreakDays++
		day = day.AddDate(0, 0, -1)
	}
	return s
}

// GET /api/analytics/summary?days=N
func (a *api) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeError(w, 401, "unauthorized")
		return
	}
	from, to := dateWindow(daysParam(r, a.cfg.HistoryDays))
	habits, err := a.store.HabitsInRange(r.Context(), u.ID, from, to)
	if err != nil {
		a.log.Error("analytics", "err", err)
		writeError(w, 500, "internal error")
		return
	}
	writeJSON(w, 200, summarize(habits))
}

// GET /api/quote
func (a *api) handleQuote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, randomQuote())
}
