package main

import (
	"testing"
	"time"
)

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format("2006-01-02")
}

func habitRow(date, title, status string) Habit {
	return Habit{Title: title, Date: date, Status: status}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()
	s := summarize(nil)
	if s.TotalHabits != 0 || s.CompletionRate != 0 || s.StreakDays != 0 || s.MostCompletedHabit != "" {
		t.Fatalf("summary = %+v", s)
	}
}

func TestSummarizeCountsAndRate(t *testing.T) {
	t.Parallel()
	s := summarize([]Habit{
		habitRow(day(0), "Fajr Prayer", StatusCompleted),
		habitRow(day(0), "Read Quran (10 mins)", StatusPending),
		habitRow(day(0), "Evening Reflection", StatusSkipped),
	})
	if s.TotalHabits != 3 || s.CompletedHabits != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if s.CompletionRate != 33 {
		t.Errorf("rate = %d, want 33", s.CompletionRate)
	}
	if s.MostCompletedHabit != "Fajr Prayer" {
		t.Errorf("most completed = %q", s.MostCompletedHabit)
	}
}

func TestSummarizeMostCompleted(t *testing.T) {
	t.Parallel()
	s := summarize([]Habit{
		habitRow(day(-2), "Fajr Prayer", StatusCompleted),
		habitRow(day(-1), "Fajr Prayer", StatusCompleted),
		habitRow(day(-1), "Evening Reflection", StatusCompleted),
	})
	if s.MostCompletedHabit != "Fajr Prayer" {
		t.Fatalf("most completed = %q, want Fajr Prayer", s.MostCompletedHabit)
	}
}

func TestSummarizeStreak(t *testing.T) {
	t.Parallel()
	// Three consecutive days ending yesterday; today still counts the run.
	s := summarize([]Habit{
		habitRow(day(-3), "Fajr Prayer", StatusCompleted),
		habitRow(day(-2), "Fajr Prayer", StatusCompleted),
		habitRow(day(-1), "Fajr Prayer", StatusCompleted),
		habitRow(day(0), "Fajr Prayer", StatusPending),
	})
	if s.StreakDays != 3 {
		t.Fatalf("streak = %d, want 3", s.StreakDays)
	}

	// A gap resets the run.
	s = summarize([]Habit{
		habitRow(day(-4), "Fajr Prayer", StatusCompleted),
		habitRow(day(-1), "Fajr Prayer", StatusCompleted),
		habitRow(day(0), "Fajr Prayer", StatusCompleted),
	})
	if s.StreakDays != 2 {
		t.Fatalf("streak across gap = %d, want 2", s.StreakDays)
	}
}
