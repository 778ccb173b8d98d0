package main

import "testing"

func TestNormalizeRoute(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"/api/days/2024-01-01/habits": "/api/days/{date}/habits",
		"/api/habits/9b2e6f7a-1c3d-4e5f-8a9b-0c1d2e3f4a5b/move": "/api/habits/{id}/move",
		"/api/health": "/api/health",
	}
	for in, want := range cases {
		if got := normalizeRoute(in); got != want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", in, got, want)
		}
	}
}
