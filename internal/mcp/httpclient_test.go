package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

// jsonServer answers each path with a canned JSON body.
func jsonServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestQueryWorkoutLogs verifies the client decodes log rows and sends the
// time range as query parameters.
func TestQueryWorkoutLogs(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"id":"6b1884c8-83c3-4f0f-9b09-631978cf38b5","plan_name":"push day","total_sets":8}]`))
	}))
	defer srv.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	logs, err := NewHTTPClient(srv.URL).QueryWorkoutLogs(context.Background(), start, end, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 || logs[0].PlanName != "push day" || logs[0].TotalSets != 8 {
		t.Errorf("logs = %+v, want one push day row", logs)
	}
	if gotQuery == "" {
		t.Error("no query parameters sent")
	}
}

// TestGetWorkoutLog verifies the detail fetch includes child rows.
func TestGetWorkoutLog(t *testing.T) {
	logID := uuid.MustParse("6b1884c8-83c3-4f0f-9b09-631978cf38b5")
	srv := jsonServer(t, map[string]string{
		"/api/v1/logs/" + logID.String(): `{"id":"6b1884c8-83c3-4f0f-9b09-631978cf38b5","sets":[{"exercise_name":"Bench Press","reps":10}],"rest_intervals":[{"kind":"between_sets","rest_seconds":90}]}`,
	})

	detail, err := NewHTTPClient(srv.URL).GetWorkoutLog(context.Background(), logID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.ID != logID {
		t.Errorf("ID = %v, want %v", detail.ID, logID)
	}
	if len(detail.Sets) != 1 || detail.Sets[0].ExerciseName != "Bench Press" {
		t.Errorf("sets = %+v, want one Bench Press set", detail.Sets)
	}
	if len(detail.RestIntervals) != 1 || detail.RestIntervals[0].RestSeconds != 90 {
		t.Errorf("rest intervals = %+v, want one 90s interval", detail.RestIntervals)
	}
}

// TestQueryWorkoutSetsFilter verifies the exercise filter reaches the server.
func TestQueryWorkoutSetsFilter(t *testing.T) {
	var gotExercise string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotExercise = r.URL.Query().Get("exercise")
		w.Write([]byte(`[{"exercise_name":"Bench Press","reps":10,"weight_kg":50}]`))
	}))
	defer srv.Close()

	sets, err := NewHTTPClient(srv.URL).QueryWorkoutSets(context.Background(),
		time.Now().AddDate(0, 0, -7), time.Now(), 1, "bench")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotExercise != "bench" {
		t.Errorf("exercise filter = %q, want bench", gotExercise)
	}
	if len(sets) != 1 || sets[0].WeightKg != 50 {
		t.Errorf("sets = %+v, want one 50kg set", sets)
	}
}

// TestGetPersonalRecords verifies the PR list decodes.
func TestGetPersonalRecords(t *testing.T) {
	srv := jsonServer(t, map[string]string{
		"/api/v1/prs": `[{"exercise_name":"Deadlift","weight_kg":180,"reps":3}]`,
	})

	records, err := NewHTTPClient(srv.URL).GetPersonalRecords(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].WeightKg != 180 {
		t.Errorf("records = %+v, want one 180kg deadlift", records)
	}
}

// TestGetRestStats verifies the stats object decodes.
func TestGetRestStats(t *testing.T) {
	srv := jsonServer(t, map[string]string{
		"/api/v1/stats/rest": `{"intervals":12,"total_seconds":1080,"avg_seconds":90,"between_sets":10}`,
	})

	stats, err := NewHTTPClient(srv.URL).GetRestStats(context.Background(),
		time.Now().AddDate(0, 0, -30), time.Now(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Intervals != 12 || stats.AvgSeconds != 90 || stats.BetweenSets != 10 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestGetVolumeSummary verifies the bucket parameter and decoding.
func TestGetVolumeSummary(t *testing.T) {
	var gotBucket string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBucket = r.URL.Query().Get("bucket")
		w.Write([]byte(`[{"workouts":4,"total_sets":48,"total_volume_kg":9200}]`))
	}))
	defer srv.Close()

	summary, err := NewHTTPClient(srv.URL).GetVolumeSummary(context.Background(),
		time.Now().AddDate(0, -1, 0), time.Now(), "week", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBucket != "week" {
		t.Errorf("bucket = %q, want week", gotBucket)
	}
	if len(summary) != 1 || summary[0].TotalVolumeKg != 9200 {
		t.Errorf("summary = %+v", summary)
	}
}

// TestErrorStatus verifies non-200 responses surface as errors with the body.
func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).GetPersonalRecords(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}
