package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/models"
	"github.com/claude/curlform/internal/storage"
	"github.com/google/uuid"
)

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
}

// TestHealth verifies the health endpoint needs no identity or key.
func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// TestTimelineIngest verifies an uploaded CSV is analyzed, stored and logged.
func TestTimelineIngest(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/timeline?name=set1.csv", strings.NewReader(curlCSV()))
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res ingest.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Name != "set1.csv" || res.TotalReps != 1 || res.CorrectReps != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(store.analyses) != 1 || store.analyses[0].Source != models.SourceTimeline {
		t.Errorf("stored analyses = %+v", store.analyses)
	}

	logs := store.importLogs()
	if len(logs) != 1 {
		t.Fatalf("import logs = %d, want 1", len(logs))
	}
	l := logs[0]
	if l.Status != storage.ImportSuccess || l.RepsCounted != 1 || l.RepsInserted != 1 || l.AnalysisID == nil {
		t.Errorf("import log = %+v", l)
	}
}

// TestTimelineIngestRequiresKey verifies ingest is protected by the API key.
func TestTimelineIngestRequiresKey(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ingest/timeline", strings.NewReader(curlCSV())))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestTimelineIngestBadCSV verifies parse failures return 400 and log an error import.
func TestTimelineIngestBadCSV(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/timeline", strings.NewReader("frame,left_angle_raw_deg\n0,170\n"))
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	logs := store.importLogs()
	if len(logs) != 1 || logs[0].Status != storage.ImportError || logs[0].ErrorMessage == nil {
		t.Errorf("import logs = %+v", logs)
	}
}

// TestGetAnalysis verifies lookup by id, unknown ids and malformed ids.
func TestGetAnalysis(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{analyses: []models.AnalysisRow{{ID: id, UserID: 1, Name: "set", CreatedAt: time.Now()}}}
	srv := newTestServer(t, store)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/api/v1/analyses/" + id.String(), http.StatusOK},
		{"unknown", "/api/v1/analyses/" + uuid.NewString(), http.StatusNotFound},
		{"malformed", "/api/v1/analyses/nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestQueryAnalysesBadRange verifies unparsable dates are rejected.
func TestQueryAnalysesBadRange(t *testing.T) {
	srv := newTestServer(t, &fakeStore{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?start=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestParseTimeRange verifies date-only ends cover the whole day.
func TestParseTimeRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?start=2026-03-01&end=2026-03-02", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
	if want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("end = %v, want %v", end, want)
	}
}

// TestParseBucket verifies the agg parameter mapping.
func TestParseBucket(t *testing.T) {
	tests := map[string]string{
		"daily":   "1 day",
		"weekly":  "1 week",
		"monthly": "1 month",
		"":        "1 week",
	}
	for agg, want := range tests {
		if got := parseBucket(agg); got != want {
			t.Errorf("parseBucket(%q) = %q, want %q", agg, got, want)
		}
	}
}
