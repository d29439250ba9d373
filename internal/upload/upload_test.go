package upload

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// curlCSV renders one full left-arm curl at 10 fps.
func curlCSV() string {
	angles := []float64{170, 170, 170, 100, 100, 100, 40, 40, 40, 40, 90, 90, 90, 165, 165, 165}
	var b strings.Builder
	b.WriteString("frame,time_s,left_angle_raw_deg,right_angle_raw_deg,left_torso_angle_deg,right_torso_angle_deg,left_aligned,right_aligned\n")
	for i, a := range angles {
		fmt.Fprintf(&b, "%d,%.3f,%.2f,,5.00,,1,1\n", i, float64(i)/10, a)
	}
	return b.String()
}

// recordings lays out a directory with two timelines, one broken landmark
// file and an unrelated note.
func recordings(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "monday"), 0o755)
	files := map[string]string{
		"set1.csv":         curlCSV(),
		"monday/set2.csv":  curlCSV(),
		"monday/pose.json": `{"frames":[]}`,
		"notes.txt":        "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// TestKindOf verifies file extensions map to recording kinds.
func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want Kind
		ok   bool
	}{
		{"a/b.csv", KindTimeline, true},
		{"B.CSV", KindTimeline, true},
		{"x.json", KindLandmarks, true},
		{"x.mp4", "", false},
	}
	for _, tt := range tests {
		got, ok := KindOf(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("KindOf(%q) = %q, %v", tt.path, got, ok)
		}
	}
}

// TestRunDryRun verifies dry-run analyzes locally and records nothing.
func TestRunDryRun(t *testing.T) {
	dir := recordings(t)
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	u := New(NewClient("http://127.0.0.1:0", ""), state, dir, true, curl.DefaultConfig(), testLogger())
	stats, err := u.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesTotal != 3 || stats.FilesUploaded != 2 || stats.FilesErrored != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.RepsCounted != 2 || stats.CorrectReps != 2 {
		t.Errorf("reps = %d correct = %d, want 2/2", stats.RepsCounted, stats.CorrectReps)
	}
	files, _ := state.Uploaded()
	if len(files) != 0 {
		t.Errorf("dry-run recorded %d uploads", len(files))
	}
}

// TestRunUploadsOnce verifies files are sent once and skipped on the next run.
func TestRunUploadsOnce(t *testing.T) {
	dir := recordings(t)
	var mu sync.Mutex
	var names []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/landmarks") {
			http.Error(w, "payload has no frames", http.StatusBadRequest)
			return
		}
		mu.Lock()
		names = append(names, r.URL.Query().Get("name"))
		mu.Unlock()
		json.NewEncoder(w).Encode(ingest.Result{AnalysisID: "id", TotalReps: 1, CorrectReps: 1})
	}))
	defer srv.Close()

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	first, err := New(testClient(srv.URL), state, dir, false, curl.DefaultConfig(), testLogger()).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.FilesUploaded != 2 || first.FilesErrored != 1 {
		t.Errorf("first run = %+v", first)
	}
	if len(names) != 2 {
		t.Errorf("server saw %v", names)
	}

	second, err := New(testClient(srv.URL), state, dir, false, curl.DefaultConfig(), testLogger()).Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.FilesSkipped != 2 || second.FilesUploaded != 0 || second.FilesErrored != 1 {
		t.Errorf("second run = %+v", second)
	}
}
