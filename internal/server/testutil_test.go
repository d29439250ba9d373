package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest/landmarks"
	"github.com/claude/curlform/internal/ingest/timeline"
	"github.com/claude/curlform/internal/models"
	"github.com/claude/curlform/internal/storage"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore records writes in memory. Methods not overridden panic through
// the nil embedded interface.
type fakeStore struct {
	Store

	mu       sync.Mutex
	analyses []models.AnalysisRow
	reps     []models.RepRow
	logs     []storage.ImportLog
	users    map[string]int
}

func (f *fakeStore) InsertAnalysis(_ context.Context, row models.AnalysisRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, row)
	return nil
}

func (f *fakeStore) InsertReps(_ context.Context, rows []models.RepRow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reps = append(f.reps, rows...)
	return int64(len(rows)), nil
}

func (f *fakeStore) InsertImportLog(_ context.Context, l storage.ImportLog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return int64(len(f.logs)), nil
}

func (f *fakeStore) QueryAnalyses(_ context.Context, start, end time.Time, userID int) ([]models.AnalysisRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnalysisRow
	for _, a := range f.analyses {
		if a.UserID == userID && !a.CreatedAt.Before(start) && a.CreatedAt.Before(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAnalysis(_ context.Context, id uuid.UUID, userID int) (*storage.AnalysisDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.analyses {
		if a.ID == id && a.UserID == userID {
			d := &storage.AnalysisDetail{AnalysisRow: a, Reps: []models.RepRow{}}
			for _, r := range f.reps {
				if r.AnalysisID == id {
					d.Reps = append(d.Reps, r)
				}
			}
			return d, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[string]int{"local": 1}
	}
	if id, ok := f.users[login]; ok {
		return id, nil
	}
	id := len(f.users) + 1
	f.users[login] = id
	return id, nil
}

func (f *fakeStore) importLogs() []storage.ImportLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.ImportLog(nil), f.logs...)
}

func newTestServer(t *testing.T, store *fakeStore) *Server {
	t.Helper()
	cfg := curl.DefaultConfig()
	log := testLogger()
	return New(store,
		timeline.NewProvider(store, cfg, log),
		landmarks.NewProvider(store, cfg, log),
		cfg, testAPIKey, log)
}

var curlAngles = []float64{170, 170, 170, 100, 100, 100, 40, 40, 40, 40, 90, 90, 90, 165, 165, 165}

// curlCSV renders one full left-arm curl at 10 fps.
func curlCSV() string {
	var b strings.Builder
	b.WriteString("frame,time_s,left_angle_raw_deg,right_angle_raw_deg,left_torso_angle_deg,right_torso_angle_deg,left_aligned,right_aligned\n")
	for i, a := range curlAngles {
		fmt.Fprintf(&b, "%d,%.3f,%.2f,,5.00,,1,1\n", i, float64(i)/10, a)
	}
	return b.String()
}

// curlFrames is the same curl as live frames.
func curlFrames() []curl.FrameSample {
	out := make([]curl.FrameSample, len(curlAngles))
	for i, a := range curlAngles {
		out[i] = curl.FrameSample{
			At:   time.Duration(i) * 100 * time.Millisecond,
			Left: curl.ArmSample{Angle: curl.Float(a), TorsoAngle: curl.Float(5), Aligned: true, Visible: true, Confidence: 1},
		}
	}
	return out
}
