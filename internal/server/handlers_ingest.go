package server

import (
	"context"
	"net/http"
	"time"

	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/models"
	"github.com/claude/curlform/internal/storage"
	"github.com/google/uuid"
)

// maxUploadBytes bounds ingest request bodies.
const maxUploadBytes = 64 << 20

func (s *Server) handleTimelineIngest(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "timeline.csv"
	}

	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	result, err := s.timeline.Ingest(r.Context(), body, name, uid)
	s.logImport(uid, models.SourceTimeline, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("timeline ingest error", "name", name, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLandmarksIngest(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	result, err := s.landmarks.Ingest(r.Context(), body, uid)
	s.logImport(uid, models.SourceLandmarks, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("landmarks ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	entry := storage.ImportLog{
		UserID:     uid,
		Source:     source,
		Status:     storage.ImportSuccess,
		DurationMs: &durationMs,
	}
	if importErr != nil {
		entry.Status = storage.ImportError
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.FramesReceived = result.FramesReceived
		entry.RepsCounted = result.TotalReps
		entry.RepsInserted = result.RepsInserted
		if id, err := uuid.Parse(result.AnalysisID); err == nil {
			entry.AnalysisID = &id
		}
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
