// Package importer loads a directory of recordings straight into the
// database, bypassing the HTTP server.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/ingest/landmarks"
	"github.com/claude/curlform/internal/ingest/timeline"
	"github.com/claude/curlform/internal/storage"
	"github.com/google/uuid"
)

// SourceImport is the import log source for directory imports.
const SourceImport = "import"

// Store is the subset of storage the importer writes to.
type Store interface {
	ingest.Store
	HasAnalysis(ctx context.Context, userID int, name string) (bool, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	RepsCounted  int
	RepsInserted int64
	CorrectReps  int
}

// Importer reads timeline and landmark files and inserts analyses into the DB.
type Importer struct {
	db      Store
	tracker curl.Config
	log     *slog.Logger
	dryRun  bool
	userID  int
	stats   Stats
}

// New creates a new Importer writing analyses for userID.
func New(db Store, tracker curl.Config, userID int, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, tracker: tracker, userID: userID, log: log, dryRun: dryRun}
}

// Import processes every .csv and .json file under dir. Files whose relative
// path already names an analysis are skipped.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".csv" && ext != ".json" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		return imp.importFile(ctx, path, filepath.ToSlash(rel), ext)
	})
	if err != nil {
		return &imp.stats, fmt.Errorf("importing %s: %w", dir, err)
	}
	return &imp.stats, nil
}

// importFile analyzes one recording. Parse failures are counted and logged;
// only database errors abort the import.
func (imp *Importer) importFile(ctx context.Context, path, name, ext string) error {
	if !imp.dryRun {
		exists, err := imp.db.HasAnalysis(ctx, imp.userID, name)
		if err != nil {
			return fmt.Errorf("checking %s: %w", name, err)
		}
		if exists {
			imp.stats.FilesSkipped++
			return nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		imp.log.Warn("open failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}
	defer f.Close()

	var store ingest.Store
	var logID int64
	start := time.Now()
	if !imp.dryRun {
		store = imp.db
		logID, err = imp.db.InsertImportLog(ctx, storage.ImportLog{
			UserID:   imp.userID,
			Source:   SourceImport,
			Status:   storage.ImportRunning,
			Metadata: fileMetadata(name),
		})
		if err != nil {
			return err
		}
	}

	var res *ingest.Result
	if ext == ".json" {
		var payload *landmarks.Payload
		payload, err = landmarks.Decode(f)
		if err == nil {
			payload.Name = name
			res, err = landmarks.NewProvider(store, imp.tracker, imp.log).IngestPayload(ctx, payload, imp.userID)
		}
	} else {
		res, err = timeline.NewProvider(store, imp.tracker, imp.log).Ingest(ctx, f, name, imp.userID)
	}

	if !imp.dryRun {
		if uerr := imp.db.UpdateImportLog(ctx, logID, finishedLog(name, res, err, start)); uerr != nil {
			imp.log.Warn("updating import log failed", "file", name, "error", uerr)
		}
	}
	if err != nil {
		imp.log.Warn("import failed", "file", name, "error", err)
		imp.stats.FilesErrored++
		return nil
	}

	imp.stats.FilesProcessed++
	imp.stats.RepsCounted += res.TotalReps
	imp.stats.RepsInserted += res.RepsInserted
	imp.stats.CorrectReps += res.CorrectReps
	return nil
}

func fileMetadata(name string) *json.RawMessage {
	b, _ := json.Marshal(map[string]string{"file": name})
	raw := json.RawMessage(b)
	return &raw
}

func finishedLog(name string, res *ingest.Result, err error, start time.Time) storage.ImportLog {
	ms := int(time.Since(start).Milliseconds())
	log := storage.ImportLog{Status: storage.ImportSuccess, DurationMs: &ms, Metadata: fileMetadata(name)}
	if err != nil {
		msg := err.Error()
		log.Status = storage.ImportError
		log.ErrorMessage = &msg
		return log
	}
	if id, perr := uuid.Parse(res.AnalysisID); perr == nil {
		log.AnalysisID = &id
	}
	log.FramesReceived = res.FramesReceived
	log.RepsCounted = res.TotalReps
	log.RepsInserted = res.RepsInserted
	return log
}
