// Package upload walks a directory of recorded sessions and sends new files
// to the curlform server, remembering what was sent in a local SQLite file.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/ingest/landmarks"
	"github.com/claude/curlform/internal/ingest/timeline"
)

// Kind is the recording format of a file.
type Kind string

const (
	KindTimeline  Kind = "timeline"
	KindLandmarks Kind = "landmarks"
)

// KindOf maps a file name to its recording kind by extension.
func KindOf(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return KindTimeline, true
	case ".json":
		return KindLandmarks, true
	}
	return "", false
}

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	RepsCounted   int
	CorrectReps   int
	IncorrectReps int

	Results []FileResult
}

// FileResult is the analysis returned for one file.
type FileResult struct {
	Path   string
	Kind   Kind
	Result *ingest.Result
}

// Uploader walks a recordings directory and POSTs new files to the server.
type Uploader struct {
	client  *Client
	state   *StateDB
	dir     string
	dryRun  bool
	tracker curl.Config
	log     *slog.Logger
	stats   Stats
}

// New creates a new Uploader. In dry-run mode files are analyzed locally with
// the given tracker config and nothing is sent or recorded.
func New(client *Client, state *StateDB, dir string, dryRun bool, tracker curl.Config, log *slog.Logger) *Uploader {
	return &Uploader{
		client:  client,
		state:   state,
		dir:     dir,
		dryRun:  dryRun,
		tracker: tracker,
		log:     log,
	}
}

// Run executes the upload pipeline.
func (u *Uploader) Run() (*Stats, error) {
	err := filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		kind, ok := KindOf(path)
		if !ok {
			return nil
		}
		u.stats.FilesTotal++
		u.processFile(path, kind)
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("walking %s: %w", u.dir, err)
	}
	return &u.stats, nil
}

// processFile uploads a single file. Failures are logged and counted so one
// bad recording does not stop the walk.
func (u *Uploader) processFile(path string, kind Kind) {
	relPath, _ := filepath.Rel(u.dir, path)
	info, err := os.Stat(path)
	if err != nil {
		u.log.Warn("stat failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}

	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}

	uploaded, err := u.state.IsUploaded(relPath, info.Size(), hash)
	if err != nil {
		u.log.Warn("state check failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}
	if uploaded {
		u.stats.FilesSkipped++
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		u.log.Warn("read failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}

	var res *ingest.Result
	if u.dryRun {
		res, err = u.analyze(kind, filepath.Base(path), data)
	} else {
		res, err = u.send(kind, filepath.Base(path), data)
	}
	if err != nil {
		u.log.Warn("upload failed", "file", relPath, "kind", kind, "error", err)
		u.stats.FilesErrored++
		return
	}

	if u.dryRun {
		u.log.Info("dry-run: would send", "file", relPath, "kind", kind, "reps", res.TotalReps)
	} else {
		if err := u.state.MarkUploaded(relPath, info.Size(), hash, res.AnalysisID, res.TotalReps); err != nil {
			u.log.Warn("marking uploaded failed", "file", relPath, "error", err)
		}
		u.log.Info("uploaded", "file", relPath, "kind", kind, "analysis_id", res.AnalysisID, "reps", res.TotalReps)
	}

	u.stats.FilesUploaded++
	u.stats.RepsCounted += res.TotalReps
	u.stats.CorrectReps += res.CorrectReps
	u.stats.IncorrectReps += res.IncorrectReps
	u.stats.Results = append(u.stats.Results, FileResult{Path: relPath, Kind: kind, Result: res})
}

func (u *Uploader) send(kind Kind, name string, data []byte) (*ingest.Result, error) {
	if kind == KindLandmarks {
		return u.client.SendLandmarks(data)
	}
	return u.client.SendTimeline(name, data)
}

// analyze runs the same pipeline the server would, without a store.
func (u *Uploader) analyze(kind Kind, name string, data []byte) (*ingest.Result, error) {
	ctx := context.Background()
	if kind == KindLandmarks {
		return landmarks.NewProvider(nil, u.tracker, u.log).Ingest(ctx, bytes.NewReader(data), 0)
	}
	return timeline.NewProvider(nil, u.tracker, u.log).Ingest(ctx, bytes.NewReader(data), name, 0)
}
