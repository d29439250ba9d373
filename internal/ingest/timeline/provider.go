package timeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/models"
)

// Provider analyzes uploaded timeline CSVs.
type Provider struct {
	store ingest.Store
	cfg   curl.Config
	log   *slog.Logger
}

// NewProvider creates a timeline ingest provider. A nil store analyzes
// without persisting.
func NewProvider(store ingest.Store, cfg curl.Config, log *slog.Logger) *Provider {
	return &Provider{store: store, cfg: cfg, log: log}
}

// Ingest parses a timeline, replays it through a fresh session and stores
// the analysis.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, name string, userID int) (*ingest.Result, error) {
	frames, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing timeline: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("timeline has no frames")
	}

	analysis, err := ingest.Replay(frames, p.cfg, p.log)
	if err != nil {
		return nil, fmt.Errorf("replaying timeline: %w", err)
	}
	result := ingest.NewResult(name, analysis, 0)

	if p.store != nil {
		if err := ingest.Persist(ctx, p.store, userID, models.SourceTimeline, result, p.cfg); err != nil {
			return nil, err
		}
	}

	p.log.Info("timeline analyzed",
		"name", name,
		"user_id", userID,
		"frames", result.FramesReceived,
		"reps", result.TotalReps,
		"correct", result.CorrectReps,
		"incorrect", result.IncorrectReps,
	)
	return result, nil
}
