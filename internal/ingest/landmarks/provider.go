// Package landmarks analyzes raw pose-landmark recordings.
package landmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/ingest"
	"github.com/claude/curlform/internal/models"
	"github.com/claude/curlform/internal/pose"
)

// Payload is a recorded landmark stream as exported by a pose estimator.
type Payload struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
	Frames []Frame `json:"frames"`
}

// Frame is one video frame. T is seconds from the start of the video; when
// absent it is derived from the frame index and FPS.
type Frame struct {
	T         *float64     `json:"t,omitempty"`
	Landmarks [][4]float64 `json:"landmarks"`
}

// Decode reads and validates a payload.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decoding landmarks: %w", err)
	}
	if len(p.Frames) == 0 {
		return nil, errors.New("payload has no frames")
	}
	for i, f := range p.Frames {
		if f.T == nil && p.FPS <= 0 {
			return nil, fmt.Errorf("frame %d has no time and fps is not set", i)
		}
	}
	return &p, nil
}

// Samples converts every frame into tracker input.
func (p *Payload) Samples(cfg curl.Config) []curl.FrameSample {
	out := make([]curl.FrameSample, len(p.Frames))
	for i, f := range p.Frames {
		var t float64
		if f.T != nil {
			t = *f.T
		} else {
			t = float64(i) / p.FPS
		}
		lm := make(pose.Frame, len(f.Landmarks))
		for j, v := range f.Landmarks {
			lm[j] = pose.Landmark{X: v[0], Y: v[1], Z: v[2], Visibility: v[3]}
		}
		out[i] = pose.Sample(lm, curl.Seconds(t), p.Width, p.Height, cfg)
	}
	return out
}

// Provider analyzes uploaded landmark recordings.
type Provider struct {
	store ingest.Store
	cfg   curl.Config
	log   *slog.Logger
}

// NewProvider creates a landmark ingest provider. A nil store analyzes
// without persisting.
func NewProvider(store ingest.Store, cfg curl.Config, log *slog.Logger) *Provider {
	return &Provider{store: store, cfg: cfg, log: log}
}

// Ingest decodes a landmark payload, derives per-arm samples, replays them
// and stores the analysis.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	payload, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return p.IngestPayload(ctx, payload, userID)
}

// IngestPayload analyzes an already decoded payload.
func (p *Provider) IngestPayload(ctx context.Context, payload *Payload, userID int) (*ingest.Result, error) {
	analysis, err := ingest.Replay(payload.Samples(p.cfg), p.cfg, p.log)
	if err != nil {
		return nil, fmt.Errorf("replaying landmarks: %w", err)
	}
	result := ingest.NewResult(payload.Name, analysis, payload.FPS)

	if p.store != nil {
		if err := ingest.Persist(ctx, p.store, userID, models.SourceLandmarks, result, p.cfg); err != nil {
			return nil, err
		}
	}

	p.log.Info("landmarks analyzed",
		"name", payload.Name,
		"user_id", userID,
		"frames", result.FramesReceived,
		"frames_used", result.FramesUsed,
		"reps", result.TotalReps,
	)
	return result, nil
}
