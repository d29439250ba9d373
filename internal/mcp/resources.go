package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/curlform/internal/curl"
	"github.com/mark3labs/mcp-go/mcp"
)

const recentLimit = 10

func (h *handlers) recentAnalyses(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	analyses, err := h.ds.RecentAnalyses(ctx, uid, recentLimit)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, analyses)
}

// formRule describes one failure reason.
type formRule struct {
	Code        curl.ReasonCode `json:"code"`
	Description string          `json:"description"`
}

func (h *handlers) formRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg := h.tracker
	rules := []formRule{
		{curl.ReasonDidNotReachDown, "The cycle did not start from the extended (DOWN) position"},
		{curl.ReasonNoTransition, "The arm never passed through the middle range"},
		{curl.ReasonDidNotReachUp, "The arm never reached the flexed (UP) position"},
		{curl.ReasonTorsoViolation, "The torso swung past the threshold during the cycle"},
	}
	if cfg.MinROM > 0 {
		rules = append(rules, formRule{curl.ReasonInsufficientROM, "Range of motion below the minimum"})
	}

	return jsonResource(req.Params.URI, map[string]any{
		"angle_threshold_down_deg":  cfg.AngleThresholdDown,
		"angle_threshold_up_deg":    cfg.AngleThresholdUp,
		"torso_angle_threshold_deg": cfg.TorsoAngleThreshold,
		"torso_window_frames":       curl.TorsoWindow,
		"min_hold_time_sec":         cfg.MinHoldTime.Seconds(),
		"min_rom_deg":               cfg.MinROM,
		"reasons":                   rules,
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
