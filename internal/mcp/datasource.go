package mcp

import (
	"context"
	"time"

	"github.com/claude/curlform/internal/models"
	"github.com/claude/curlform/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryAnalyses(ctx context.Context, start, end time.Time, userID int) ([]models.AnalysisRow, error)
	RecentAnalyses(ctx context.Context, userID, limit int) ([]models.AnalysisRow, error)
	GetAnalysis(ctx context.Context, id uuid.UUID, userID int) (*storage.AnalysisDetail, error)
	GetFormSummary(ctx context.Context, start, end time.Time, bucket string, userID int) (*storage.FormSummary, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
