package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored data.
type DataStats struct {
	TotalAnalyses    int64        `json:"total_analyses"`
	TotalReps        int64        `json:"total_reps"`
	CorrectReps      int64        `json:"correct_reps"`
	EarliestData     *time.Time   `json:"earliest_data"`
	LatestData       *time.Time   `json:"latest_data"`
	AnalysesBySource []SourceStat `json:"analyses_by_source"`
}

// SourceStat holds summary stats for one analysis source.
type SourceStat struct {
	Source        string  `json:"source"`
	Count         int64   `json:"count"`
	TotalReps     int64   `json:"total_reps"`
	TotalDuration float64 `json:"total_duration_sec"`
}

// GetDataStats returns aggregate statistics for a user's stored data.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{AnalysesBySource: []SourceStat{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(created_at), MAX(created_at) FROM analyses WHERE user_id = $1`, userID,
	).Scan(&stats.TotalAnalyses, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting analyses: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE correct) FROM reps WHERE user_id = $1`, userID,
	).Scan(&stats.TotalReps, &stats.CorrectReps)
	if err != nil {
		return nil, fmt.Errorf("counting reps: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT source, COUNT(*), COALESCE(SUM(total_reps), 0), COALESCE(SUM(duration_sec), 0)
		 FROM analyses
		 WHERE user_id = $1
		 GROUP BY source
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying analyses by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s SourceStat
		if err := rows.Scan(&s.Source, &s.Count, &s.TotalReps, &s.TotalDuration); err != nil {
			return nil, fmt.Errorf("scanning source stat: %w", err)
		}
		stats.AnalysesBySource = append(stats.AnalysesBySource, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
