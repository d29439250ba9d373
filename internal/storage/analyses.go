package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/curlform/internal/models"
	"github.com/google/uuid"
)

const analysisColumns = `id, user_id, name, source, created_at, frame_count, frames_used,
	 duration_sec, fps, total_reps, left_reps, right_reps, left_correct, left_incorrect,
	 right_correct, right_incorrect, form_feedback, config`

// InsertAnalysis inserts an analysis row.
func (db *DB) InsertAnalysis(ctx context.Context, row models.AnalysisRow) error {
	config := row.Config
	if len(config) == 0 {
		config = []byte("{}")
	}
	feedback := row.FormFeedback
	if feedback == nil {
		feedback = []string{}
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO analyses (`+analysisColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		row.ID, row.UserID, row.Name, row.Source, row.CreatedAt, row.FrameCount, row.FramesUsed,
		row.DurationSec, row.FPS, row.TotalReps, row.LeftReps, row.RightReps,
		row.LeftCorrect, row.LeftIncorrect, row.RightCorrect, row.RightIncorrect,
		feedback, config)
	if err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}
	return nil
}

// AnalysisDetail is an analysis with its counted reps.
type AnalysisDetail struct {
	models.AnalysisRow
	Reps []models.RepRow `json:"reps"`
}

// QueryAnalyses retrieves analyses created in a time range, newest first.
func (db *DB) QueryAnalyses(ctx context.Context, start, end time.Time, userID int) ([]models.AnalysisRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+analysisColumns+`
		 FROM analyses
		 WHERE created_at >= $1 AND created_at < $2 AND user_id = $3
		 ORDER BY created_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	var result []models.AnalysisRow
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// RecentAnalyses returns the newest analyses for a user.
func (db *DB) RecentAnalyses(ctx context.Context, userID, limit int) ([]models.AnalysisRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT `+analysisColumns+`
		 FROM analyses
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent analyses: %w", err)
	}
	defer rows.Close()

	var result []models.AnalysisRow
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// GetAnalysis retrieves a single analysis with its reps. It returns
// ErrNotFound when the analysis does not exist for the user.
func (db *DB) GetAnalysis(ctx context.Context, id uuid.UUID, userID int) (*AnalysisDetail, error) {
	a, err := scanAnalysis(db.Pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1 AND user_id = $2`,
		id, userID))
	if err != nil {
		return nil, notFound(err)
	}

	reps, err := db.QueryReps(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return &AnalysisDetail{AnalysisRow: a, Reps: reps}, nil
}

// DeleteAnalysis removes an analysis and, by cascade, its reps.
func (db *DB) DeleteAnalysis(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (models.AnalysisRow, error) {
	var a models.AnalysisRow
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Source, &a.CreatedAt, &a.FrameCount, &a.FramesUsed,
		&a.DurationSec, &a.FPS, &a.TotalReps, &a.LeftReps, &a.RightReps,
		&a.LeftCorrect, &a.LeftIncorrect, &a.RightCorrect, &a.RightIncorrect,
		&a.FormFeedback, &a.Config)
	if err != nil {
		return a, fmt.Errorf("scanning analysis: %w", err)
	}
	return a, nil
}

// HasAnalysis reports whether the user already has an analysis with the name.
func (db *DB) HasAnalysis(ctx context.Context, userID int, name string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM analyses WHERE user_id = $1 AND name = $2)`,
		userID, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking analysis %q: %w", name, err)
	}
	return exists, nil
}
