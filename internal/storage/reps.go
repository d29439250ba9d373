package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/curlform/internal/models"
	"github.com/google/uuid"
)

const repColumnCount = 17

// InsertReps batch-inserts counted reps. Returns count inserted.
func (db *DB) InsertReps(ctx context.Context, rows []models.RepRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO reps (analysis_id, user_id, side, rep_index, start_sec, end_sec,
		correct, reason_codes, reasons, min_angle, max_angle, rom, max_torso_angle,
		tempo_up_sec, tempo_down_sec, frames, misaligned_frames) VALUES `
	args := make([]any, 0, len(rows)*repColumnCount)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * repColumnCount
		placeholders := make([]string, repColumnCount)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		args = append(args, r.AnalysisID, r.UserID, r.Side, r.RepIndex, r.StartSec, r.EndSec,
			r.Correct, nonNil(r.ReasonCodes), nonNil(r.Reasons), r.MinAngle, r.MaxAngle, r.ROM,
			r.MaxTorsoAngle, r.TempoUpSec, r.TempoDownSec, r.Frames, r.MisalignedFrames)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting reps: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryReps retrieves the reps of one analysis in the order they were counted.
func (db *DB) QueryReps(ctx context.Context, analysisID uuid.UUID, userID int) ([]models.RepRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT analysis_id, user_id, side, rep_index, start_sec, end_sec,
		 correct, reason_codes, reasons, min_angle, max_angle, rom, max_torso_angle,
		 tempo_up_sec, tempo_down_sec, frames, misaligned_frames
		 FROM reps
		 WHERE analysis_id = $1 AND user_id = $2
		 ORDER BY end_sec ASC, side ASC`,
		analysisID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying reps: %w", err)
	}
	defer rows.Close()

	result := []models.RepRow{}
	for rows.Next() {
		var r models.RepRow
		if err := rows.Scan(&r.AnalysisID, &r.UserID, &r.Side, &r.RepIndex, &r.StartSec, &r.EndSec,
			&r.Correct, &r.ReasonCodes, &r.Reasons, &r.MinAngle, &r.MaxAngle, &r.ROM,
			&r.MaxTorsoAngle, &r.TempoUpSec, &r.TempoDownSec, &r.Frames, &r.MisalignedFrames); err != nil {
			return nil, fmt.Errorf("scanning rep: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
