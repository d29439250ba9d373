package storage

import (
	"context"
	"fmt"
	"time"
)

// FormSummary aggregates counted reps over a date range.
type FormSummary struct {
	Start   string        `json:"start"`
	End     string        `json:"end"`
	Bucket  string        `json:"bucket"`
	Sides   []SideSummary `json:"sides"`
	Reasons []ReasonCount `json:"reasons"`
	Periods []FormPeriod  `json:"periods"`
}

// SideSummary holds rep totals and averages for one arm.
type SideSummary struct {
	Side         string  `json:"side"`
	Reps         int     `json:"reps"`
	Correct      int     `json:"correct"`
	Incorrect    int     `json:"incorrect"`
	CorrectPct   float64 `json:"correct_pct"`
	AvgROM       float64 `json:"avg_rom"`
	AvgTempoUp   float64 `json:"avg_tempo_up_sec"`
	AvgTempoDown float64 `json:"avg_tempo_down_sec"`
}

// ReasonCount is how often a failure reason occurred.
type ReasonCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// FormPeriod is one bucket of the summary.
type FormPeriod struct {
	Period    string `json:"period"`
	Analyses  int    `json:"analyses"`
	Reps      int    `json:"reps"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// GetFormSummary returns per-side totals, failure reason frequencies and
// per-period rep counts for analyses created in [start, end).
func (db *DB) GetFormSummary(ctx context.Context, start, end time.Time, bucket string, userID int) (*FormSummary, error) {
	summary := &FormSummary{
		Start:   start.Format("2006-01-02"),
		End:     end.Format("2006-01-02"),
		Bucket:  bucket,
		Sides:   []SideSummary{},
		Reasons: []ReasonCount{},
		Periods: []FormPeriod{},
	}

	sideRows, err := db.Pool.Query(ctx,
		`SELECT r.side,
		        COUNT(*)::int,
		        COUNT(*) FILTER (WHERE r.correct)::int,
		        COALESCE(AVG(r.rom), 0),
		        COALESCE(AVG(r.tempo_up_sec), 0),
		        COALESCE(AVG(r.tempo_down_sec), 0)
		 FROM reps r
		 JOIN analyses a ON a.id = r.analysis_id
		 WHERE a.created_at >= $1 AND a.created_at < $2 AND r.user_id = $3
		 GROUP BY r.side
		 ORDER BY r.side`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying side summary: %w", err)
	}
	defer sideRows.Close()

	for sideRows.Next() {
		var s SideSummary
		if err := sideRows.Scan(&s.Side, &s.Reps, &s.Correct, &s.AvgROM, &s.AvgTempoUp, &s.AvgTempoDown); err != nil {
			return nil, fmt.Errorf("scanning side summary: %w", err)
		}
		s.Incorrect = s.Reps - s.Correct
		s.CorrectPct = percent(s.Correct, s.Reps)
		summary.Sides = append(summary.Sides, s)
	}
	if err := sideRows.Err(); err != nil {
		return nil, err
	}

	reasonRows, err := db.Pool.Query(ctx,
		`SELECT code, COUNT(*)::int
		 FROM reps r
		 JOIN analyses a ON a.id = r.analysis_id
		 CROSS JOIN LATERAL unnest(r.reason_codes) AS code
		 WHERE a.created_at >= $1 AND a.created_at < $2 AND r.user_id = $3
		 GROUP BY code
		 ORDER BY COUNT(*) DESC, code`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying reason counts: %w", err)
	}
	defer reasonRows.Close()

	for reasonRows.Next() {
		var rc ReasonCount
		if err := reasonRows.Scan(&rc.Code, &rc.Count); err != nil {
			return nil, fmt.Errorf("scanning reason count: %w", err)
		}
		summary.Reasons = append(summary.Reasons, rc)
	}
	if err := reasonRows.Err(); err != nil {
		return nil, err
	}

	periodRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, created_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(total_reps), 0)::int,
		        COALESCE(SUM(left_correct + right_correct), 0)::int,
		        COALESCE(SUM(left_incorrect + right_incorrect), 0)::int
		 FROM analyses
		 WHERE created_at >= $2 AND created_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying form periods: %w", err)
	}
	defer periodRows.Close()

	for periodRows.Next() {
		var periodTime time.Time
		var p FormPeriod
		if err := periodRows.Scan(&periodTime, &p.Analyses, &p.Reps, &p.Correct, &p.Incorrect); err != nil {
			return nil, fmt.Errorf("scanning form period: %w", err)
		}
		p.Period = periodTime.Format("2006-01-02")
		summary.Periods = append(summary.Periods, p)
	}
	if err := periodRows.Err(); err != nil {
		return nil, err
	}

	return summary, nil
}

// truncInterval maps a bucket name to a date_trunc field.
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "week"
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}
