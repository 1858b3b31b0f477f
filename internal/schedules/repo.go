package schedules

import (
	"context"
	"time"

	"github.com/example/teetime-sniper/internal/booking"
	"github.com/example/teetime-sniper/internal/db"
	"github.com/example/teetime-sniper/internal/engine"
)

// Repo stores schedule descriptors grouped by task name, plus per-run results
// for post-hoc inspection.
type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

func (r *Repo) Create(ctx context.Context, task string, s booking.Schedule) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO schedules(task,name,facility_ids,start_time,duration_min,buffer_max,weekdays,quantity,target_date,players,holes)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id`,
		task, s.ID, s.FacilityIDs, s.Start, int(s.Duration.Minutes()), s.BufferMax,
		joinWeekdays(s.Weekdays), s.Quantity, nullDate(s.Date), s.Players, s.Holes,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func (r *Repo) ListByTask(ctx context.Context, task string) ([]booking.Schedule, error) {
	rows, err := r.db.Query(ctx, `
SELECT name,facility_ids,start_time,duration_min,buffer_max,weekdays,quantity,target_date,players,holes
FROM schedules
WHERE task=$1
ORDER BY name`, task)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Schedule
	for rows.Next() {
		var s booking.Schedule
		var durationMin int
		var weekdays string
		var targetDate *time.Time
		if err := rows.Scan(&s.ID, &s.FacilityIDs, &s.Start, &durationMin, &s.BufferMax,
			&weekdays, &s.Quantity, &targetDate, &s.Players, &s.Holes); err != nil {
			return nil, err
		}
		s.Duration = time.Duration(durationMin) * time.Minute
		if s.Weekdays, err = parseWeekdays(weekdays); err != nil {
			return nil, err
		}
		if targetDate != nil {
			s.Date = *targetDate
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := validateAll(out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordResult persists one loop's outcome for a finished run.
func (r *Repo) RecordResult(ctx context.Context, task string, res engine.Result, runErr error) error {
	detail := ""
	if runErr != nil {
		detail = runErr.Error()
	}
	state := string(res.State)
	if state == "" {
		// run failed before the state machine produced a label
		state = "error"
	}
	return r.db.Exec(ctx, `
INSERT INTO run_results(task,schedule_name,state,attempts,window_start,window_end,facility_id,claimed,detail)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		task, res.ScheduleID, state, res.Attempts,
		res.Window.Start, res.Window.End, res.Window.Facility, len(res.Claimed), detail)
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
