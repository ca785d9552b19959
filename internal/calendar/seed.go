package calendar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"recruit-agent/internal/timeparse"
)

var seedRecruiters = []struct {
	name     string
	email    string
	timezone string
}{
	{"Sarah Mitchell", "sarah.mitchell@example.com", "UTC"},
	{"James Okafor", "james.okafor@example.com", "UTC"},
	{"Priya Raman", "priya.raman@example.com", "UTC"},
}

// Seed fills an empty calendar with hourly interview slots on business days
// over the given horizon, starting tomorrow. A calendar that already has
// slots is left untouched.
func (s *SQLStore) Seed(ctx context.Context, from time.Time, days int) error {
	var existing int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM slots").Scan(&existing); err != nil {
		return fmt.Errorf("count slots: %w", err)
	}
	if existing > 0 {
		s.logger.Debug("calendar already seeded", zap.Int("slots", existing))
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	recruiterIDs := make([]int64, 0, len(seedRecruiters))
	for _, r := range seedRecruiters {
		result, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO recruiters (name, email, timezone) VALUES (?, ?, ?)",
			r.name, r.email, r.timezone,
		)
		if err != nil {
			return fmt.Errorf("insert recruiter %s: %w", r.name, err)
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("recruiter insert result: %w", err)
		}

		// An ignored insert still reports the connection's previous rowid,
		// so the id has to come from a lookup instead.
		var id int64
		if inserted > 0 {
			if id, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("recruiter id: %w", err)
			}
		} else {
			if err := tx.QueryRowContext(ctx, "SELECT id FROM recruiters WHERE name = ?", r.name).Scan(&id); err != nil {
				return fmt.Errorf("lookup recruiter %s: %w", r.name, err)
			}
		}
		recruiterIDs = append(recruiterIDs, id)
	}

	if days <= 0 {
		days = 14
	}

	created := 0
	day := from.UTC()
	for i := 0; i < days; i++ {
		day = day.AddDate(0, 0, 1)
		if !timeparse.IsBusinessDay(day) {
			continue
		}

		for hour := timeparse.BusinessStartHour; hour < timeparse.BusinessEndHour; hour++ {
			start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
			recruiterID := recruiterIDs[(i+hour)%len(recruiterIDs)]

			_, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO slots (recruiter_id, start_at, end_at, is_available) VALUES (?, ?, ?, 1)",
				recruiterID, start.Unix(), start.Add(DefaultDuration).Unix(),
			)
			if err != nil {
				return fmt.Errorf("insert slot at %v: %w", start, err)
			}
			created++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	s.logger.Info("calendar seeded",
		zap.Int("slots", created),
		zap.Int("recruiters", len(recruiterIDs)),
		zap.Int("days", days),
	)

	return nil
}
