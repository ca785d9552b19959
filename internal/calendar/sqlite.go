package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLStore is a sqlite backed Store.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the calendar database at path and applies the schema.
func Open(path string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create calendar directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open calendar database: %w", err)
	}

	// modernc sqlite misbehaves with concurrent writers on one file.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	store := &SQLStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recruiters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		email TEXT,
		timezone TEXT NOT NULL DEFAULT 'UTC'
	);

	CREATE TABLE IF NOT EXISTS slots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recruiter_id INTEGER NOT NULL REFERENCES recruiters(id),
		start_at INTEGER NOT NULL,
		end_at INTEGER NOT NULL,
		is_available INTEGER NOT NULL DEFAULT 1,
		UNIQUE(recruiter_id, start_at)
	);

	CREATE TABLE IF NOT EXISTS appointments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slot_id INTEGER NOT NULL REFERENCES slots(id),
		candidate_name TEXT NOT NULL,
		candidate_email TEXT,
		candidate_phone TEXT,
		interview_type TEXT,
		notes TEXT,
		conversation_id TEXT,
		status TEXT NOT NULL DEFAULT 'scheduled',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slots_start ON slots(start_at);
	CREATE INDEX IF NOT EXISTS idx_appointments_slot ON appointments(slot_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init calendar schema: %w", err)
	}

	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ListSlots returns slots matching the params ordered by start time. A slot is
// available when it is open and carries no active appointment.
func (s *SQLStore) ListSlots(ctx context.Context, params ListSlotsParams) ([]Slot, error) {
	query := `
	SELECT s.id, s.recruiter_id, r.name, s.start_at, s.end_at,
		CASE WHEN s.is_available = 1 AND a.id IS NULL THEN 1 ELSE 0 END AS available
	FROM slots s
	JOIN recruiters r ON r.id = s.recruiter_id
	LEFT JOIN appointments a ON a.slot_id = s.id AND a.status != 'cancelled'
	`

	var (
		where []string
		args  []any
	)

	if !params.From.IsZero() {
		where = append(where, "s.start_at >= ?")
		args = append(args, params.From.UTC().Unix())
	}
	if !params.To.IsZero() {
		where = append(where, "s.start_at < ?")
		args = append(args, params.To.UTC().Unix())
	}
	if params.RecruiterID != 0 {
		where = append(where, "s.recruiter_id = ?")
		args = append(args, params.RecruiterID)
	}
	if params.AvailableOnly {
		where = append(where, "s.is_available = 1 AND a.id IS NULL")
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.start_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var (
			slot       Slot
			start, end int64
			available  int
		)
		if err := rows.Scan(&slot.ID, &slot.RecruiterID, &slot.Recruiter, &start, &end, &available); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slot.Start = time.Unix(start, 0).UTC()
		slot.End = time.Unix(end, 0).UTC()
		slot.Available = available == 1
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	return slots, nil
}

// CreateAppointment books the requested slot. The availability check and the
// insert run in one transaction so a slot can never be double booked.
func (s *SQLStore) CreateAppointment(ctx context.Context, req AppointmentRequest) (*Appointment, error) {
	if strings.TrimSpace(req.CandidateName) == "" {
		return nil, errors.New("candidate name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback()

	var (
		open       int
		booked     int
		start, end int64
		recruiter  string
	)
	err = tx.QueryRowContext(ctx, `
	SELECT s.is_available, s.start_at, s.end_at, r.name,
		EXISTS(SELECT 1 FROM appointments a WHERE a.slot_id = s.id AND a.status != 'cancelled')
	FROM slots s
	JOIN recruiters r ON r.id = s.recruiter_id
	WHERE s.id = ?`, req.SlotID).Scan(&open, &start, &end, &recruiter, &booked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slot %d: %w", req.SlotID, ErrSlotUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("check slot %d: %w", req.SlotID, err)
	}

	if open != 1 || booked == 1 {
		return nil, fmt.Errorf("slot %d: %w", req.SlotID, ErrSlotUnavailable)
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
	INSERT INTO appointments (slot_id, candidate_name, candidate_email, candidate_phone, interview_type, notes, conversation_id, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, 'scheduled', ?)`,
		req.SlotID, req.CandidateName, req.CandidateEmail, req.CandidatePhone,
		req.InterviewType, req.Notes, req.ConversationID, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("appointment id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	s.logger.Info("appointment booked",
		zap.Int64("appointment_id", id),
		zap.Int64("slot_id", req.SlotID),
		zap.String("recruiter", recruiter),
	)

	return &Appointment{
		ID:            id,
		SlotID:        req.SlotID,
		Recruiter:     recruiter,
		CandidateName: req.CandidateName,
		Start:         time.Unix(start, 0).UTC(),
		End:           time.Unix(end, 0).UTC(),
		Status:        "scheduled",
		CreatedAt:     now,
	}, nil
}
