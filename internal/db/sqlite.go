package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"prescription-chatbot/pkg"
)

// timeLayout is fixed-width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS intake_sessions (
	id                   TEXT PRIMARY KEY,
	patient_name         TEXT,
	patient_age          TEXT,
	diagnosis            TEXT,
	medication           TEXT,
	dosage               TEXT,
	duration             TEXT,
	special_instructions TEXT,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS intake_sessions_updated_at_idx ON intake_sessions (updated_at);
`

// SQLiteStore persists sessions in a local SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

type sessionRow struct {
	ID                  string  `db:"id"`
	PatientName         *string `db:"patient_name"`
	PatientAge          *string `db:"patient_age"`
	Diagnosis           *string `db:"diagnosis"`
	Medication          *string `db:"medication"`
	Dosage              *string `db:"dosage"`
	Duration            *string `db:"duration"`
	SpecialInstructions *string `db:"special_instructions"`
	CreatedAt           string  `db:"created_at"`
	UpdatedAt           string  `db:"updated_at"`
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get loads the session with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*pkg.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM intake_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess := &pkg.Session{
		ID: row.ID,
		Record: pkg.Record{
			PatientName:         row.PatientName,
			PatientAge:          row.PatientAge,
			Diagnosis:           row.Diagnosis,
			Medication:          row.Medication,
			Dosage:              row.Dosage,
			Duration:            row.Duration,
			SpecialInstructions: row.SpecialInstructions,
		},
	}
	if sess.CreatedAt, err = time.Parse(timeLayout, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("session %s: bad created_at %q: %w", id, row.CreatedAt, err)
	}
	if sess.UpdatedAt, err = time.Parse(timeLayout, row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("session %s: bad updated_at %q: %w", id, row.UpdatedAt, err)
	}
	return sess, nil
}

// Save inserts or replaces the whole session row.
func (s *SQLiteStore) Save(ctx context.Context, sess *pkg.Session) error {
	rec := sess.Record
	row := sessionRow{
		ID:                  sess.ID,
		PatientName:         rec.PatientName,
		PatientAge:          rec.PatientAge,
		Diagnosis:           rec.Diagnosis,
		Medication:          rec.Medication,
		Dosage:              rec.Dosage,
		Duration:            rec.Duration,
		SpecialInstructions: rec.SpecialInstructions,
		CreatedAt:           formatTime(sess.CreatedAt),
		UpdatedAt:           formatTime(sess.UpdatedAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO intake_sessions (id, patient_name, patient_age, diagnosis, medication, dosage,
			duration, special_instructions, created_at, updated_at)
		VALUES (:id, :patient_name, :patient_age, :diagnosis, :medication, :dosage,
			:duration, :special_instructions, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			patient_name = excluded.patient_name,
			patient_age = excluded.patient_age,
			diagnosis = excluded.diagnosis,
			medication = excluded.medication,
			dosage = excluded.dosage,
			duration = excluded.duration,
			special_instructions = excluded.special_instructions,
			updated_at = excluded.updated_at`, row)
	return err
}

// Sweep deletes sessions not updated since before.
func (s *SQLiteStore) Sweep(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM intake_sessions WHERE updated_at < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string {
	return nonZero(t).Format(timeLayout)
}
