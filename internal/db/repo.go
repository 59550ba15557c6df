package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"prescription-chatbot/pkg"
)

// Repository stores intake sessions in Postgres.  The caller owns the
// sql.DB and its lifecycle.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// OpenPostgres opens and pings a Postgres database through lib/pq.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Get loads the session with the given id.
func (r *Repository) Get(ctx context.Context, id string) (*pkg.Session, error) {
	s := pkg.Session{ID: id}
	rec := &s.Record
	err := r.DB.QueryRowContext(ctx,
		`SELECT patient_name, patient_age, diagnosis, medication, dosage, duration,
                special_instructions, created_at, updated_at
         FROM intake_sessions
         WHERE id = $1`,
		id,
	).Scan(&rec.PatientName, &rec.PatientAge, &rec.Diagnosis, &rec.Medication, &rec.Dosage,
		&rec.Duration, &rec.SpecialInstructions, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save inserts the session or replaces every field of the stored row in a
// single statement.
func (r *Repository) Save(ctx context.Context, s *pkg.Session) error {
	rec := s.Record
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO intake_sessions (id, patient_name, patient_age, diagnosis, medication, dosage,
                                     duration, special_instructions, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         ON CONFLICT (id) DO UPDATE
         SET patient_name = EXCLUDED.patient_name,
             patient_age = EXCLUDED.patient_age,
             diagnosis = EXCLUDED.diagnosis,
             medication = EXCLUDED.medication,
             dosage = EXCLUDED.dosage,
             duration = EXCLUDED.duration,
             special_instructions = EXCLUDED.special_instructions,
             updated_at = EXCLUDED.updated_at`,
		s.ID, rec.PatientName, rec.PatientAge, rec.Diagnosis, rec.Medication, rec.Dosage,
		rec.Duration, rec.SpecialInstructions, nonZero(s.CreatedAt), nonZero(s.UpdatedAt),
	)
	return err
}

// Sweep deletes sessions not updated since before and returns how many rows
// were removed.
func (r *Repository) Sweep(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM intake_sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nonZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
