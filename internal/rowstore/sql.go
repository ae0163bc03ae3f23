package rowstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"wheelofnames/internal/apperr"
	"wheelofnames/internal/model"
)

const defaultHistoryLimit = 100

// Dialect selects placeholder style and schema types.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// SQL persists rows in Postgres or SQLite through database/sql.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQL creates a store over an open pool.
func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables the wheel needs when they are missing.
func (r *SQL) Migrate(ctx context.Context) error {
	ts := "TIMESTAMPTZ"
	if r.dialect == SQLite {
		ts = "TIMESTAMP"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id          TEXT PRIMARY KEY,
			class_id    TEXT NOT NULL,
			last_name   TEXT NOT NULL,
			first_name  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_students_class ON students(class_id)`,
		`CREATE TABLE IF NOT EXISTS wheel_activities (
			id          TEXT PRIMARY KEY,
			class_id    TEXT NOT NULL,
			name        TEXT NOT NULL,
			created_at  ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wheel_activities_class ON wheel_activities(class_id)`,
		`CREATE TABLE IF NOT EXISTS wheel_activity_states (
			activity_id TEXT NOT NULL REFERENCES wheel_activities(id) ON DELETE CASCADE,
			student_id  TEXT NOT NULL,
			status      TEXT NOT NULL CHECK (status IN ('selected', 'absent')),
			updated_at  ` + ts + ` NOT NULL,
			PRIMARY KEY (activity_id, student_id)
		)`,
		`CREATE TABLE IF NOT EXISTS wheel_history (
			id          TEXT PRIMARY KEY,
			class_id    TEXT NOT NULL,
			activity_id TEXT NOT NULL DEFAULT '',
			student_id  TEXT NOT NULL DEFAULT '',
			event       TEXT NOT NULL,
			occurred_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wheel_history_class ON wheel_history(class_id, occurred_at)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ListStudents returns a class roster by last name, then first name.
func (r *SQL) ListStudents(ctx context.Context, classID string) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, class_id, last_name, first_name
		FROM students
		WHERE class_id = ?
		ORDER BY last_name, first_name
	`), classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.ClassID, &s.LastName, &s.FirstName); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ListActivities returns a class's activities, newest first.
func (r *SQL) ListActivities(ctx context.Context, classID string) ([]model.Activity, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, class_id, name, created_at
		FROM wheel_activities
		WHERE class_id = ?
		ORDER BY created_at DESC
	`), classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.ClassID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// CreateActivity inserts a new activity.
func (r *SQL) CreateActivity(ctx context.Context, classID, name string) (model.Activity, error) {
	a := model.Activity{
		ID:        uuid.NewString(),
		ClassID:   classID,
		Name:      name,
		CreatedAt: r.now(),
	}
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO wheel_activities (id, class_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`), a.ID, a.ClassID, a.Name, a.CreatedAt)
	if err != nil {
		return model.Activity{}, err
	}
	return a, nil
}

// RenameActivity updates the name and returns the stored row.
func (r *SQL) RenameActivity(ctx context.Context, id, name string) (model.Activity, error) {
	res, err := r.db.ExecContext(ctx, r.rebind(`UPDATE wheel_activities SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		return model.Activity{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Activity{}, apperr.NotFound("rename activity", id)
	}
	row := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT id, class_id, name, created_at FROM wheel_activities WHERE id = ?
	`), id)
	var a model.Activity
	if err := row.Scan(&a.ID, &a.ClassID, &a.Name, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Activity{}, apperr.NotFound("rename activity", id)
		}
		return model.Activity{}, err
	}
	return a, nil
}

// DeleteActivity removes an activity together with its lifecycle rows.
func (r *SQL) DeleteActivity(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM wheel_activity_states WHERE activity_id = ?`), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM wheel_activities WHERE id = ?`), id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListLifecycleStates returns an activity's rows, oldest update first.
func (r *SQL) ListLifecycleStates(ctx context.Context, activityID string) ([]model.LifecycleState, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT activity_id, student_id, status, updated_at
		FROM wheel_activity_states
		WHERE activity_id = ?
		ORDER BY updated_at, student_id
	`), activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.LifecycleState
	for rows.Next() {
		var s model.LifecycleState
		var status string
		if err := rows.Scan(&s.ActivityID, &s.StudentID, &status, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Status = model.Status(status)
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpsertLifecycleState writes the status for (activity, student), replacing any previous one.
func (r *SQL) UpsertLifecycleState(ctx context.Context, activityID, studentID string, status model.Status) error {
	if !status.Persisted() {
		return fmt.Errorf("status %q is not stored", status)
	}
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO wheel_activity_states (activity_id, student_id, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (activity_id, student_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`), activityID, studentID, string(status), r.now())
	return err
}

// DeleteLifecycleState makes a student available again.
func (r *SQL) DeleteLifecycleState(ctx context.Context, activityID, studentID string) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		DELETE FROM wheel_activity_states WHERE activity_id = ? AND student_id = ?
	`), activityID, studentID)
	return err
}

// DeleteLifecycleStates bulk-deletes rows for the given students.
func (r *SQL) DeleteLifecycleStates(ctx context.Context, activityID string, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(studentIDs)+1)
	args = append(args, activityID)
	marks := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		args = append(args, id)
		marks = append(marks, "?")
	}
	query := `DELETE FROM wheel_activity_states WHERE activity_id = ? AND student_id IN (` + strings.Join(marks, ", ") + `)`
	_, err := r.db.ExecContext(ctx, r.rebind(query), args...)
	return err
}

// RecordHistory appends one entry to the pick log.
func (r *SQL) RecordHistory(ctx context.Context, entry model.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO wheel_history (id, class_id, activity_id, student_id, event, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), entry.ID, entry.ClassID, entry.ActivityID, entry.StudentID, entry.Event, entry.OccurredAt)
	return err
}

// ListHistory returns the newest entries for a class.
func (r *SQL) ListHistory(ctx context.Context, classID string, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, class_id, activity_id, student_id, event, occurred_at
		FROM wheel_history
		WHERE class_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?
	`), classID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		if err := rows.Scan(&h.ID, &h.ClassID, &h.ActivityID, &h.StudentID, &h.Event, &h.OccurredAt); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *SQL) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
