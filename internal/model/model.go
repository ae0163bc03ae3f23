package model

import "time"

// Student is a roster entry. It belongs to exactly one class.
type Student struct {
	ID        string `json:"id"`
	ClassID   string `json:"class_id"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
}

// DisplayName is "Last First", the way the class list shows it.
func (s Student) DisplayName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	if s.FirstName == "" {
		return s.LastName
	}
	return s.LastName + " " + s.FirstName
}

// Activity is a named, independently tracked wheel session for one class.
type Activity struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is a student's lifecycle tag within one activity.
type Status string

const (
	StatusAvailable Status = ""
	StatusSelected  Status = "selected"
	StatusAbsent    Status = "absent"
)

// Persisted reports whether the status is stored as a row. Available is the
// absence of a row.
func (s Status) Persisted() bool {
	return s == StatusSelected || s == StatusAbsent
}

func (s Status) String() string {
	if s == StatusAvailable {
		return "available"
	}
	return string(s)
}

// LifecycleState is one row of wheel_activity_states.
type LifecycleState struct {
	ActivityID string    `json:"activity_id"`
	StudentID  string    `json:"student_id"`
	Status     Status    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HistoryEntry records one lifecycle transition for the pick log.
type HistoryEntry struct {
	ID         string    `json:"id"`
	ClassID    string    `json:"class_id"`
	ActivityID string    `json:"activity_id,omitempty"`
	StudentID  string    `json:"student_id,omitempty"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
}
