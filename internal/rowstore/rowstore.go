// Package rowstore persists classes' rosters, wheel activities and their
// per-student lifecycle rows.
package rowstore

import (
	"context"

	"wheelofnames/internal/model"
)

// Store is the row-store collaborator the wheel reads and writes through.
type Store interface {
	// ListStudents orders by last name, then first name.
	ListStudents(ctx context.Context, classID string) ([]model.Student, error)
	// ListActivities orders most recently created first.
	ListActivities(ctx context.Context, classID string) ([]model.Activity, error)
	CreateActivity(ctx context.Context, classID, name string) (model.Activity, error)
	RenameActivity(ctx context.Context, id, name string) (model.Activity, error)
	DeleteActivity(ctx context.Context, id string) error

	// ListLifecycleStates orders by last update, oldest first.
	ListLifecycleStates(ctx context.Context, activityID string) ([]model.LifecycleState, error)
	// UpsertLifecycleState overwrites any status stored for the pair.
	UpsertLifecycleState(ctx context.Context, activityID, studentID string, status model.Status) error
	DeleteLifecycleState(ctx context.Context, activityID, studentID string) error
	DeleteLifecycleStates(ctx context.Context, activityID string, studentIDs []string) error

	RecordHistory(ctx context.Context, entry model.HistoryEntry) error
	ListHistory(ctx context.Context, classID string, limit int) ([]model.HistoryEntry, error)

	Migrate(ctx context.Context) error
}
