package rowstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wheelofnames/internal/apperr"
	"wheelofnames/internal/model"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu         sync.Mutex
	students   []model.Student
	activities []model.Activity
	states     []model.LifecycleState
	history    []model.HistoryEntry
	now        func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{now: func() time.Time { return time.Now().UTC() }}
}

// AddStudent registers a roster entry. Student CRUD lives outside the wheel.
func (m *Memory) AddStudent(s model.Student) model.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.students = append(m.students, s)
	return s
}

func (m *Memory) ListStudents(_ context.Context, classID string) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Student
	for _, s := range m.students {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := strings.Compare(out[i].LastName, out[j].LastName); c != 0 {
			return c < 0
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (m *Memory) ListActivities(_ context.Context, classID string) ([]model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Activity
	for i := len(m.activities) - 1; i >= 0; i-- {
		if m.activities[i].ClassID == classID {
			out = append(out, m.activities[i])
		}
	}
	return out, nil
}

func (m *Memory) CreateActivity(_ context.Context, classID, name string) (model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := model.Activity{ID: uuid.NewString(), ClassID: classID, Name: name, CreatedAt: m.now()}
	m.activities = append(m.activities, a)
	return a, nil
}

func (m *Memory) RenameActivity(_ context.Context, id, name string) (model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.activities {
		if m.activities[i].ID == id {
			m.activities[i].Name = name
			return m.activities[i], nil
		}
	}
	return model.Activity{}, apperr.NotFound("rename activity", id)
}

func (m *Memory) DeleteActivity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.activities[:0]
	for _, a := range m.activities {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	m.activities = kept
	m.dropStates(func(s model.LifecycleState) bool { return s.ActivityID == id })
	return nil
}

func (m *Memory) ListLifecycleStates(_ context.Context, activityID string) ([]model.LifecycleState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LifecycleState
	for _, s := range m.states {
		if s.ActivityID == activityID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) UpsertLifecycleState(_ context.Context, activityID, studentID string, status model.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStates(func(s model.LifecycleState) bool {
		return s.ActivityID == activityID && s.StudentID == studentID
	})
	m.states = append(m.states, model.LifecycleState{
		ActivityID: activityID,
		StudentID:  studentID,
		Status:     status,
		UpdatedAt:  m.now(),
	})
	return nil
}

func (m *Memory) DeleteLifecycleState(_ context.Context, activityID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropStates(func(s model.LifecycleState) bool {
		return s.ActivityID == activityID && s.StudentID == studentID
	})
	return nil
}

func (m *Memory) DeleteLifecycleStates(_ context.Context, activityID string, studentIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		set[id] = struct{}{}
	}
	m.dropStates(func(s model.LifecycleState) bool {
		_, ok := set[s.StudentID]
		return s.ActivityID == activityID && ok
	})
	return nil
}

func (m *Memory) RecordHistory(_ context.Context, entry model.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	// redelivered messages carry the id of the stored entry
	for _, h := range m.history {
		if h.ID == entry.ID {
			return nil
		}
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = m.now()
	}
	m.history = append(m.history, entry)
	return nil
}

func (m *Memory) ListHistory(_ context.Context, classID string, limit int) ([]model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	var out []model.HistoryEntry
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if m.history[i].ClassID == classID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) dropStates(match func(model.LifecycleState) bool) {
	kept := m.states[:0]
	for _, s := range m.states {
		if !match(s) {
			kept = append(kept, s)
		}
	}
	m.states = kept
}
