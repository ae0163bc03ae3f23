package roster

import (
	"context"

	"wheelofnames/internal/apperr"
	"wheelofnames/internal/model"
)

// Persister is the slice of the row store the lifecycle store writes through.
type Persister interface {
	ListLifecycleStates(ctx context.Context, activityID string) ([]model.LifecycleState, error)
	UpsertLifecycleState(ctx context.Context, activityID, studentID string, status model.Status) error
	DeleteLifecycleState(ctx context.Context, activityID, studentID string) error
	DeleteLifecycleStates(ctx context.Context, activityID string, studentIDs []string) error
}

// Store mirrors the persisted lifecycle of every student in one class for the
// selected activity. Each student has exactly one status, so selected and
// absent cannot overlap. Writes go to the Persister first and are applied
// locally only once they succeed.
//
// An empty activity id is the Default scope: transitions stay local.
//
// Store is not safe for concurrent use; the owning session serialises calls.
type Store struct {
	persist Persister

	roster   []model.Student
	index    map[string]int
	status   map[string]model.Status
	selected []string // pick order

	activityID string
	infinite   bool
}

// NewStore creates an empty store writing through p.
func NewStore(p Persister) *Store {
	return &Store{
		persist: p,
		index:   map[string]int{},
		status:  map[string]model.Status{},
	}
}

// SetRoster installs the class roster in display order and resets to the
// Default scope with every student available.
func (s *Store) SetRoster(students []model.Student) {
	s.roster = append([]model.Student(nil), students...)
	s.index = make(map[string]int, len(students))
	for i, st := range s.roster {
		s.index[st.ID] = i
	}
	s.activityID = ""
	s.status = map[string]model.Status{}
	s.selected = nil
}

// ActivityID is the scope the partitions belong to; "" is Default.
func (s *Store) ActivityID() string { return s.activityID }

// Load rebuilds the partitions for activityID from persisted rows. On error
// nothing changes.
func (s *Store) Load(ctx context.Context, activityID string) error {
	if activityID == "" {
		s.activityID = ""
		s.status = map[string]model.Status{}
		s.selected = nil
		return nil
	}

	rows, err := s.persist.ListLifecycleStates(ctx, activityID)
	if err != nil {
		return apperr.Load("load activity", err)
	}
	s.activityID = activityID
	s.status, s.selected = partition(s.index, rows)
	return nil
}

// Replace installs a freshly fetched roster together with the rows of
// activityID in one step. Callers fetch everything first so a failed fetch
// changes nothing.
func (s *Store) Replace(students []model.Student, activityID string, rows []model.LifecycleState) {
	s.SetRoster(students)
	if activityID == "" {
		return
	}
	s.activityID = activityID
	s.status, s.selected = partition(s.index, rows)
}

// partition rebuilds statuses and the selected sequence from persisted rows.
// Rows for students off the roster are ignored.
func partition(index map[string]int, rows []model.LifecycleState) (map[string]model.Status, []string) {
	status := make(map[string]model.Status, len(rows))
	var selected []string
	for _, row := range rows {
		if _, ok := index[row.StudentID]; !ok {
			continue
		}
		if !row.Status.Persisted() {
			continue
		}
		if prev, seen := status[row.StudentID]; seen {
			if prev == row.Status {
				continue
			}
			// duplicate rows for one student: keep the latest one
			if prev == model.StatusSelected {
				selected = without(selected, row.StudentID)
			}
		}
		status[row.StudentID] = row.Status
		if row.Status == model.StatusSelected {
			selected = append(selected, row.StudentID)
		}
	}
	return status, selected
}

// Pick moves an available student to selected. In infinite mode the student
// stays available and nothing is written.
func (s *Store) Pick(ctx context.Context, studentID string) (model.Student, error) {
	st, ok := s.student(studentID)
	if !ok || s.status[studentID] != model.StatusAvailable {
		return model.Student{}, apperr.Invalid("pick", "student is not available")
	}
	if s.infinite {
		return st, nil
	}
	if s.activityID != "" {
		if err := s.persist.UpsertLifecycleState(ctx, s.activityID, studentID, model.StatusSelected); err != nil {
			return model.Student{}, apperr.Persistence("pick", err)
		}
	}
	s.status[studentID] = model.StatusSelected
	s.selected = append(s.selected, studentID)
	return st, nil
}

// Return puts a selected student back on the wheel.
func (s *Store) Return(ctx context.Context, studentID string) error {
	if s.status[studentID] != model.StatusSelected {
		return apperr.Invalid("return student", "student is not selected")
	}
	if s.activityID != "" {
		if err := s.persist.DeleteLifecycleState(ctx, s.activityID, studentID); err != nil {
			return apperr.Persistence("return student", err)
		}
	}
	delete(s.status, studentID)
	s.selected = without(s.selected, studentID)
	return nil
}

// ReturnAll puts every selected student back. Absent students are never in
// the selected sequence, so they stay absent.
func (s *Store) ReturnAll(ctx context.Context) ([]string, error) {
	if len(s.selected) == 0 {
		return nil, nil
	}
	ids := append([]string(nil), s.selected...)
	if s.activityID != "" {
		if err := s.persist.DeleteLifecycleStates(ctx, s.activityID, ids); err != nil {
			return nil, apperr.Persistence("return all", err)
		}
	}
	for _, id := range ids {
		delete(s.status, id)
	}
	s.selected = nil
	return ids, nil
}

// ToggleAttendance flips a student between absent and present and reports
// the new absence. Marking a selected student absent takes them out of the
// selected sequence: the absent row replaces the selected one.
func (s *Store) ToggleAttendance(ctx context.Context, studentID string) (bool, error) {
	if _, ok := s.student(studentID); !ok {
		return false, apperr.Invalid("toggle attendance", "student is not on the roster")
	}

	if s.status[studentID] == model.StatusAbsent {
		if s.activityID != "" {
			if err := s.persist.DeleteLifecycleState(ctx, s.activityID, studentID); err != nil {
				return true, apperr.Persistence("mark present", err)
			}
		}
		delete(s.status, studentID)
		return false, nil
	}

	if s.activityID != "" {
		if err := s.persist.UpsertLifecycleState(ctx, s.activityID, studentID, model.StatusAbsent); err != nil {
			return false, apperr.Persistence("mark absent", err)
		}
	}
	if s.status[studentID] == model.StatusSelected {
		s.selected = without(s.selected, studentID)
	}
	s.status[studentID] = model.StatusAbsent
	return true, nil
}

// SetInfiniteMode takes effect on the next Pick. It is never persisted.
func (s *Store) SetInfiniteMode(enabled bool) { s.infinite = enabled }

// InfiniteMode reports whether picks leave the pool unchanged.
func (s *Store) InfiniteMode() bool { return s.infinite }

// Status of one student; unknown students report Available.
func (s *Store) Status(studentID string) model.Status { return s.status[studentID] }

// Roster returns every student in display order.
func (s *Store) Roster() []model.Student {
	return append([]model.Student(nil), s.roster...)
}

// Available returns the students on the wheel, in roster order.
func (s *Store) Available() []model.Student {
	out := make([]model.Student, 0, len(s.roster))
	for _, st := range s.roster {
		if s.status[st.ID] == model.StatusAvailable {
			out = append(out, st)
		}
	}
	return out
}

// Selected returns picked students in pick order.
func (s *Store) Selected() []model.Student {
	out := make([]model.Student, 0, len(s.selected))
	for _, id := range s.selected {
		out = append(out, s.roster[s.index[id]])
	}
	return out
}

// Absentees returns the ids of absent students, in roster order.
func (s *Store) Absentees() []string {
	var out []string
	for _, st := range s.roster {
		if s.status[st.ID] == model.StatusAbsent {
			out = append(out, st.ID)
		}
	}
	return out
}

func (s *Store) student(id string) (model.Student, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Student{}, false
	}
	return s.roster[i], true
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
