package rowstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wheelofnames/internal/apperr"
	"wheelofnames/internal/model"
)

func fakeClock() func() time.Time {
	t := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func openSQLite(t *testing.T) *SQL {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	r := NewSQL(db, SQLite)
	r.now = fakeClock()
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func seedStudents(t *testing.T, r *SQL, students ...model.Student) {
	t.Helper()
	for _, s := range students {
		_, err := r.db.Exec(`INSERT INTO students (id, class_id, last_name, first_name) VALUES (?, ?, ?, ?)`,
			s.ID, s.ClassID, s.LastName, s.FirstName)
		require.NoError(t, err)
	}
}

// stores runs a test against every implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store, seed func(...model.Student))) {
	t.Run("memory", func(t *testing.T) {
		m := NewMemory()
		m.now = fakeClock()
		fn(t, m, func(students ...model.Student) {
			for _, st := range students {
				m.AddStudent(st)
			}
		})
	})
	t.Run("sqlite", func(t *testing.T) {
		r := openSQLite(t)
		fn(t, r, func(students ...model.Student) { seedStudents(t, r, students...) })
	})
}

func TestListStudents_OrderedByLastThenFirst(t *testing.T) {
	stores(t, func(t *testing.T, s Store, seed func(...model.Student)) {
		seed(
			model.Student{ID: "1", ClassID: "c1", LastName: "Zed", FirstName: "Amy"},
			model.Student{ID: "2", ClassID: "c1", LastName: "Able", FirstName: "Zoe"},
			model.Student{ID: "3", ClassID: "c1", LastName: "Able", FirstName: "Ben"},
			model.Student{ID: "4", ClassID: "c2", LastName: "Other", FirstName: "Class"},
		)
		got, err := s.ListStudents(context.Background(), "c1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"3", "2", "1"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})
}

func TestActivities_CreateListRenameDelete(t *testing.T) {
	stores(t, func(t *testing.T, s Store, _ func(...model.Student)) {
		ctx := context.Background()
		first, err := s.CreateActivity(ctx, "c1", "Monday")
		require.NoError(t, err)
		second, err := s.CreateActivity(ctx, "c1", "Tuesday")
		require.NoError(t, err)
		_, err = s.CreateActivity(ctx, "c2", "Elsewhere")
		require.NoError(t, err)

		list, err := s.ListActivities(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID, "newest first")
		assert.Equal(t, first.ID, list[1].ID)

		renamed, err := s.RenameActivity(ctx, first.ID, "Mon")
		require.NoError(t, err)
		assert.Equal(t, "Mon", renamed.Name)
		assert.Equal(t, first.ID, renamed.ID)

		_, err = s.RenameActivity(ctx, "missing", "x")
		assert.True(t, apperr.IsNotFound(err))

		require.NoError(t, s.UpsertLifecycleState(ctx, first.ID, "s1", model.StatusSelected))
		require.NoError(t, s.DeleteActivity(ctx, first.ID))
		list, err = s.ListActivities(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		rows, err := s.ListLifecycleStates(ctx, first.ID)
		require.NoError(t, err)
		assert.Empty(t, rows, "lifecycle rows go with the activity")
	})
}

func TestLifecycleStates_UpsertReplacesAndDeletes(t *testing.T) {
	stores(t, func(t *testing.T, s Store, _ func(...model.Student)) {
		ctx := context.Background()
		a, err := s.CreateActivity(ctx, "c1", "Quiz")
		require.NoError(t, err)

		require.NoError(t, s.UpsertLifecycleState(ctx, a.ID, "bob", model.StatusSelected))
		require.NoError(t, s.UpsertLifecycleState(ctx, a.ID, "amy", model.StatusSelected))
		require.NoError(t, s.UpsertLifecycleState(ctx, a.ID, "cal", model.StatusAbsent))
		require.NoError(t, s.UpsertLifecycleState(ctx, a.ID, "bob", model.StatusAbsent))

		rows, err := s.ListLifecycleStates(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "amy", rows[0].StudentID)
		assert.Equal(t, "cal", rows[1].StudentID)
		assert.Equal(t, "bob", rows[2].StudentID)
		assert.Equal(t, model.StatusAbsent, rows[2].Status)

		require.NoError(t, s.DeleteLifecycleState(ctx, a.ID, "cal"))
		require.NoError(t, s.DeleteLifecycleStates(ctx, a.ID, []string{"amy", "bob", "nobody"}))
		require.NoError(t, s.DeleteLifecycleStates(ctx, a.ID, nil))
		rows, err = s.ListLifecycleStates(ctx, a.ID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestHistory_NewestFirstWithLimit(t *testing.T) {
	stores(t, func(t *testing.T, s Store, _ func(...model.Student)) {
		ctx := context.Background()
		for _, ev := range []string{"pick", "return", "absent"} {
			require.NoError(t, s.RecordHistory(ctx, model.HistoryEntry{ClassID: "c1", StudentID: "amy", Event: ev}))
		}
		require.NoError(t, s.RecordHistory(ctx, model.HistoryEntry{ClassID: "c2", Event: "pick"}))

		got, err := s.ListHistory(ctx, "c1", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "absent", got[0].Event)
		assert.Equal(t, "return", got[1].Event)
		assert.NotEmpty(t, got[0].ID)
	})
}

func TestHistory_DuplicateIDStoredOnce(t *testing.T) {
	stores(t, func(t *testing.T, s Store, _ func(...model.Student)) {
		ctx := context.Background()
		entry := model.HistoryEntry{ID: "3f2b9c1e-5d7a-4e8b-9a61-0c4d2e7f8a10", ClassID: "c1", StudentID: "amy", Event: "pick"}
		require.NoError(t, s.RecordHistory(ctx, entry))
		entry.Event = "return"
		require.NoError(t, s.RecordHistory(ctx, entry))

		got, err := s.ListHistory(ctx, "c1", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "pick", got[0].Event)
	})
}

func TestRebind(t *testing.T) {
	pg := NewSQL(nil, Postgres)
	assert.Equal(t, "a = $1 AND b IN ($2, $3)", pg.rebind("a = ? AND b IN (?, ?)"))
	lite := NewSQL(nil, SQLite)
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
