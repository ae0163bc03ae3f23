package activity

import (
	"context"
	"strings"

	"wheelofnames/internal/apperr"
	"wheelofnames/internal/model"
	"wheelofnames/internal/roster"
)

// Repository is what the controller needs from the row store.
type Repository interface {
	ListStudents(ctx context.Context, classID string) ([]model.Student, error)
	ListActivities(ctx context.Context, classID string) ([]model.Activity, error)
	CreateActivity(ctx context.Context, classID, name string) (model.Activity, error)
	RenameActivity(ctx context.Context, id, name string) (model.Activity, error)
	DeleteActivity(ctx context.Context, id string) error
	ListLifecycleStates(ctx context.Context, activityID string) ([]model.LifecycleState, error)
}

// Controller manages a class's wheel activities and switches the roster
// store between them. Not safe for concurrent use.
type Controller struct {
	repo  Repository
	store *roster.Store

	classID    string
	activities []model.Activity
	selectedID string
}

// NewController binds a controller to the store whose scope it switches.
func NewController(repo Repository, store *roster.Store) *Controller {
	return &Controller{repo: repo, store: store}
}

// Initialize loads the class roster and activities and starts in the
// Default scope.
func (c *Controller) Initialize(ctx context.Context, classID string) error {
	students, err := c.repo.ListStudents(ctx, classID)
	if err != nil {
		return apperr.Load("list students", err)
	}
	activities, err := c.repo.ListActivities(ctx, classID)
	if err != nil {
		return apperr.Load("list activities", err)
	}
	c.classID = classID
	c.activities = activities
	c.selectedID = ""
	c.store.SetRoster(students)
	return nil
}

// ClassID is the class the controller was initialised for.
func (c *Controller) ClassID() string { return c.classID }

// Activities returns the class's activities, newest first.
func (c *Controller) Activities() []model.Activity {
	return append([]model.Activity(nil), c.activities...)
}

// SelectedID is the active activity, or "" for Default.
func (c *Controller) SelectedID() string { return c.selectedID }

// Create adds a named activity. It does not select it.
func (c *Controller) Create(ctx context.Context, name string) (model.Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Activity{}, apperr.Invalid("create activity", "name is required")
	}
	a, err := c.repo.CreateActivity(ctx, c.classID, name)
	if err != nil {
		return model.Activity{}, apperr.Persistence("create activity", err)
	}
	c.activities = append([]model.Activity{a}, c.activities...)
	return a, nil
}

// Rename changes an activity's name.
func (c *Controller) Rename(ctx context.Context, id, name string) (model.Activity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Activity{}, apperr.Invalid("rename activity", "name is required")
	}
	i := c.find(id)
	if i < 0 {
		return model.Activity{}, apperr.Invalid("rename activity", "unknown activity")
	}
	a, err := c.repo.RenameActivity(ctx, id, name)
	if err != nil {
		if apperr.IsNotFound(err) {
			return model.Activity{}, err
		}
		return model.Activity{}, apperr.Persistence("rename activity", err)
	}
	c.activities[i] = a
	return a, nil
}

// Delete removes an activity and every lifecycle row it owns in one
// repository call, so a failure leaves both the rows and local state as they
// were. Deleting the selected activity falls back to the Default scope.
func (c *Controller) Delete(ctx context.Context, id string) error {
	i := c.find(id)
	if i < 0 {
		return apperr.Invalid("delete activity", "unknown activity")
	}
	if err := c.repo.DeleteActivity(ctx, id); err != nil {
		return apperr.Persistence("delete activity", err)
	}

	c.activities = append(c.activities[:i:i], c.activities[i+1:]...)
	if c.selectedID == id {
		c.selectedID = ""
		// Default scope never touches the repository.
		_ = c.store.Load(ctx, "")
	}
	return nil
}

// Reload refetches roster, activities and the selected activity's rows, then
// swaps them in together. On error nothing changes. A selected activity that
// no longer exists falls back to Default.
func (c *Controller) Reload(ctx context.Context, classID string) error {
	students, err := c.repo.ListStudents(ctx, classID)
	if err != nil {
		return apperr.Load("list students", err)
	}
	activities, err := c.repo.ListActivities(ctx, classID)
	if err != nil {
		return apperr.Load("list activities", err)
	}
	selected := c.selectedID
	if selected != "" && indexOf(activities, selected) < 0 {
		selected = ""
	}
	var rows []model.LifecycleState
	if selected != "" {
		if rows, err = c.repo.ListLifecycleStates(ctx, selected); err != nil {
			return apperr.Load("load activity", err)
		}
	}

	c.classID = classID
	c.activities = activities
	c.selectedID = selected
	c.store.Replace(students, selected, rows)
	return nil
}

// Select switches the store to activity id, or to Default when id is "".
// On failure the previous scope stays active.
func (c *Controller) Select(ctx context.Context, id string) error {
	if id != "" && c.find(id) < 0 {
		return apperr.Invalid("select activity", "unknown activity")
	}
	if err := c.store.Load(ctx, id); err != nil {
		return err
	}
	c.selectedID = id
	return nil
}

func (c *Controller) find(id string) int {
	return indexOf(c.activities, id)
}

func indexOf(activities []model.Activity, id string) int {
	for i, a := range activities {
		if a.ID == id {
			return i
		}
	}
	return -1
}
