package session

import (
	"wheelofnames/internal/geometry"
	"wheelofnames/internal/model"
)

// RosterEntry is a class-list row with its lifecycle tag.
type RosterEntry struct {
	model.Student
	Status string `json:"status"`
}

// View is the presentation snapshot of a session.
type View struct {
	ClassID      string             `json:"class_id"`
	ActivityID   *string            `json:"activity_id"`
	Activities   []model.Activity   `json:"activities"`
	Roster       []RosterEntry      `json:"roster"`
	Available    []model.Student    `json:"available"`
	Selected     []model.Student    `json:"selected"`
	Absentees    []string           `json:"absentees"`
	InfiniteMode bool               `json:"infinite_mode"`
	Spinning     bool               `json:"spinning"`
	Rotation     float64            `json:"rotation"`
	Segments     []geometry.Segment `json:"segments"`
	LastWinner   *Winner            `json:"last_winner,omitempty"`
}

func (s *Session) viewLocked() View {
	students := s.store.Roster()
	entries := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		entries = append(entries, RosterEntry{Student: st, Status: s.store.Status(st.ID).String()})
	}

	// while spinning the wheel keeps the segments it started with
	wheel := s.store.Available()
	if s.engine.Active() && s.pool != nil {
		wheel = s.pool
	}
	labels := make([]string, 0, len(wheel))
	for _, st := range wheel {
		labels = append(labels, st.FirstName)
	}

	v := View{
		ClassID:      s.classID,
		Activities:   s.ctrl.Activities(),
		Roster:       entries,
		Available:    s.store.Available(),
		Selected:     s.store.Selected(),
		Absentees:    s.store.Absentees(),
		InfiniteMode: s.store.InfiniteMode(),
		Spinning:     s.engine.Active(),
		Rotation:     s.engine.Rotation(),
		Segments:     geometry.Segments(labels, s.cfg.Layout),
	}
	if id := s.ctrl.SelectedID(); id != "" {
		v.ActivityID = &id
	}
	if v.Absentees == nil {
		v.Absentees = []string{}
	}
	if v.Activities == nil {
		v.Activities = []model.Activity{}
	}
	if s.winner != nil {
		w := *s.winner
		v.LastWinner = &w
	}
	return v
}
