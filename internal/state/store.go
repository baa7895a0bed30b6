// Package state holds the in-memory session model for one user.
//
// A Store is owned by the code handling the user's session and is passed
// explicitly to the services that read or mutate it. It does no locking of
// its own; callers serialise access.
package state

import (
	"github.com/google/uuid"

	"timehunt/internal/model"
)

// ActiveAlarm points at the reminder currently waiting for acknowledgement.
type ActiveAlarm struct {
	Index int
	ID    string
	Task  string
}

// Store is the session-scoped collection of tasks, reminders and counters.
type Store struct {
	Profile   model.Profile
	Tasks     []model.Task
	Reminders []model.Reminder
	XPHistory []model.XPEvent

	active *ActiveAlarm
}

// New returns a store with empty collections for the given profile.
func New(profile model.Profile) *Store {
	if profile.Streak < 1 {
		profile.Streak = 1
	}
	if profile.XP < 0 {
		profile.XP = 0
	}
	return &Store{
		Profile:   profile,
		Tasks:     []model.Task{},
		Reminders: []model.Reminder{},
		XPHistory: []model.XPEvent{},
	}
}

// Normalize fills task fields that legacy or partial records leave empty
// and gives every record a session ID.
func (s *Store) Normalize() {
	s.AssignIDs()
	for i := range s.Tasks {
		t := &s.Tasks[i]
		if t.XP <= 0 {
			t.XP = model.DefaultTaskXP
		}
		if t.Difficulty == "" {
			t.Difficulty = model.DefaultDifficulty
		}
		if t.Category == "" {
			t.Category = model.DefaultCategory
		}
	}
}

// AssignIDs gives tasks and reminders that have no ID a fresh one. IDs stay
// with a record while it lives in this store.
func (s *Store) AssignIDs() {
	for i := range s.Tasks {
		if s.Tasks[i].ID == "" {
			s.Tasks[i].ID = uuid.NewString()
		}
	}
	for i := range s.Reminders {
		if s.Reminders[i].ID == "" {
			s.Reminders[i].ID = uuid.NewString()
		}
	}
}

// TaskIndex returns the position of the task with id, or -1.
func (s *Store) TaskIndex(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// ReminderIndex returns the position of the reminder with id, or -1.
func (s *Store) ReminderIndex(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range s.Reminders {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// RemoveReminder deletes the reminder at index. The active alarm keeps
// pointing at the same reminder, or is cleared when that one is removed.
func (s *Store) RemoveReminder(index int) model.Reminder {
	removed := s.Reminders[index]
	s.Reminders = append(s.Reminders[:index], s.Reminders[index+1:]...)
	if s.active != nil {
		switch {
		case s.active.Index == index:
			s.active = nil
		case s.active.Index > index:
			s.active.Index--
		}
	}
	return removed
}

// ReplaceCollections overwrites tasks and reminders wholesale, as done after a load.
// Any active alarm is dropped because its index no longer refers to the same reminder.
func (s *Store) ReplaceCollections(tasks []model.Task, reminders []model.Reminder) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	s.Tasks = tasks
	s.Reminders = reminders
	s.active = nil
	s.Normalize()
}

func (s *Store) CompletedTasks() []model.Task {
	var out []model.Task
	for _, t := range s.Tasks {
		if t.Done {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) PendingTasks() []model.Task {
	var out []model.Task
	for _, t := range s.Tasks {
		if !t.Done {
			out = append(out, t)
		}
	}
	return out
}

// RemoveCompleted drops every completed task and returns the removed ones.
func (s *Store) RemoveCompleted() []model.Task {
	kept := make([]model.Task, 0, len(s.Tasks))
	var removed []model.Task
	for _, t := range s.Tasks {
		if t.Done {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	s.Tasks = kept
	return removed
}

// AppendXP adds awarded XP to the counter and records it in the ledger.
func (s *Store) AppendXP(event model.XPEvent) {
	if event.XP <= 0 {
		return
	}
	s.Profile.XP += event.XP
	s.XPHistory = append(s.XPHistory, event)
}

// LedgerTotal returns the sum of all ledger entries.
func (s *Store) LedgerTotal() int {
	total := 0
	for _, e := range s.XPHistory {
		total += e.XP
	}
	return total
}

func (s *Store) ActiveAlarm() *ActiveAlarm {
	if s.active == nil {
		return nil
	}
	a := *s.active
	return &a
}

func (s *Store) SetActiveAlarm(index int) {
	r := s.Reminders[index]
	s.active = &ActiveAlarm{Index: index, ID: r.ID, Task: r.Task}
}

func (s *Store) ClearActiveAlarm() {
	s.active = nil
}
