package client

import "time"

// Todo is the client's view of a todo record.
type Todo struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Overdue reports whether an open todo's deadline has passed at now.
// It is derived at display time and never stored.
func (t Todo) Overdue(now time.Time) bool {
	return !t.Completed && t.Deadline != nil && t.Deadline.Before(now)
}

// Stats are derived from a list on every render.
type Stats struct {
	Total     int
	Active    int
	Completed int
}

// ComputeStats counts the list. Total always equals Active + Completed.
func ComputeStats(todos []Todo) Stats {
	s := Stats{Total: len(todos)}
	for _, t := range todos {
		if t.Completed {
			s.Completed++
		}
	}
	s.Active = s.Total - s.Completed
	return s
}

// The functions below reconcile a local list with a server response. They
// never modify their input and always return a new slice.

// Append adds a created todo to the end of the list.
func Append(todos []Todo, created Todo) []Todo {
	out := make([]Todo, 0, len(todos)+1)
	out = append(out, todos...)
	return append(out, created)
}

// PatchCompleted copies only the completed flag from updated onto the entry
// with the same id.
func PatchCompleted(todos []Todo, updated Todo) []Todo {
	return patch(todos, updated.ID, func(t *Todo) {
		t.Completed = updated.Completed
	})
}

// PatchEdit copies the text and deadline from updated onto the entry with the
// same id.
func PatchEdit(todos []Todo, updated Todo) []Todo {
	return patch(todos, updated.ID, func(t *Todo) {
		t.Text = updated.Text
		t.Deadline = updated.Deadline
	})
}

// Remove drops the entry with id.
func Remove(todos []Todo, id string) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// RemoveCompleted drops every completed entry.
func RemoveCompleted(todos []Todo) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

func patch(todos []Todo, id string, apply func(*Todo)) []Todo {
	out := make([]Todo, len(todos))
	copy(out, todos)
	for i := range out {
		if out[i].ID == id {
			apply(&out[i])
		}
	}
	return out
}
