package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Todo represents a todo item in the system.
type Todo struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string             `bson:"text" json:"text"`
	Completed bool               `bson:"completed" json:"completed"`
	Deadline  *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CreateTodoRequest represents the request body for creating a todo.
// Any "completed" field in the body is ignored; new todos start open.
type CreateTodoRequest struct {
	Text     *string      `json:"text"`
	Deadline NullableTime `json:"deadline"`
}

// UpdateTodoRequest represents the request body for updating a todo.
// Fields absent from the body are left unchanged.
type UpdateTodoRequest struct {
	Text      NullableString `json:"text"`
	Completed Truthy         `json:"completed"`
	Deadline  NullableTime   `json:"deadline"`
}

// Empty reports whether the request changes no field.
func (r *UpdateTodoRequest) Empty() bool {
	return !r.Text.Set && !r.Completed.Set && !r.Deadline.Set
}

// Validate checks the create request and trims the text in place.
func (r *CreateTodoRequest) Validate() error {
	if r.Text == nil {
		return ErrTextRequired
	}
	text := strings.TrimSpace(*r.Text)
	if text == "" {
		return ErrTextRequired
	}
	r.Text = &text
	return nil
}

// Validate checks the update request and trims the text in place. A text
// field that is present must be a non-blank string; null is rejected.
func (r *UpdateTodoRequest) Validate() error {
	if !r.Text.Set {
		return nil
	}
	if r.Text.Value == nil {
		return ErrTextEmpty
	}
	text := strings.TrimSpace(*r.Text.Value)
	if text == "" {
		return ErrTextEmpty
	}
	r.Text.Value = &text
	return nil
}

// DeadlineValue returns the requested deadline, or nil when none was given.
func (r *CreateTodoRequest) DeadlineValue() *time.Time {
	return r.Deadline.Time
}

// Truthy decodes any JSON value into a boolean using loose truthiness:
// false, null, 0 and "" are false, everything else is true.
// Set is false when the field was absent from the body.
type Truthy struct {
	Set   bool
	Value bool
}

func (t *Truthy) UnmarshalJSON(data []byte) error {
	t.Set = true
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		t.Value = false
	case bytes.Equal(data, []byte("true")):
		t.Value = true
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t.Value = s != ""
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		t.Value = true
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("completed: %w", err)
		}
		t.Value = n != 0
	}
	return nil
}

// NullableString distinguishes an explicit JSON null (Value is nil) from an
// absent field (Set is false).
type NullableString struct {
	Set   bool
	Value *string
}

// StringOf returns a present NullableString holding s.
func StringOf(s string) NullableString {
	return NullableString{Set: true, Value: &s}
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	n.Value = &s
	return nil
}

// NullableTime distinguishes an explicit JSON null (clear the value) from an
// absent field (Set is false). Accepts RFC 3339 timestamps and plain
// YYYY-MM-DD dates.
type NullableTime struct {
	Set  bool
	Time *time.Time
}

func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Time = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("deadline: %w", err)
	}
	t, err := ParseDeadline(s)
	if err != nil {
		return err
	}
	n.Time = t
	return nil
}

// ParseDeadline parses an RFC 3339 timestamp or a YYYY-MM-DD date (UTC).
// An empty string yields no deadline.
func ParseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("deadline %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return &t, nil
}
