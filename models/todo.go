package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 layout used for every timestamp on the wire.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

type Todo struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	Completed   bool      `db:"completed"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ToDict returns the external representation of a todo. Handlers respond with
// this (directly or through MarshalJSON) and never build todo bodies by hand.
func (t Todo) ToDict() map[string]any {
	var description any
	if t.Description != nil {
		description = *t.Description
	}
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": description,
		"completed":   t.Completed,
		"created_at":  t.CreatedAt.UTC().Format(TimeLayout),
		"updated_at":  t.UpdatedAt.UTC().Format(TimeLayout),
	}
}

func (t Todo) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToDict())
}

// SameRecord reports whether both values describe the same stored row.
func (t Todo) SameRecord(other Todo) bool {
	return t.ID == other.ID
}

func (t Todo) String() string {
	return fmt.Sprintf("<Todo %d: %s>", t.ID, t.Title)
}

// TodoPatch carries the fields of a partial update. A nil pointer means the
// field was not sent. Description can be cleared, so its presence is tracked
// separately from its value.
type TodoPatch struct {
	Title          *string
	Description    *string
	HasDescription bool
	Completed      *bool
}

// Empty reports whether the patch changes nothing but updated_at.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && !p.HasDescription && p.Completed == nil
}
