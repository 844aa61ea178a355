// Package task defines the task record kept by the application and the
// versioned JSON document persisted on disk. Decoding is strict: unknown
// enum tags, malformed timestamps, missing required fields and unsupported
// document versions all reject the whole document, never a part of it.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DocVersion is the schema version stamped into every saved document.
// A document carrying any other version is treated as incompatible.
const DocVersion = "1.0"

// ErrVersion indicates a document with an unsupported schema version.
var ErrVersion = errors.New("unsupported document version")

// Status is the completion state of a task.
type Status string

// task statuses
const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

// ParseStatus converts a string tag to Status, rejecting unknown tags.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusIncomplete, StatusComplete:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) String() string { return string(s) }

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) { return []byte(s), nil }

// UnmarshalText implements encoding.TextUnmarshaler, rejecting unknown tags
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Priority is the importance tag of a task.
type Priority string

// task priorities
const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ParsePriority converts a string tag to Priority, rejecting unknown tags.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

func (p Priority) String() string { return string(p) }

// MarshalText implements encoding.TextMarshaler
func (p Priority) MarshalText() ([]byte, error) { return []byte(p), nil }

// UnmarshalText implements encoding.TextUnmarshaler, rejecting unknown tags
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Kind separates scheduled tasks (with a due date) from ad-hoc activities.
type Kind string

// task kinds
const (
	KindScheduled Kind = "scheduled"
	KindActivity  Kind = "activity"
)

// ParseKind converts a string tag to Kind, rejecting unknown tags.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindScheduled, KindActivity:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown task type %q", s)
}

func (k Kind) String() string { return string(k) }

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) { return []byte(k), nil }

// UnmarshalText implements encoding.TextUnmarshaler, rejecting unknown tags
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Recurrence is an optional repetition tag. The empty value means the task
// does not repeat. Tags map one-to-one to cron descriptors (@daily etc).
type Recurrence string

// recurrence tags
const (
	RecurrenceNone    Recurrence = ""
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// ParseRecurrence converts a string tag to Recurrence, rejecting unknown tags.
// The empty string is valid and means "no recurrence".
func ParseRecurrence(s string) (Recurrence, error) {
	switch Recurrence(s) {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return Recurrence(s), nil
	}
	return "", fmt.Errorf("unknown recurrence %q", s)
}

func (r Recurrence) String() string { return string(r) }

// MarshalText implements encoding.TextMarshaler
func (r Recurrence) MarshalText() ([]byte, error) { return []byte(r), nil }

// UnmarshalText implements encoding.TextUnmarshaler, rejecting unknown tags
func (r *Recurrence) UnmarshalText(b []byte) error {
	v, err := ParseRecurrence(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Offset is a reminder offset relative to the due date, serialized as a Go
// duration string ("30m", "24h"). The zero value means no reminder.
type Offset time.Duration

func (o Offset) String() string { return time.Duration(o).String() }

// MarshalText implements encoding.TextMarshaler
func (o Offset) MarshalText() ([]byte, error) { return []byte(time.Duration(o).String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (o *Offset) UnmarshalText(b []byte) error {
	d, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("bad reminder offset %q: %w", string(b), err)
	}
	if d < 0 {
		return fmt.Errorf("negative reminder offset %q", string(b))
	}
	*o = Offset(d)
	return nil
}

// Task is a single task record. Identifiers are unique and never reused
// for the lifetime of a store. Timestamps are RFC3339.
type Task struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Tags           []string   `json:"tags,omitempty"`
	Kind           Kind       `json:"task_type"`
	Created        time.Time  `json:"created_date"`
	Due            *time.Time `json:"due_date,omitempty"`
	Completed      *time.Time `json:"completed_date,omitempty"`
	Recurrence     Recurrence `json:"recurrence,omitempty"`
	ReminderOffset Offset     `json:"reminder_offset,omitzero"`
}

// Document is the full persisted snapshot, the only thing ever written to
// or read from the primary file.
type Document struct {
	Version string `json:"version"`
	Tasks   []Task `json:"tasks"`
}

// EncodeDocument serializes tasks into a versioned document. It is total
// for task values built through this package.
func EncodeDocument(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	doc := Document{Version: DocVersion, Tasks: tasks}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("can't encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeDocument parses and validates a persisted document, all or nothing.
// Any syntax error, unknown tag, bad timestamp, missing required field or
// unsupported version rejects the whole document.
func DecodeDocument(data []byte) ([]Task, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("can't parse document: %w", err)
	}
	if doc.Version != DocVersion {
		return nil, fmt.Errorf("document version %q: %w", doc.Version, ErrVersion)
	}
	seen := make(map[int]struct{}, len(doc.Tasks))
	for i, t := range doc.Tasks {
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("task %d: duplicate id %d", i, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return doc.Tasks, nil
}

func validate(t Task) error {
	if t.ID <= 0 {
		return fmt.Errorf("invalid id %d", t.ID)
	}
	if t.Title == "" {
		return fmt.Errorf("id %d: missing title", t.ID)
	}
	if t.Created.IsZero() {
		return fmt.Errorf("id %d: missing created_date", t.ID)
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return fmt.Errorf("id %d: %w", t.ID, err)
	}
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return fmt.Errorf("id %d: %w", t.ID, err)
	}
	if _, err := ParseKind(string(t.Kind)); err != nil {
		return fmt.Errorf("id %d: %w", t.ID, err)
	}
	return nil
}
