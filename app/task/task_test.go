package task

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	due := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	done := time.Date(2026, 2, 28, 18, 30, 0, 0, time.UTC)
	tasks := []Task{
		{
			ID:             1,
			Title:          "Buy milk",
			Description:    "2% if they have it",
			Status:         StatusIncomplete,
			Priority:       PriorityHigh,
			Tags:           []string{"errands", "home"},
			Kind:           KindScheduled,
			Created:        time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC),
			Due:            &due,
			Recurrence:     RecurrenceWeekly,
			ReminderOffset: Offset(30 * time.Minute),
		},
		{
			ID:        2,
			Title:     "Read a book",
			Status:    StatusComplete,
			Priority:  PriorityLow,
			Kind:      KindActivity,
			Created:   time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC),
			Completed: &done,
		},
	}

	data, err := EncodeDocument(tasks)
	require.NoError(t, err)

	got, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, tasks, got)
}

func TestEncodeDocument_EmptyAndNil(t *testing.T) {
	data, err := EncodeDocument(nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tasks": []`, "nil tasks serialized as empty list, not null")
	assert.Contains(t, string(data), `"version": "1.0"`)

	got, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, []Task{}, got)
}

func TestEncodeDocument_WireFieldNames(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	data, err := EncodeDocument([]Task{{
		ID: 1, Title: "t", Status: StatusIncomplete, Priority: PriorityMedium,
		Kind: KindScheduled, Created: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Due: &due, Recurrence: RecurrenceDaily, ReminderOffset: Offset(time.Hour),
	}})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	tasks := raw["tasks"].([]any)
	fields := tasks[0].(map[string]any)
	for _, name := range []string{"id", "title", "status", "priority", "task_type",
		"created_date", "due_date", "recurrence", "reminder_offset"} {
		assert.Contains(t, fields, name)
	}
	assert.Equal(t, "2026-03-01T00:00:00Z", fields["due_date"])
	assert.Equal(t, "1h0m0s", fields["reminder_offset"])
}

func TestDecodeDocument_Rejects(t *testing.T) {
	valid := func() Document {
		return Document{Version: DocVersion, Tasks: []Task{{
			ID: 1, Title: "t", Status: StatusIncomplete, Priority: PriorityMedium,
			Kind: KindScheduled, Created: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		}}}
	}

	tbl := []struct {
		name   string
		data   func() []byte
		errHas string
	}{
		{"malformed json", func() []byte { return []byte("{bad") }, "can't parse"},
		{"unsupported version", func() []byte {
			doc := valid()
			doc.Version = "9.9"
			b, _ := json.Marshal(doc)
			return b
		}, "unsupported document version"},
		{"unknown status", func() []byte {
			b, _ := json.Marshal(valid())
			return []byte(strings.Replace(string(b), `"incomplete"`, `"done"`, 1))
		}, "unknown status"},
		{"unknown priority", func() []byte {
			b, _ := json.Marshal(valid())
			return []byte(strings.Replace(string(b), `"MEDIUM"`, `"URGENT"`, 1))
		}, "unknown priority"},
		{"unknown task type", func() []byte {
			b, _ := json.Marshal(valid())
			return []byte(strings.Replace(string(b), `"scheduled"`, `"someday"`, 1))
		}, "unknown task type"},
		{"bad timestamp", func() []byte {
			b, _ := json.Marshal(valid())
			return []byte(strings.Replace(string(b), "2026-02-01T00:00:00Z", "02/01/2026", 1))
		}, "can't parse"},
		{"bad reminder offset", func() []byte {
			doc := valid()
			b, _ := json.Marshal(doc)
			return []byte(strings.Replace(string(b), `"created_date"`, `"reminder_offset":"soon","created_date"`, 1))
		}, "bad reminder offset"},
		{"missing title", func() []byte {
			doc := valid()
			doc.Tasks[0].Title = ""
			b, _ := json.Marshal(doc)
			return b
		}, "missing title"},
		{"missing id", func() []byte {
			doc := valid()
			doc.Tasks[0].ID = 0
			b, _ := json.Marshal(doc)
			return b
		}, "invalid id"},
		{"missing created date", func() []byte {
			doc := valid()
			doc.Tasks[0].Created = time.Time{}
			b, _ := json.Marshal(doc)
			return b
		}, "missing created_date"},
		{"duplicate ids", func() []byte {
			doc := valid()
			doc.Tasks = append(doc.Tasks, doc.Tasks[0])
			b, _ := json.Marshal(doc)
			return b
		}, "duplicate id"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDocument(tt.data())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errHas)
			assert.Nil(t, got, "no partial results on failure")
		})
	}
}

func TestDecodeDocument_VersionSentinel(t *testing.T) {
	_, err := DecodeDocument([]byte(`{"version":"2.0","tasks":[]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersion))
}

func TestParseEnums(t *testing.T) {
	st, err := ParseStatus("complete")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, st)
	_, err = ParseStatus("finished")
	assert.Error(t, err)

	pr, err := ParsePriority("LOW")
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, pr)
	_, err = ParsePriority("low")
	assert.Error(t, err, "priority tags are case sensitive")

	k, err := ParseKind("activity")
	require.NoError(t, err)
	assert.Equal(t, KindActivity, k)
	_, err = ParseKind("chore")
	assert.Error(t, err)

	r, err := ParseRecurrence("")
	require.NoError(t, err)
	assert.Equal(t, RecurrenceNone, r)
	r, err = ParseRecurrence("monthly")
	require.NoError(t, err)
	assert.Equal(t, RecurrenceMonthly, r)
	_, err = ParseRecurrence("fortnightly")
	assert.Error(t, err)
}

func TestOffset_Text(t *testing.T) {
	var o Offset
	require.NoError(t, o.UnmarshalText([]byte("90m")))
	assert.Equal(t, Offset(90*time.Minute), o)
	assert.Equal(t, "1h30m0s", o.String())

	assert.Error(t, o.UnmarshalText([]byte("-5m")))
	assert.Error(t, o.UnmarshalText([]byte("tomorrow")))
}

func TestSchemaJSON(t *testing.T) {
	data := SchemaJSON()
	require.NotEmpty(t, data)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Contains(t, schema, "$defs")

	gen := GenerateSchema()
	require.NotNil(t, gen)
}
