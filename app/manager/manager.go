// Package manager keeps the live in-memory task list and pushes a full
// snapshot to the persister after every mutation. Persistence failures
// never fail a mutation: the manager warns once and keeps operating on
// memory for the rest of the session.
package manager

import (
	"fmt"
	"sort"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/taskvault/taskvault/app/task"
)

//go:generate moq -out mocks/persister.go -pkg mocks -skip-ensure -fmt goimports . Persister

// Persister saves full task snapshots, implemented by store.Store
type Persister interface {
	Save(tasks []task.Task) error
}

// Manager holds the task list loaded at startup and mutates it in place.
// Identifiers grow monotonically and are never handed out twice within a
// session, even after deletes.
type Manager struct {
	tasks     []task.Task
	persister Persister
	nextID    int
	warned    bool
}

// New makes a manager over tasks loaded from the store
func New(tasks []task.Task, p Persister) *Manager {
	maxID := 0
	for _, t := range tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return &Manager{tasks: tasks, persister: p, nextID: maxID + 1}
}

// Add stores a new task. ID, status and creation time are assigned here,
// everything else is taken from the passed value.
func (m *Manager) Add(t task.Task) (task.Task, error) {
	if t.Title == "" {
		return task.Task{}, fmt.Errorf("task title can't be empty")
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	if t.Kind == "" {
		t.Kind = task.KindScheduled
	}
	t.ID = m.nextID
	m.nextID++
	t.Status = task.StatusIncomplete
	t.Created = time.Now().UTC().Truncate(time.Second)
	t.Completed = nil

	m.tasks = append(m.tasks, t)
	m.persist()
	log.Printf("[INFO] added task %d %q", t.ID, t.Title)
	return t, nil
}

// List returns a copy of the tasks, sorted by id. With pendingOnly set,
// completed tasks are skipped.
func (m *Manager) List(pendingOnly bool) []task.Task {
	res := make([]task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if pendingOnly && t.Status == task.StatusComplete {
			continue
		}
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Get returns the task with the given id
func (m *Manager) Get(id int) (task.Task, bool) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

// Complete marks a task done at the given time. For a recurring task the
// next occurrence is scheduled as a fresh task with the due date advanced
// by the recurrence tag.
func (m *Manager) Complete(id int, now time.Time) (task.Task, error) {
	i := m.index(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("no task with id %d", id)
	}
	if m.tasks[i].Status == task.StatusComplete {
		return m.tasks[i], nil
	}

	done := now.UTC().Truncate(time.Second)
	m.tasks[i].Status = task.StatusComplete
	m.tasks[i].Completed = &done

	completed := m.tasks[i]
	if completed.Recurrence != task.RecurrenceNone {
		next := completed
		next.ID = m.nextID
		m.nextID++
		next.Status = task.StatusIncomplete
		next.Created = done
		next.Completed = nil
		due := nextDue(completed.Recurrence, completed.Due, done)
		next.Due = &due
		m.tasks = append(m.tasks, next)
		log.Printf("[INFO] scheduled next %s occurrence of %q as task %d, due %s",
			completed.Recurrence, next.Title, next.ID, due.Format(time.RFC3339))
	}

	m.persist()
	log.Printf("[INFO] completed task %d %q", id, completed.Title)
	return completed, nil
}

// Reopen flips a completed task back to incomplete
func (m *Manager) Reopen(id int) (task.Task, error) {
	i := m.index(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("no task with id %d", id)
	}
	m.tasks[i].Status = task.StatusIncomplete
	m.tasks[i].Completed = nil
	m.persist()
	return m.tasks[i], nil
}

// SetPriority changes the priority tag of a task
func (m *Manager) SetPriority(id int, p task.Priority) (task.Task, error) {
	i := m.index(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("no task with id %d", id)
	}
	m.tasks[i].Priority = p
	m.persist()
	return m.tasks[i], nil
}

// Delete removes a task. Its id is never reused.
func (m *Manager) Delete(id int) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("no task with id %d", id)
	}
	m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
	m.persist()
	log.Printf("[INFO] deleted task %d", id)
	return nil
}

// Tasks returns the current full snapshot
func (m *Manager) Tasks() []task.Task { return m.List(false) }

func (m *Manager) index(id int) int {
	for i, t := range m.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// persist pushes the full snapshot after a mutation. Failures keep the
// session running on memory, warned about once.
func (m *Manager) persist() {
	if m.persister == nil {
		return
	}
	if err := m.persister.Save(m.List(false)); err != nil {
		if !m.warned {
			m.warned = true
			log.Printf("[WARN] %v", err)
		}
		return
	}
	m.warned = false
}

// nextDue computes the next occurrence after base (the current due date
// when set, the completion time otherwise) using cron descriptors, which
// map one-to-one to recurrence tags.
func nextDue(rec task.Recurrence, due *time.Time, done time.Time) time.Time {
	base := done
	if due != nil && due.After(done) {
		base = *due
	}
	sched, err := cron.ParseStandard("@" + string(rec))
	if err != nil { // recurrence tags are closed, this can't happen for valid tasks
		log.Printf("[WARN] can't parse recurrence %q, %v", rec, err)
		return base.AddDate(0, 0, 1)
	}
	return sched.Next(base).UTC()
}
