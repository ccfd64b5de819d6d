package models

import "time"

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// Task is a unit of work inside a project.
type Task struct {
	Base
	ProjectID   string       `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Assignee    string       `json:"assignee,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Tags        []string     `json:"tags"`
}

func (t Task) Clone() Task {
	t.DueDate = cloneTime(t.DueDate)
	t.Tags = cloneStrings(t.Tags)
	return t
}

func (t Task) ProjectRef() string { return t.ProjectID }

// Next cycles todo -> in-progress -> done -> todo. Blocked tasks go
// back to in-progress.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusTodo:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusDone
	case TaskStatusBlocked:
		return TaskStatusInProgress
	default:
		return TaskStatusTodo
	}
}
