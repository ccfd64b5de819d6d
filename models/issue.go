package models

import "time"

// IssueEnvironment is where an issue was observed.
type IssueEnvironment string

const (
	EnvProduction IssueEnvironment = "production"
	EnvStaging    IssueEnvironment = "staging"
	EnvLocal      IssueEnvironment = "local"
)

// IssueSeverity represents how bad an issue is.
type IssueSeverity string

const (
	SeverityMinor    IssueSeverity = "minor"
	SeverityMajor    IssueSeverity = "major"
	SeverityCritical IssueSeverity = "critical"
)

// IssueStatus represents the state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusInProgress IssueStatus = "in-progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
)

// Terminal reports whether the status ends the issue's life.
func (s IssueStatus) Terminal() bool {
	return s == IssueStatusResolved || s == IssueStatusClosed
}

// Issue is a bug report tracked for a project. RelatedTaskID is a soft
// reference and may point at a task that no longer exists.
type Issue struct {
	Base
	ProjectID        string           `json:"project_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	StepsToReproduce string           `json:"steps_to_reproduce"`
	ExpectedBehavior string           `json:"expected_behavior,omitempty"`
	ActualBehavior   string           `json:"actual_behavior,omitempty"`
	Environment      IssueEnvironment `json:"environment"`
	Severity         IssueSeverity    `json:"severity"`
	Status           IssueStatus      `json:"status"`
	RelatedTaskID    string           `json:"related_task_id,omitempty"`
	ClosedAt         *time.Time       `json:"closed_at,omitempty"`
}

func (i Issue) Clone() Issue {
	i.ClosedAt = cloneTime(i.ClosedAt)
	return i
}

func (i Issue) ProjectRef() string { return i.ProjectID }
