package models

import "time"

type GoalStatus string

const (
	GoalPlanned    GoalStatus = "planned"
	GoalInProgress GoalStatus = "in-progress"
	GoalCompleted  GoalStatus = "completed"
	GoalDropped    GoalStatus = "dropped"
)

type GoalPriority string

const (
	GoalPriorityLow    GoalPriority = "low"
	GoalPriorityMedium GoalPriority = "medium"
	GoalPriorityHigh   GoalPriority = "high"
)

// Goal is a milestone a project is working towards.
type Goal struct {
	Base
	ProjectID   string       `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      GoalStatus   `json:"status"`
	Priority    GoalPriority `json:"priority"`
	TargetDate  *time.Time   `json:"target_date,omitempty"`
}

func (g Goal) Clone() Goal {
	g.TargetDate = cloneTime(g.TargetDate)
	return g
}

func (g Goal) ProjectRef() string { return g.ProjectID }
