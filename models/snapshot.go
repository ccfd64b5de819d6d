package models

import "time"

// Snapshot is the full content of the store at one point in time, one slice
// per entity kind in insertion order.
type Snapshot struct {
	SavedAt     time.Time      `json:"saved_at"`
	Projects    []Project      `json:"projects"`
	Tasks       []Task         `json:"tasks"`
	Issues      []Issue        `json:"issues"`
	Secrets     []Secret       `json:"secrets"`
	TeamMembers []TeamMember   `json:"team_members"`
	Goals       []Goal         `json:"goals"`
	Resources   []ResourceItem `json:"resources"`
	Backups     []Backup       `json:"backups"`
	Notes       []DevNote      `json:"notes"`
}

// Len returns the total number of entities across all kinds.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Projects) + len(s.Tasks) + len(s.Issues) + len(s.Secrets) +
		len(s.TeamMembers) + len(s.Goals) + len(s.Resources) + len(s.Backups) + len(s.Notes)
}
