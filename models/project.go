package models

// ProjectPhase is the lifecycle phase of a project
type ProjectPhase string

const (
	PhaseDeveloped     ProjectPhase = "developed"
	PhaseInDevelopment ProjectPhase = "in-development"
	PhaseRunning       ProjectPhase = "running"
	PhaseMaintenance   ProjectPhase = "maintenance"
	PhaseOnHold        ProjectPhase = "on-hold"
	PhaseCompleted     ProjectPhase = "completed"
)

// ProjectPhases lists every phase in display order.
var ProjectPhases = []ProjectPhase{
	PhaseDeveloped,
	PhaseInDevelopment,
	PhaseRunning,
	PhaseMaintenance,
	PhaseOnHold,
	PhaseCompleted,
}

// Project is the root aggregate; every other entity belongs to one.
type Project struct {
	Base
	Name        string       `json:"name"`
	Description string       `json:"description"`
	GithubURL   string       `json:"github_url,omitempty"`
	LiveURL     string       `json:"live_url,omitempty"`
	TechStack   []string     `json:"tech_stack"`
	Phase       ProjectPhase `json:"phase"`
	IsFavorite  bool         `json:"is_favorite"`
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	p.TechStack = cloneStrings(p.TechStack)
	return p
}

// Valid reports whether the phase is a known value.
func (p ProjectPhase) Valid() bool {
	for _, v := range ProjectPhases {
		if v == p {
			return true
		}
	}
	return false
}
