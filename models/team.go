package models

// TeamMember is a person working on a project.
type TeamMember struct {
	Base
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	GithubURL   string `json:"github_url,omitempty"`
	LinkedinURL string `json:"linkedin_url,omitempty"`
	IsActive    bool   `json:"is_active"`
}

func (m TeamMember) Clone() TeamMember { return m }

func (m TeamMember) ProjectRef() string { return m.ProjectID }
