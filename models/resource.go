package models

// ResourceType is the kind of asset kept in a project's vault.
type ResourceType string

const (
	ResourceColor ResourceType = "color"
	ResourceFont  ResourceType = "font"
	ResourceLink  ResourceType = "link"
	ResourceImage ResourceType = "image"
	ResourceCode  ResourceType = "code"
)

// ResourceItem is a design or reference asset (a color, a font, a snippet).
type ResourceItem struct {
	Base
	ProjectID   string       `json:"project_id"`
	Type        ResourceType `json:"type"`
	Name        string       `json:"name"`
	Value       string       `json:"value"`
	Description string       `json:"description,omitempty"`
}

func (r ResourceItem) Clone() ResourceItem { return r }

func (r ResourceItem) ProjectRef() string { return r.ProjectID }
