package models

// DevNote is a free-form markdown note.
type DevNote struct {
	Base
	ProjectID string   `json:"project_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
}

func (n DevNote) Clone() DevNote {
	n.Tags = cloneStrings(n.Tags)
	return n
}

func (n DevNote) ProjectRef() string { return n.ProjectID }
