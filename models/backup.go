package models

import "time"

// Backup records a snapshot that was uploaded to a remote file host. A row
// only exists for uploads that succeeded.
type Backup struct {
	Base
	ProjectID      string    `json:"project_id"`
	FileName       string    `json:"file_name"`
	FileSize       int64     `json:"file_size"`
	Description    string    `json:"description,omitempty"`
	RemoteFileID   string    `json:"remote_file_id,omitempty"`
	RemoteViewLink string    `json:"remote_view_link,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

func (b Backup) Clone() Backup { return b }

func (b Backup) ProjectRef() string { return b.ProjectID }
