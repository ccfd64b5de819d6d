package engine

import (
	"context"
	"io"
	"time"

	"devdeck/errs"
)

// ErrNotConnected is returned by a FileHost that has no usable credential.
var ErrNotConnected = errs.New(errs.CodeNotConnected, "not connected")

// RemoteFile is a file stored on a remote host.
type RemoteFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	ViewLink  string    `json:"view_link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileHost is a remote file store that backups are uploaded to.
type FileHost interface {
	// Connected returns nil when the host holds a valid credential.
	Connected(ctx context.Context) error
	UploadFile(ctx context.Context, name string, r io.Reader, folderID string) (RemoteFile, error)
	ListFiles(ctx context.Context, folderID string) ([]RemoteFile, error)
	DeleteFile(ctx context.Context, remoteID string) error
	// FindOrCreateFolder returns the id of the folder called name under
	// parentID ("" for the root), creating it when missing.
	FindOrCreateFolder(ctx context.Context, name, parentID string) (string, error)
}

var (
	_ FileHost = (*DriveClient)(nil)
	_ FileHost = (*S3Host)(nil)
)
