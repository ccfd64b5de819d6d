package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"devdeck/db"
	"devdeck/errs"
	"devdeck/models"
	"devdeck/store"
)

// Settings caches remote ids between runs. *db.DB satisfies it.
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Backups uploads per-project snapshots to a FileHost and keeps the Backup
// rows in the store in step.
type Backups struct {
	store    *store.Store
	host     FileHost
	codec    *db.Codec
	folder   string
	settings Settings
	provider string
	log      *zap.Logger
	clock    func() time.Time
}

// BackupOption configures Backups.
type BackupOption func(*Backups)

// WithSettings caches the folder id under provider so later runs skip the
// lookup.
func WithSettings(s Settings, provider string) BackupOption {
	return func(b *Backups) {
		b.settings = s
		b.provider = provider
	}
}

func WithBackupLogger(l *zap.Logger) BackupOption {
	return func(b *Backups) {
		if l != nil {
			b.log = l
		}
	}
}

func WithBackupClock(now func() time.Time) BackupOption {
	return func(b *Backups) { b.clock = now }
}

func NewBackups(s *store.Store, host FileHost, codec *db.Codec, folder string, opts ...BackupOption) *Backups {
	if codec == nil {
		codec = db.NewCodec(nil)
	}
	b := &Backups{store: s, host: host, codec: codec, folder: folder, log: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run uploads the project's slice of the store and records a Backup row.
// A failed upload returns the error and records nothing.
func (b *Backups) Run(ctx context.Context, projectID, description string) (models.Backup, error) {
	if err := b.host.Connected(ctx); err != nil {
		return models.Backup{}, err
	}

	snap, ok := b.store.ProjectSnapshot(projectID)
	if !ok {
		return models.Backup{}, store.ErrUnknownProject
	}
	project := snap.Projects[0]

	folderID, err := b.folderID(ctx)
	if err != nil {
		return models.Backup{}, err
	}

	data, err := b.codec.Encode(snap)
	if err != nil {
		return models.Backup{}, fmt.Errorf("failed to encode backup: %w", err)
	}

	now := b.clock().UTC()
	name := BackupFileName(project.Name, now)
	remote, err := b.host.UploadFile(ctx, name, bytes.NewReader(data), folderID)
	if err != nil {
		if errs.IsCode(err, errs.CodeNotFound) {
			b.forgetFolder()
		}
		b.log.Warn("backup upload failed", zap.String("project", projectID), zap.Error(err))
		return models.Backup{}, err
	}

	size := remote.Size
	if size == 0 {
		size = int64(len(data))
	}
	backup, err := b.store.AddBackup(models.Backup{
		ProjectID:      projectID,
		FileName:       name,
		FileSize:       size,
		Description:    description,
		RemoteFileID:   remote.ID,
		RemoteViewLink: remote.ViewLink,
		UploadedAt:     now.Round(0),
	})
	if err != nil {
		return models.Backup{}, fmt.Errorf("uploaded %s but failed to record it: %w", name, err)
	}

	b.log.Info("backup uploaded",
		zap.String("project", project.Name),
		zap.String("file", name),
		zap.Int64("bytes", size),
	)
	return backup, nil
}

// List returns the files in the backup folder.
func (b *Backups) List(ctx context.Context) ([]RemoteFile, error) {
	if err := b.host.Connected(ctx); err != nil {
		return nil, err
	}
	folderID, err := b.folderID(ctx)
	if err != nil {
		return nil, err
	}
	return b.host.ListFiles(ctx, folderID)
}

// Remove deletes the remote file and then the Backup row. A file that is
// already gone remotely still has its row removed. Unknown ids are a no-op.
func (b *Backups) Remove(ctx context.Context, backupID string) error {
	backup, ok := b.store.Backup(backupID)
	if !ok {
		return nil
	}
	if backup.RemoteFileID != "" {
		if err := b.host.DeleteFile(ctx, backup.RemoteFileID); err != nil && !errs.IsCode(err, errs.CodeNotFound) {
			return err
		}
	}
	return b.store.DeleteBackup(backupID)
}

func (b *Backups) settingKey() string {
	return "backup.folder." + b.provider
}

func (b *Backups) folderID(ctx context.Context) (string, error) {
	if b.settings != nil {
		if id, err := b.settings.GetSetting(b.settingKey()); err == nil && id != "" {
			return id, nil
		}
	}

	id, err := b.host.FindOrCreateFolder(ctx, b.folder, "")
	if err != nil {
		return "", err
	}
	if b.settings != nil {
		if err := b.settings.SetSetting(b.settingKey(), id); err != nil {
			b.log.Warn("failed to cache backup folder id", zap.Error(err))
		}
	}
	return id, nil
}

// forgetFolder drops the cached folder id after the host reported it
// missing; the next run looks it up again.
func (b *Backups) forgetFolder() {
	if b.settings == nil {
		return
	}
	if err := b.settings.SetSetting(b.settingKey(), ""); err != nil {
		b.log.Warn("failed to clear backup folder id", zap.Error(err))
	}
}

// BackupFileName is <slug>-<yyyymmdd-hhmmss>.json in UTC.
func BackupFileName(projectName string, at time.Time) string {
	slug := slugify(projectName)
	if slug == "" {
		slug = "project"
	}
	return fmt.Sprintf("%s-%s.json", slug, at.UTC().Format("20060102-150405"))
}

// slugify lowercases s and collapses every run of non-alphanumerics into a
// single dash.
func slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
