package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"devdeck/db"
	"devdeck/errs"
	"devdeck/models"
	"devdeck/store"
)

type mockHost struct {
	mock.Mock
	uploaded []byte
}

func (m *mockHost) Connected(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockHost) UploadFile(ctx context.Context, name string, r io.Reader, folderID string) (RemoteFile, error) {
	m.uploaded, _ = io.ReadAll(r)
	args := m.Called(ctx, name, folderID)
	return args.Get(0).(RemoteFile), args.Error(1)
}

func (m *mockHost) ListFiles(ctx context.Context, folderID string) ([]RemoteFile, error) {
	args := m.Called(ctx, folderID)
	return args.Get(0).([]RemoteFile), args.Error(1)
}

func (m *mockHost) DeleteFile(ctx context.Context, remoteID string) error {
	return m.Called(ctx, remoteID).Error(0)
}

func (m *mockHost) FindOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	args := m.Called(ctx, name, parentID)
	return args.String(0), args.Error(1)
}

type memSettings map[string]string

func (m memSettings) GetSetting(key string) (string, error) { return m[key], nil }

func (m memSettings) SetSetting(key, value string) error {
	m[key] = value
	return nil
}

var backupNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func newBackupFixture(t *testing.T) (*store.Store, models.Project) {
	t.Helper()
	s := store.New(db.NewMemoryAdapter(nil))
	s.Hydrate(context.Background())

	p, err := s.AddProject(models.Project{Name: "Website", Phase: models.PhaseInDevelopment})
	require.NoError(t, err)
	_, err = s.AddTask(models.Task{ProjectID: p.ID, Title: "ship"})
	require.NoError(t, err)

	other, err := s.AddProject(models.Project{Name: "Other"})
	require.NoError(t, err)
	_, err = s.AddTask(models.Task{ProjectID: other.ID, Title: "unrelated"})
	require.NoError(t, err)
	return s, p
}

func TestBackupRunRecordsRow(t *testing.T) {
	s, p := newBackupFixture(t)
	host := &mockHost{}
	settings := memSettings{}
	host.On("Connected", mock.Anything).Return(nil)
	host.On("FindOrCreateFolder", mock.Anything, "DevDeck Backups", "").Return("folder-1", nil).Once()
	host.On("UploadFile", mock.Anything, "website-20261014-093000.json", "folder-1").
		Return(RemoteFile{ID: "remote-1", ViewLink: "https://example.test/remote-1"}, nil)

	b := NewBackups(s, host, nil, "DevDeck Backups",
		WithSettings(settings, "drive"),
		WithBackupClock(func() time.Time { return backupNow }),
	)

	backup, err := b.Run(context.Background(), p.ID, "before refactor")
	require.NoError(t, err)
	assert.Equal(t, p.ID, backup.ProjectID)
	assert.Equal(t, "website-20261014-093000.json", backup.FileName)
	assert.Equal(t, "remote-1", backup.RemoteFileID)
	assert.Equal(t, "before refactor", backup.Description)
	assert.Equal(t, backupNow, backup.UploadedAt)
	assert.EqualValues(t, len(host.uploaded), backup.FileSize)
	assert.Equal(t, "folder-1", settings["backup.folder.drive"])

	snap, err := db.NewCodec(nil).Decode(host.uploaded)
	require.NoError(t, err)
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "Website", snap.Projects[0].Name)
	require.Len(t, snap.Tasks, 1, "only the project's own children are uploaded")
	assert.Equal(t, "ship", snap.Tasks[0].Title)

	assert.Len(t, s.BackupsFor(p.ID), 1)

	// Second run reuses the cached folder id.
	_, err = b.Run(context.Background(), p.ID, "")
	require.NoError(t, err)
	host.AssertNumberOfCalls(t, "FindOrCreateFolder", 1)
}

func TestBackupRunFailureRecordsNothing(t *testing.T) {
	s, p := newBackupFixture(t)
	host := &mockHost{}
	settings := memSettings{"backup.folder.drive": "stale"}
	host.On("Connected", mock.Anything).Return(nil)
	host.On("UploadFile", mock.Anything, mock.Anything, "stale").
		Return(RemoteFile{}, errs.New(errs.CodeNotFound, "folder gone"))

	b := NewBackups(s, host, nil, "DevDeck Backups", WithSettings(settings, "drive"))

	_, err := b.Run(context.Background(), p.ID, "")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))
	assert.Empty(t, s.BackupsFor(p.ID))
	assert.Empty(t, settings["backup.folder.drive"], "stale folder id is forgotten")
}

func TestBackupRunNotConnected(t *testing.T) {
	s, p := newBackupFixture(t)
	host := &mockHost{}
	host.On("Connected", mock.Anything).Return(ErrNotConnected)

	_, err := NewBackups(s, host, nil, "Backups").Run(context.Background(), p.ID, "")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, s.BackupsFor(p.ID))
	host.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything, mock.Anything)
}

func TestBackupRunUnknownProject(t *testing.T) {
	s, _ := newBackupFixture(t)
	host := &mockHost{}
	host.On("Connected", mock.Anything).Return(nil)

	_, err := NewBackups(s, host, nil, "Backups").Run(context.Background(), "missing", "")
	assert.ErrorIs(t, err, store.ErrUnknownProject)
}

func TestBackupRemove(t *testing.T) {
	s, p := newBackupFixture(t)
	kept, err := s.AddBackup(models.Backup{ProjectID: p.ID, FileName: "a.json", RemoteFileID: "r-a"})
	require.NoError(t, err)
	gone, err := s.AddBackup(models.Backup{ProjectID: p.ID, FileName: "b.json", RemoteFileID: "r-b"})
	require.NoError(t, err)

	host := &mockHost{}
	host.On("DeleteFile", mock.Anything, "r-a").Return(errs.New(errs.CodeForbidden, "no"))
	host.On("DeleteFile", mock.Anything, "r-b").Return(errs.New(errs.CodeNotFound, "already gone"))
	b := NewBackups(s, host, nil, "Backups")

	err = b.Remove(context.Background(), kept.ID)
	assert.True(t, errs.IsCode(err, errs.CodeForbidden))
	_, ok := s.Backup(kept.ID)
	assert.True(t, ok, "row stays when the remote delete fails")

	require.NoError(t, b.Remove(context.Background(), gone.ID))
	_, ok = s.Backup(gone.ID)
	assert.False(t, ok)

	assert.NoError(t, b.Remove(context.Background(), "unknown"))
}

func TestBackupList(t *testing.T) {
	s, _ := newBackupFixture(t)
	host := &mockHost{}
	host.On("Connected", mock.Anything).Return(nil)
	host.On("FindOrCreateFolder", mock.Anything, "Backups", "").Return("f", nil)
	host.On("ListFiles", mock.Anything, "f").Return([]RemoteFile{{ID: "1"}, {ID: "2"}}, nil)

	files, err := NewBackups(s, host, nil, "Backups").List(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestBackupFileName(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "my-site-v2-20260102-020405.json", BackupFileName("My Site (v2)!", at))
	assert.Equal(t, "project-20260102-020405.json", BackupFileName("???", at))
}
