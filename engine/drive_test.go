package engine

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdeck/errs"
)

func newDriveServer(t *testing.T, h http.HandlerFunc) *DriveClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewDriveClient(srv.Client()).WithBaseURL(srv.URL)
}

func TestDriveWithoutClientIsNotConnected(t *testing.T) {
	c := NewDriveClient(nil)
	ctx := context.Background()

	assert.True(t, errs.IsCode(c.Connected(ctx), errs.CodeNotConnected))
	_, err := c.UploadFile(ctx, "x.json", strings.NewReader("{}"), "")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.ListFiles(ctx, "f")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.DeleteFile(ctx, "id"), ErrNotConnected)
	_, err = c.FindOrCreateFolder(ctx, "f", "")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDriveStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   errs.Code
	}{
		{http.StatusUnauthorized, errs.CodeUnauthorized},
		{http.StatusForbidden, errs.CodeForbidden},
		{http.StatusNotFound, errs.CodeNotFound},
		{http.StatusBadRequest, errs.CodeInvalid},
		{http.StatusServiceUnavailable, errs.CodeUnavailable},
		{http.StatusTooManyRequests, errs.CodeUnavailable},
		{http.StatusConflict, errs.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			err := c.DeleteFile(context.Background(), "file-1")
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, tc.code), "got %v", err)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestDriveTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := NewDriveClient(srv.Client()).WithBaseURL(srv.URL)
	srv.Close()

	err := c.Connected(context.Background())
	assert.True(t, errs.IsCode(err, errs.CodeUnavailable), "got %v", err)
}

func TestDriveFindOrCreateFolder(t *testing.T) {
	var created bool
	c := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/drive/v3/files":
			q := r.URL.Query().Get("q")
			assert.Contains(t, q, "name = 'DevDeck \\'s Backups'")
			assert.Contains(t, q, driveFolderMIME)
			_, _ = w.Write([]byte(`{"files":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/drive/v3/files":
			var meta map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
			assert.Equal(t, "DevDeck 's Backups", meta["name"])
			assert.Equal(t, driveFolderMIME, meta["mimeType"])
			created = true
			_, _ = w.Write([]byte(`{"id":"folder-9"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	id, err := c.FindOrCreateFolder(context.Background(), "DevDeck 's Backups", "")
	require.NoError(t, err)
	assert.Equal(t, "folder-9", id)
	assert.True(t, created)
}

func TestDriveFindExistingFolder(t *testing.T) {
	c := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.URL.Query().Get("q"), "'root-1' in parents")
		_, _ = w.Write([]byte(`{"files":[{"id":"existing","name":"Backups"}]}`))
	})

	id, err := c.FindOrCreateFolder(context.Background(), "Backups", "root-1")
	require.NoError(t, err)
	assert.Equal(t, "existing", id)
}

func TestDriveUploadIsMultipart(t *testing.T) {
	c := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/drive/v3/files", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		var meta map[string]any
		require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))
		assert.Equal(t, "site-20261014-090000.json", meta["name"])
		assert.Equal(t, []any{"folder-1"}, meta["parents"])

		filePart, err := mr.NextPart()
		require.NoError(t, err)
		content, _ := io.ReadAll(filePart)
		assert.Equal(t, `{"version":1}`, string(content))

		_, _ = w.Write([]byte(`{"id":"file-1","name":"site-20261014-090000.json","size":"13","webViewLink":"https://drive.google.com/file/d/file-1/view","createdTime":"2026-10-14T09:00:01Z"}`))
	})

	f, err := c.UploadFile(context.Background(), "site-20261014-090000.json", strings.NewReader(`{"version":1}`), "folder-1")
	require.NoError(t, err)
	assert.Equal(t, "file-1", f.ID)
	assert.EqualValues(t, 13, f.Size)
	assert.Equal(t, "https://drive.google.com/file/d/file-1/view", f.ViewLink)
	assert.Equal(t, 2026, f.CreatedAt.Year())
}

func TestDriveListFilesFollowsPages(t *testing.T) {
	calls := 0
	c := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Contains(t, r.URL.Query().Get("q"), "'folder-1' in parents")
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = w.Write([]byte(`{"nextPageToken":"p2","files":[{"id":"a","name":"a.json","size":"1"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"files":[{"id":"b","name":"b.json","size":"2"}]}`))
	})

	files, err := c.ListFiles(context.Background(), "folder-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].ID)
	assert.EqualValues(t, 2, files[1].Size)
}

func TestDriveConnected(t *testing.T) {
	c := newDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drive/v3/about", r.URL.Path)
		_, _ = w.Write([]byte(`{"user":{"displayName":"dev"}}`))
	})
	assert.NoError(t, c.Connected(context.Background()))
}
