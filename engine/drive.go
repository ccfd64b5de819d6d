package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"devdeck/errs"
)

const (
	driveAPIBase    = "https://www.googleapis.com"
	driveFolderMIME = "application/vnd.google-apps.folder"
	driveFileFields = "id,name,size,webViewLink,createdTime"
)

// DriveClient talks to the Google Drive v3 REST API. The http.Client is
// expected to attach the OAuth bearer token (see OAuthClient.HTTPClient).
type DriveClient struct {
	http    *http.Client
	baseURL string
}

// NewDriveClient returns a client. A nil httpClient yields a client that
// reports ErrNotConnected from every call.
func NewDriveClient(httpClient *http.Client) *DriveClient {
	return &DriveClient{http: httpClient, baseURL: driveAPIBase}
}

// WithBaseURL points the client at another server, e.g. an httptest one.
func (c *DriveClient) WithBaseURL(base string) *DriveClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

type driveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        string `json:"size"` // int64 encoded as string
	WebViewLink string `json:"webViewLink"`
	CreatedTime string `json:"createdTime"`
}

func (f driveFile) remote() RemoteFile {
	size, _ := strconv.ParseInt(f.Size, 10, 64)
	created, _ := time.Parse(time.RFC3339, f.CreatedTime)
	return RemoteFile{ID: f.ID, Name: f.Name, Size: size, ViewLink: f.WebViewLink, CreatedAt: created}
}

// Connected checks the credential by fetching the signed-in user.
func (c *DriveClient) Connected(ctx context.Context) error {
	if c.http == nil {
		return ErrNotConnected
	}
	return c.do(ctx, http.MethodGet, c.baseURL+"/drive/v3/about?fields=user", nil, "", nil)
}

// FindOrCreateFolder looks the folder up by name and creates it when it
// does not exist yet.
func (c *DriveClient) FindOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if c.http == nil {
		return "", ErrNotConnected
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), driveFolderMIME)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	params := url.Values{"q": {q}, "fields": {"files(id,name)"}, "spaces": {"drive"}}

	var list struct {
		Files []driveFile `json:"files"`
	}
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/drive/v3/files?"+params.Encode(), nil, "", &list); err != nil {
		return "", fmt.Errorf("failed to look up folder %q: %w", name, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].ID, nil
	}

	meta := map[string]any{"name": name, "mimeType": driveFolderMIME}
	if parentID != "" {
		meta["parents"] = []string{parentID}
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal folder metadata: %w", err)
	}

	var created driveFile
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/drive/v3/files?fields=id", bytes.NewReader(body), "application/json", &created); err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return created.ID, nil
}

// UploadFile sends metadata and content in one multipart/related request.
func (c *DriveClient) UploadFile(ctx context.Context, name string, r io.Reader, folderID string) (RemoteFile, error) {
	if c.http == nil {
		return RemoteFile{}, ErrNotConnected
	}

	meta := map[string]any{"name": name, "mimeType": "application/json"}
	if folderID != "" {
		meta["parents"] = []string{folderID}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaPart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return RemoteFile{}, fmt.Errorf("failed to create metadata part: %w", err)
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return RemoteFile{}, fmt.Errorf("failed to marshal file metadata: %w", err)
	}

	filePart, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json"}})
	if err != nil {
		return RemoteFile{}, fmt.Errorf("failed to create content part: %w", err)
	}
	if _, err := io.Copy(filePart, r); err != nil {
		return RemoteFile{}, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return RemoteFile{}, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	endpoint := c.baseURL + "/upload/drive/v3/files?uploadType=multipart&fields=" + url.QueryEscape(driveFileFields)
	var f driveFile
	if err := c.do(ctx, http.MethodPost, endpoint, &buf, "multipart/related; boundary="+mw.Boundary(), &f); err != nil {
		return RemoteFile{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return f.remote(), nil
}

// ListFiles lists the folder's files, newest first.
func (c *DriveClient) ListFiles(ctx context.Context, folderID string) ([]RemoteFile, error) {
	if c.http == nil {
		return nil, ErrNotConnected
	}

	params := url.Values{
		"fields":  {"nextPageToken,files(" + driveFileFields + ")"},
		"orderBy": {"createdTime desc"},
	}
	q := "trashed = false and mimeType != '" + driveFolderMIME + "'"
	if folderID != "" {
		q = fmt.Sprintf("'%s' in parents and %s", escapeQuery(folderID), q)
	}
	params.Set("q", q)

	var files []RemoteFile
	for {
		var page struct {
			NextPageToken string      `json:"nextPageToken"`
			Files         []driveFile `json:"files"`
		}
		if err := c.do(ctx, http.MethodGet, c.baseURL+"/drive/v3/files?"+params.Encode(), nil, "", &page); err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		for _, f := range page.Files {
			files = append(files, f.remote())
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		params.Set("pageToken", page.NextPageToken)
	}
}

func (c *DriveClient) DeleteFile(ctx context.Context, remoteID string) error {
	if c.http == nil {
		return ErrNotConnected
	}
	if err := c.do(ctx, http.MethodDelete, c.baseURL+"/drive/v3/files/"+url.PathEscape(remoteID), nil, "", nil); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", remoteID, err)
	}
	return nil
}

// do executes one request and decodes a JSON response into out when out is
// non-nil.
func (c *DriveClient) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errs.Wrap(err, errs.CodeInternal, "failed to create request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(err, errs.CodeUnavailable, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(err, errs.CodeInternal, "failed to parse response")
	}
	return nil
}

// statusError maps a Drive HTTP status to a stable error code.
func statusError(status int, body []byte) error {
	msg := driveErrorMessage(body)
	var code errs.Code
	switch status {
	case http.StatusUnauthorized:
		code = errs.CodeUnauthorized
	case http.StatusForbidden:
		code = errs.CodeForbidden
	case http.StatusNotFound:
		code = errs.CodeNotFound
	case http.StatusBadRequest:
		code = errs.CodeInvalid
	default:
		if status >= 500 || status == http.StatusTooManyRequests {
			code = errs.CodeUnavailable
		} else {
			code = errs.CodeInternal
		}
	}
	return errs.New(code, msg).WithMeta("status", status)
}

func driveErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if len(body) > 0 && len(body) < 200 {
		return strings.TrimSpace(string(body))
	}
	return "drive request failed"
}

// transportError classifies a failed round trip. A refused token refresh
// means the stored credential is no longer valid.
func transportError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		return errs.Wrap(err, errs.CodeUnauthorized, "drive credential rejected")
	}
	if errs.IsCode(err, errs.CodeNotConnected) {
		return err
	}
	return errs.Wrap(err, errs.CodeUnavailable, "drive unreachable")
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
