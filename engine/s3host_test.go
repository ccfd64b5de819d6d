package engine

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdeck/errs"
)

// fakeS3 keeps objects in a map and can be told to fail every call.
type fakeS3 struct {
	objects map[string][]byte
	err     error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &s3.ListObjectsV2Output{}
	modified := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	for key, data := range f.objects {
		if !strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(data))),
			LastModified: aws.Time(modified),
		})
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3HostUploadListDelete(t *testing.T) {
	fake := newFakeS3()
	fake.objects["devdeck-backups/"] = nil
	h := newS3Host(fake, "my-bucket", "eu-west-1")
	ctx := context.Background()

	require.NoError(t, h.Connected(ctx))

	folder, err := h.FindOrCreateFolder(ctx, "DevDeck Backups", "")
	require.NoError(t, err)
	assert.Equal(t, "devdeck-backups/", folder)

	f, err := h.UploadFile(ctx, "site one.json", strings.NewReader(`{"version":1}`), folder)
	require.NoError(t, err)
	assert.Equal(t, "devdeck-backups/site one.json", f.ID)
	assert.EqualValues(t, 13, f.Size)
	assert.Equal(t, "https://my-bucket.s3.eu-west-1.amazonaws.com/devdeck-backups/site%20one.json", f.ViewLink)

	files, err := h.ListFiles(ctx, folder)
	require.NoError(t, err)
	require.Len(t, files, 1, "folder marker keys are skipped")
	assert.Equal(t, "site one.json", files[0].Name)
	assert.Equal(t, 2026, files[0].CreatedAt.Year())

	require.NoError(t, h.DeleteFile(ctx, f.ID))
	files, err = h.ListFiles(ctx, folder)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestS3HostNestedFolder(t *testing.T) {
	h := newS3Host(newFakeS3(), "b", "us-east-1")

	folder, err := h.FindOrCreateFolder(context.Background(), "Archive", "team/")
	require.NoError(t, err)
	assert.Equal(t, "team/archive/", folder)

	_, err = h.FindOrCreateFolder(context.Background(), "!!!", "")
	assert.True(t, errs.IsCode(err, errs.CodeInvalid))
}

func TestS3HostWithoutBucketIsNotConnected(t *testing.T) {
	h := newS3Host(newFakeS3(), "", "us-east-1")
	assert.ErrorIs(t, h.Connected(context.Background()), ErrNotConnected)
}

func TestS3ErrorMapping(t *testing.T) {
	cases := map[string]errs.Code{
		"InvalidAccessKeyId": errs.CodeUnauthorized,
		"AccessDenied":       errs.CodeForbidden,
		"NoSuchKey":          errs.CodeNotFound,
		"SlowDown":           errs.CodeUnavailable,
		"Weird":              errs.CodeInternal,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			fake := newFakeS3()
			fake.err = &smithy.GenericAPIError{Code: code, Message: "boom"}
			h := newS3Host(fake, "b", "us-east-1")

			err := h.DeleteFile(context.Background(), "k")
			require.Error(t, err)
			assert.Equal(t, want, errs.CodeOf(err))
		})
	}

	t.Run("transport", func(t *testing.T) {
		fake := newFakeS3()
		fake.err = errors.New("dial tcp: connection refused")
		h := newS3Host(fake, "b", "us-east-1")
		assert.True(t, errs.IsCode(h.Connected(context.Background()), errs.CodeUnavailable))
	})
}
