package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"devdeck/errs"
)

// s3API is the subset of the S3 client S3Host uses.
type s3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Host stores backups as objects in one bucket. Folders are key
// prefixes; the remote id of a file is its object key.
type S3Host struct {
	client s3API
	bucket string
	region string
}

// NewS3Host loads the default AWS credential chain for region.
func NewS3Host(ctx context.Context, bucket, region string) (*S3Host, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return newS3Host(s3.NewFromConfig(cfg), bucket, region), nil
}

func newS3Host(client s3API, bucket, region string) *S3Host {
	return &S3Host{client: client, bucket: bucket, region: region}
}

func (h *S3Host) Connected(ctx context.Context) error {
	if h.bucket == "" {
		return ErrNotConnected
	}
	if _, err := h.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(h.bucket)}); err != nil {
		return s3Error(err, "bucket "+h.bucket+" not reachable")
	}
	return nil
}

// FindOrCreateFolder returns the key prefix for name under parentID. S3
// has no folders, so nothing is created remotely.
func (h *S3Host) FindOrCreateFolder(_ context.Context, name, parentID string) (string, error) {
	folder := slugify(name)
	if folder == "" {
		return "", errs.New(errs.CodeInvalid, "folder name is empty")
	}
	return path.Join(strings.TrimSuffix(parentID, "/"), folder) + "/", nil
}

func (h *S3Host) UploadFile(ctx context.Context, name string, r io.Reader, folderID string) (RemoteFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return RemoteFile{}, fmt.Errorf("failed to read upload content: %w", err)
	}
	key := folderID + name

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return RemoteFile{}, fmt.Errorf("failed to upload %s: %w", name, s3Error(err, "put object failed"))
	}
	return RemoteFile{ID: key, Name: name, Size: int64(len(data)), ViewLink: h.objectURL(key)}, nil
}

func (h *S3Host) ListFiles(ctx context.Context, folderID string) ([]RemoteFile, error) {
	p := s3.NewListObjectsV2Paginator(h.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(h.bucket),
		Prefix: aws.String(folderID),
	})

	files := []RemoteFile{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", s3Error(err, "list objects failed"))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			files = append(files, RemoteFile{
				ID:        key,
				Name:      path.Base(key),
				Size:      aws.ToInt64(obj.Size),
				ViewLink:  h.objectURL(key),
				CreatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}
	return files, nil
}

func (h *S3Host) DeleteFile(ctx context.Context, remoteID string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(remoteID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", remoteID, s3Error(err, "delete object failed"))
	}
	return nil
}

// objectURL is the virtual-hosted-style URL of key.
func (h *S3Host) objectURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.bucket, h.region, strings.Join(parts, "/"))
}

// s3Error maps smithy API error codes onto errs codes.
func s3Error(err error, msg string) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return errs.Wrap(err, errs.CodeUnavailable, msg)
	}
	switch apiErr.ErrorCode() {
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken", "Unauthorized":
		return errs.Wrap(err, errs.CodeUnauthorized, msg)
	case "AccessDenied", "Forbidden", "AllAccessDisabled":
		return errs.Wrap(err, errs.CodeForbidden, msg)
	case "NoSuchBucket", "NoSuchKey", "NotFound":
		return errs.Wrap(err, errs.CodeNotFound, msg)
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return errs.Wrap(err, errs.CodeUnavailable, msg)
	default:
		return errs.Wrap(err, errs.CodeInternal, msg).WithMeta("aws_code", apiErr.ErrorCode())
	}
}
