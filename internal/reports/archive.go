package reports

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores report files under a bucket prefix.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Archiver creates an archiver. prefix may be empty.
func NewS3Archiver(client *s3.Client, bucket, prefix string) (*S3Archiver, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("reports bucket is required")
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}, nil
}

// Archive uploads data to prefix+key and returns the s3:// URI.
func (a *S3Archiver) Archive(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	fullKey := a.prefix + strings.TrimPrefix(key, "/")
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report to s3://%s/%s: %w", a.bucket, fullKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, fullKey), nil
}
