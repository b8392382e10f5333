package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/mobsim/mobsim/sim"
)

// ObjectPutter is the subset of *s3.Client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies finished output files to a bucket.
type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Uploader uploads through client into bucket under prefix.
func NewS3Uploader(client ObjectPutter, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// NewS3UploaderFromConfig loads the default AWS credential chain for the
// configured region.
func NewS3UploaderFromConfig(ctx context.Context, cfg sim.S3Config) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3Uploader(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

// Key returns the object key of a local file for a run.
func (u *S3Uploader) Key(runID, file string) string {
	return path.Join(u.prefix, runID, filepath.Base(file))
}

// Upload puts every file under prefix/runID/<basename>.
func (u *S3Uploader) Upload(ctx context.Context, runID string, files ...string) error {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		key := u.Key(runID, f)
		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("unable to upload %s to S3: %w", f, err)
		}
		logrus.Infof("Uploaded %s to s3://%s/%s", f, u.bucket, key)
	}
	return nil
}
