package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/vesselworks/vesseltrace/pkg/config"
)

// s3Writer uploads reports to S3-compatible storage.
type s3Writer struct {
	log    logrus.FieldLogger
	cfg    *config.S3ExportConfig
	client *s3.Client
}

// Compile-time interface check.
var _ Writer = (*s3Writer)(nil)

// NewS3Writer creates a Writer backed by an S3 bucket.
func NewS3Writer(
	log logrus.FieldLogger,
	cfg *config.S3ExportConfig,
) (Writer, error) {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.Region != "" {
				o.Region = cfg.Region
			} else {
				o.Region = "us-east-1"
			}

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	client := s3.New(s3.Options{}, opts...)

	return &s3Writer{
		log:    log.WithField("component", "s3-writer"),
		cfg:    cfg,
		client: client,
	}, nil
}

// Preflight verifies S3 connectivity by writing a small test object.
func (w *s3Writer) Preflight(ctx context.Context) error {
	content := fmt.Sprintf(
		"vesseltrace write test: %s", time.Now().UTC().Format(time.RFC3339),
	)

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Bucket),
		Key:         aws.String(".vesseltrace-write-test"),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", w.cfg.Bucket, err)
	}

	return nil
}

// WriteReport uploads a report under the configured prefix.
func (w *s3Writer) WriteReport(
	ctx context.Context, name string, data []byte,
) error {
	key := w.resolveKey(name)

	w.log.WithFields(logrus.Fields{
		"key":    key,
		"bucket": w.cfg.Bucket,
	}).Debug("Uploading report")

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("PutObject: %w", err)
	}

	return nil
}

// resolveKey builds the S3 key for a report file.
func (w *s3Writer) resolveKey(name string) string {
	prefix := w.cfg.Prefix
	if prefix == "" {
		prefix = "reports"
	}

	return strings.TrimRight(prefix, "/") + "/" + name
}
