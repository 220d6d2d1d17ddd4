package upload

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethpandaops/runtimeoor/pkg/config"
	"github.com/sirupsen/logrus"
)

const (
	defaultPrefix  = "results/runs"
	defaultRegion  = "us-east-1"
	writeTestKey   = ".runtimeoor-write-test"
	fallbackMIME   = "application/octet-stream"
	resultMetaTool = "runtimeoor"
)

// putObjectAPI is the subset of the S3 client used for uploads.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Uploader implements Uploader for S3-compatible storage.
type s3Uploader struct {
	log    logrus.FieldLogger
	cfg    *config.S3UploadConfig
	client putObjectAPI
	now    func() time.Time
}

// Ensure interface compliance.
var _ Uploader = (*s3Uploader)(nil)

// NewS3Uploader creates an S3 uploader from the given configuration.
func NewS3Uploader(log logrus.FieldLogger, cfg *config.S3UploadConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	return &s3Uploader{
		log:    log.WithField("component", "s3-uploader"),
		cfg:    cfg,
		client: newS3Client(cfg),
		now:    time.Now,
	}, nil
}

func newS3Client(cfg *config.S3UploadConfig) *s3.Client {
	return s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = defaultRegion
		if cfg.Region != "" {
			o.Region = cfg.Region
		}

		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}

		o.UsePathStyle = cfg.ForcePathStyle

		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			)
		}
	})
}

// Preflight verifies S3 connectivity by writing a small test object.
func (u *s3Uploader) Preflight(ctx context.Context) error {
	content := fmt.Sprintf("runtimeoor write test: %s", u.now().UTC().Format(time.RFC3339))

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(writeTestKey),
		Body:        strings.NewReader(content),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", u.cfg.Bucket, err)
	}

	return nil
}

// UploadFile uploads localPath under <prefix>/<basename>.
func (u *s3Uploader) UploadFile(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := u.resolveKey(filepath.Base(localPath))

	u.log.WithFields(logrus.Fields{
		"key":    key,
		"bucket": u.cfg.Bucket,
	}).Debug("Uploading file")

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(detectContentType(localPath)),
		Metadata:    map[string]string{"tool": resultMetaTool},
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to s3://%s/%s: %w", localPath, u.cfg.Bucket, key, err)
	}

	u.log.WithFields(logrus.Fields{
		"key":    key,
		"bucket": u.cfg.Bucket,
	}).Info("Upload completed")

	return key, nil
}

// resolveKey builds the object key for a result file.
func (u *s3Uploader) resolveKey(baseName string) string {
	prefix := strings.Trim(u.cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}

	return prefix + "/" + baseName
}

// detectContentType returns a MIME type based on file extension.
func detectContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case "":
		return fallbackMIME
	case ".yaml", ".yml":
		return "application/yaml"
	}

	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}

	return fallbackMIME
}
