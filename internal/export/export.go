package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"menuviz/internal/config"
	"menuviz/internal/history"
	"menuviz/internal/logging"
	"menuviz/internal/services"
)

const contentType = "application/json"

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter writes history documents to a bucket.
type Exporter struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// New builds an exporter around an existing client.
func New(client ObjectPutter, bucket, prefix string, logger *slog.Logger) *Exporter {
	return &Exporter{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		logger: logging.NewComponentLogger(logger, "export"),
		now:    time.Now,
	}
}

// NewFromConfig loads AWS credentials from the environment and returns an
// exporter for the configured bucket.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Exporter, error) {
	if cfg == nil || strings.TrimSpace(cfg.Export.S3Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "export", "configure",
			"export.s3_bucket is not set", nil)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Export.S3Region))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "export", "load aws config",
			"unable to load AWS SDK config", err)
	}
	return New(s3.NewFromConfig(awsCfg), cfg.Export.S3Bucket, cfg.Export.S3Prefix, logger), nil
}

// Key returns the object key for an export taken at t.
func (e *Exporter) Key(t time.Time) string {
	name := fmt.Sprintf("history-%d.json", t.Unix())
	if e.prefix == "" {
		return name
	}
	return e.prefix + "/" + name
}

// ExportHistory uploads sessions and returns the object key.
func (e *Exporter) ExportHistory(ctx context.Context, sessions history.List) (string, error) {
	if e.bucket == "" {
		return "", services.Wrap(services.ErrConfiguration, "export", "export history",
			"export.s3_bucket is not set", nil)
	}
	if sessions == nil {
		sessions = history.List{}
	}
	payload, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "export", "encode history",
			"failed to encode history", err)
	}
	key := e.Key(e.now())
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "export", "put object",
			fmt.Sprintf("upload to s3://%s/%s failed", e.bucket, key), err)
	}
	e.logger.Info("history exported",
		logging.String(logging.FieldEventType, "history_exported"),
		logging.String("bucket", e.bucket),
		logging.String("key", key),
		logging.Int("sessions", len(sessions)),
	)
	return key, nil
}
