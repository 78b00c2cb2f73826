package docstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/planflowhq/planflow/internal/pkg/env"
)

// Config holds the export archive storage configuration.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads archive storage configuration from environment variables.
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("S3_EXPORT_ARCHIVE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the export archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the export archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the export archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the export archive is enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey builds a standardized key for an exported lesson document.
// Format: exports/YYYY/MM/<lesson uuid>/<filename>
func (c *Config) ObjectKey(lessonUUID, filename string, t time.Time) string {
	return fmt.Sprintf("exports/%04d/%02d/%s/%s", t.Year(), int(t.Month()), lessonUUID, filename)
}
