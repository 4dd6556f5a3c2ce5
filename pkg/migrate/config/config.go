package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

const (
	// DefaultBatchRecordSize : chunk size used for resumable tables when the job does not set one
	DefaultBatchRecordSize = 100
	// DefaultReportDir : where reconciliation reports are written locally
	DefaultReportDir = "./tmp"
	// DefaultMaxRetry : report upload attempts
	DefaultMaxRetry = 3
)

// CommitMode : how inserts are grouped into destination transactions
type CommitMode string

const (
	// CommitPerRow : every row insert runs in its own transaction
	CommitPerRow CommitMode = "row"
	// CommitPerChunk : one transaction per chunk, each insert guarded by a savepoint
	CommitPerChunk CommitMode = "chunk"
)

// S3Options : optional archive location for the reconciliation report
type S3Options struct {
	Bucket         string `json:"bucket"`
	PrefixOverride string `json:"prefix"`
	MaxRetry       int    `json:"max_retry"`
}

// Report : where the final reconciliation report goes
type Report struct {
	Dir string    `json:"dir"`
	S3  S3Options `json:"s3"`
}

// Config : configuration for the job
type Config[S any, T any] struct {
	BatchRecordSize int        `json:"max_batch_record_size"`
	CommitMode      CommitMode `json:"commit_mode"`
	SourceConfig    S          `json:"source"`
	Target          T          `json:"target"`
	Report          Report     `json:"report"`
}

type validator interface {
	Validate() error
}

type defaulter interface {
	SetDefaults()
}

// SetDefaults : fills the zero values the job file left out
func (c *Config[S, T]) SetDefaults() {
	if c.BatchRecordSize == 0 {
		c.BatchRecordSize = DefaultBatchRecordSize
	}
	if c.CommitMode == "" {
		c.CommitMode = CommitPerRow
	}
	if c.Report.Dir == "" {
		c.Report.Dir = DefaultReportDir
	}
	if c.Report.S3.MaxRetry == 0 {
		c.Report.S3.MaxRetry = DefaultMaxRetry
	}
	if d, ok := any(&c.SourceConfig).(defaulter); ok {
		d.SetDefaults()
	}
	if d, ok := any(&c.Target).(defaulter); ok {
		d.SetDefaults()
	}
}

// Validate : checks the job and both store configs, every problem is reported at once
func (c *Config[S, T]) Validate() error {
	var finalErr error
	if c.BatchRecordSize < 1 {
		finalErr = multierror.Append(finalErr, fmt.Errorf("max_batch_record_size must be positive, got %d", c.BatchRecordSize))
	}
	if c.CommitMode != CommitPerRow && c.CommitMode != CommitPerChunk {
		finalErr = multierror.Append(finalErr, fmt.Errorf("commit_mode must be %q or %q, got %q", CommitPerRow, CommitPerChunk, c.CommitMode))
	}
	if v, ok := any(&c.SourceConfig).(validator); ok {
		if err := v.Validate(); err != nil {
			finalErr = multierror.Append(finalErr, fmt.Errorf("source : %w", err))
		}
	}
	if v, ok := any(&c.Target).(validator); ok {
		if err := v.Validate(); err != nil {
			finalErr = multierror.Append(finalErr, fmt.Errorf("target : %w", err))
		}
	}
	return finalErr
}

// Load : reads a json job file, applies defaults and validates it
func Load[S any, T any](fs afero.Fs, path string) (Config[S, T], error) {
	var cfg Config[S, T]
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, fmt.Errorf("CONFIG : could not read job file %s : %w", path, err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("CONFIG : job file %s is not valid json : %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("CONFIG : invalid job file %s : %w", path, err)
	}
	return cfg, nil
}

// ErrMissing : a required field is empty
var ErrMissing = errors.New("missing required field")

// Missing : wraps ErrMissing with the json name of the field
func Missing(field string) error {
	return fmt.Errorf("%s : %w", field, ErrMissing)
}
