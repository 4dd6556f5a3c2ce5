// package report
//
// renders the end of run tables and archives them
package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/lensesio/tableprinter"
	"github.com/spf13/afero"
)

// FileName : name of the rendered report inside the run directory
const FileName = "reconciliation.txt"

// TableRow : per table migration counts and how the table ended
type TableRow struct {
	Table    string `header:"table"`
	Status   string `header:"status"`
	Chunks   int    `header:"chunks"`
	Inserted int    `header:"inserted"`
	Skipped  int    `header:"skipped"`
	Failed   int    `header:"failed"`
	Error    string `header:"error"`
}

// ReconciliationRow : one compared table pair
type ReconciliationRow struct {
	Source      string `header:"source"`
	Destination string `header:"destination"`
	SourceCount int64  `header:"source rows"`
	DestCount   int64  `header:"destination rows"`
	Status      string `header:"status"`
}

// Status : OK or WRONG, the wording operators know from the old migration script
func Status(match bool) string {
	if match {
		return "OK"
	}
	return "WRONG"
}

// Render : writes the run status line followed by both tables
func Render(w io.Writer, runID string, status string, tables []TableRow, recon []ReconciliationRow) {
	if status == "" {
		fmt.Fprintf(w, "run %s\n\n", runID)
	} else {
		fmt.Fprintf(w, "run %s : %s\n\n", runID, status)
	}
	if len(tables) > 0 {
		tableprinter.Print(w, tables)
		fmt.Fprintln(w)
	}
	if len(recon) > 0 {
		tableprinter.Print(w, recon)
	}
}

// Publisher : keeps a copy of the report on disk and optionally in s3
type Publisher struct {
	fs       afero.Fs
	dir      string
	s3       s3iface.S3API
	bucket   string
	prefix   string
	maxRetry int
}

// NewPublisher : s3 may be nil, then reports are only written locally
func NewPublisher(fs afero.Fs, dir string, s3 s3iface.S3API, bucket string, prefix string, maxRetry int) *Publisher {
	if maxRetry < 1 {
		maxRetry = 1
	}
	return &Publisher{fs: fs, dir: dir, s3: s3, bucket: bucket, prefix: prefix, maxRetry: maxRetry}
}

// Publish : writes body to <dir>/run_id=<id>/reconciliation.txt and uploads it
// under the same relative key. Returns the local path.
func (p *Publisher) Publish(runID string, body []byte) (string, error) {
	rel := filepath.Join("run_id="+runID, FileName)
	path := filepath.Join(p.dir, rel)
	if err := p.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := afero.WriteFile(p.fs, path, body, 0644); err != nil {
		return "", err
	}
	if p.s3 == nil || p.bucket == "" {
		return path, nil
	}
	return path, p.UploadFile(body, filepath.ToSlash(filepath.Join(p.prefix, rel)))
}

// UploadFile : puts the object, retrying up to maxRetry times
func (p *Publisher) UploadFile(body []byte, key string) error {
	var (
		retryCtr int
		err      error
	)
	for retryCtr < p.maxRetry {
		_, err = p.s3.PutObject(&s3.PutObjectInput{
			Body:   bytes.NewReader(body),
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return nil
		}
		retryCtr++
	}
	return fmt.Errorf("Attempted uploading key (%s) %d times with no success : original_err=%w", key, retryCtr, err)
}
