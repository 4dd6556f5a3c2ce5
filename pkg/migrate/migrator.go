package migrate

import "context"

// Runner : runs migration between a source and a target. There is no separate
// recover call, running again after a failure resumes from the marker columns.
type Runner interface {
	Run(ctx context.Context) (*Summary, error)
}
