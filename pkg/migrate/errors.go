package migrate

import "errors"

var (
	// ErrConnection : a store call failed outside of a single row insert. Fatal for the run.
	ErrConnection = errors.New("store connection failed")
	// ErrSchemaEvolution : the marker column could not be added for a reason other than it already existing
	ErrSchemaEvolution = errors.New("could not add marker column")
	// ErrReconciliationMismatch : at least one table pair had different row counts
	ErrReconciliationMismatch = errors.New("reconciliation mismatch")
	// ErrSequenceConsumed : a reconciliation sequence was ranged over a second time
	ErrSequenceConsumed = errors.New("reconciliation sequence already consumed")
)
