package migrate

import (
	"context"
	"fmt"
	"iter"
)

// ReconciliationResult : row counts of one table pair after the migration
type ReconciliationResult struct {
	Pair        TablePair
	SourceCount int64
	DestCount   int64
	Match       bool
}

// Validator : compares row counts between source and destination tables.
// It only signals drift, it never explains or repairs it.
type Validator struct {
	src Counter
	dst Counter
}

func NewValidator(src Counter, dst Counter) *Validator {
	return &Validator{src: src, dst: dst}
}

// Reconcile : lazily counts each pair in order. The sequence is single use,
// ranging it again yields ErrSequenceConsumed. A failed count ends the sequence.
func (v *Validator) Reconcile(ctx context.Context, pairs []TablePair) iter.Seq2[ReconciliationResult, error] {
	consumed := false
	return func(yield func(ReconciliationResult, error) bool) {
		if consumed {
			yield(ReconciliationResult{}, ErrSequenceConsumed)
			return
		}
		consumed = true
		for _, p := range pairs {
			res, err := v.reconcile(ctx, p)
			if !yield(res, err) || err != nil {
				return
			}
		}
	}
}

func (v *Validator) reconcile(ctx context.Context, p TablePair) (ReconciliationResult, error) {
	res := ReconciliationResult{Pair: p}
	var err error
	if res.SourceCount, err = v.src.Count(ctx, p.Source); err != nil {
		return res, fmt.Errorf("count source %s : %w : %w", p.Source, ErrConnection, err)
	}
	if res.DestCount, err = v.dst.Count(ctx, p.Destination); err != nil {
		return res, fmt.Errorf("count destination %s : %w : %w", p.Destination, ErrConnection, err)
	}
	res.Match = res.SourceCount == res.DestCount
	return res, nil
}
