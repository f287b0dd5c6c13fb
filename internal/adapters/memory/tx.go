package memory

import (
	"context"
	"sync"
)

type journalKey struct{}

// journal collects undo steps for the writes made inside one WithTx call.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo = nil
	j.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// onRollback registers undo to run if the enclosing WithTx fails. Writes
// made outside WithTx are final.
func onRollback(ctx context.Context, undo func()) {
	j, ok := ctx.Value(journalKey{}).(*journal)
	if !ok {
		return
	}
	j.mu.Lock()
	j.undo = append(j.undo, undo)
	j.mu.Unlock()
}

// WithTx runs fn and, when it returns an error, undoes the booking, outbox
// and payment hold writes fn made through memory stores. A nested call joins
// the outer one. Writes are visible to other callers before fn returns;
// writers on one booking are serialized by the ledger's key lock.
func WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}
