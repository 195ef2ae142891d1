package f2x

import "sync/atomic"

// transactionState is the per-connection transaction context: the identifier most recently
// observed on the Foundation channel and the lightweight-transaction flag.
type transactionState struct {
	id          atomic.Uint32
	lightweight atomic.Bool
}

// TransactionID returns the transaction identifier most recently received on the Foundation channel.
func (t *Transport) TransactionID() uint32 {
	return t.txn.id.Load()
}

// SetLightweightTransaction marks the current transaction as lightweight.
func (t *Transport) SetLightweightTransaction() {
	t.txn.lightweight.Store(true)
}

// ClearLightweightTransaction clears the lightweight-transaction mark.
func (t *Transport) ClearLightweightTransaction() {
	t.txn.lightweight.Store(false)
}

// IsLightweightTransaction reports whether the current transaction is lightweight.
func (t *Transport) IsLightweightTransaction() bool {
	return t.txn.lightweight.Load()
}

// MustHaveHeavyweightTransaction returns a TransactionWeightError naming operation if the current
// transaction is lightweight.
func (t *Transport) MustHaveHeavyweightTransaction(operation string) error {
	if t.txn.lightweight.Load() {
		return &TransactionWeightError{Operation: operation}
	}

	return nil
}

// observeTransaction updates the transaction identifier from an inbound header.
//
// Only the Foundation channel (value 1) carries transaction identifiers the game has to echo,
// and zero means the frame is outside of any transaction.
func (t *Transport) observeTransaction(header ApplicationHeaderSegment) {
	// TODO: take the identifier from the Foundation's transaction notifications once the
	// Connect category exposes them, instead of keying on the raw channel value.
	if header.TransactionIdentifier != 0 && Channel(header.Channel) == FoundationChannel {
		t.txn.id.Store(header.TransactionIdentifier)
	}
}
