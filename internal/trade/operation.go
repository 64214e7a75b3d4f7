package trade

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"dexDesk/internal/state"
)

// Operation tracks one submission through idle, requested, and a
// terminal confirmed or failed state. A resubmission after failure is a
// brand-new Operation.
type Operation struct {
	kind   state.OpKind
	status state.OpStatus
	txHash common.Hash
	err    error
	store  *state.Store
}

func newOperation(kind state.OpKind, store *state.Store) *Operation {
	return &Operation{kind: kind, status: state.StatusIdle, store: store}
}

// start moves the operation to requested. Entered synchronously on
// submission intent, before any provider call.
func (o *Operation) start() {
	o.status = state.StatusRequested
	o.store.Apply(state.OpStarted{Kind: o.kind})
}

// confirm records the mined transaction and ends the operation.
func (o *Operation) confirm(txHash common.Hash) {
	o.status = state.StatusConfirmed
	o.txHash = txHash
	o.store.Apply(state.OpConfirmed{Kind: o.kind, TxHash: txHash.Hex()})
}

// fail ends the operation with the causing error attached.
func (o *Operation) fail(err error) error {
	o.status = state.StatusFailed
	o.err = err
	o.store.Apply(state.OpFailed{Kind: o.kind, Err: err})
	return fmt.Errorf("%s failed: %w", o.kind, err)
}

// Status returns the operation's current lifecycle state.
func (o *Operation) Status() state.OpStatus {
	return o.status
}
