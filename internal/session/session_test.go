package session

import (
	"context"
	"testing"
	"time"

	"dexDesk/internal/model"
	"dexDesk/internal/state"
)

func TestTransferSignalTriggersBalanceRefresh(t *testing.T) {
	updates := make(chan state.Update, 8)
	refreshed := make(chan struct{}, 8)
	refresh := func(context.Context) error {
		refreshed <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go SyncOnTransfers(ctx, updates, refresh, nil)

	// Non-transfer updates must not trigger a fetch.
	updates <- state.OrderOpened{Order: model.OrderRecord{OrderID: "1"}}
	updates <- state.TransferSucceeded{Transfer: model.TransferRecord{Direction: model.TransferDeposit}}
	updates <- state.TransferSucceeded{Transfer: model.TransferRecord{Direction: model.TransferWithdrawal}}

	for i := 0; i < 2; i++ {
		select {
		case <-refreshed:
		case <-time.After(2 * time.Second):
			t.Fatalf("refresh %d never fired", i+1)
		}
	}

	select {
	case <-refreshed:
		t.Fatalf("refresh fired for a non-transfer update")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTransferSyncKeepsGoingAfterRefreshError(t *testing.T) {
	updates := make(chan state.Update, 8)
	refreshed := make(chan error, 8)
	calls := 0
	refresh := func(context.Context) error {
		calls++
		if calls == 1 {
			refreshed <- context.DeadlineExceeded
			return context.DeadlineExceeded
		}
		refreshed <- nil
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go SyncOnTransfers(ctx, updates, refresh, nil)

	updates <- state.TransferSucceeded{Transfer: model.TransferRecord{Direction: model.TransferDeposit}}
	updates <- state.TransferSucceeded{Transfer: model.TransferRecord{Direction: model.TransferDeposit}}

	for i := 0; i < 2; i++ {
		select {
		case <-refreshed:
		case <-time.After(2 * time.Second):
			t.Fatalf("sync loop stopped after a refresh error")
		}
	}
}
