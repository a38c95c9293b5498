package router_test

import (
	"context"
	"testing"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/zeebo/assert"
)

func TestDestinationReceipt_CompletesSession(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

	h.watcher.fire(t, "0xr0", "0xd1")
	eventually(t, func() bool { return sess.Snapshot().State == router.StateCompleted })

	rec, _ := h.history.Get("0xr0")
	assert.Equal(t, rec.DestTxHash, "0xd1")
	assert.False(t, rec.PendingDestinationConfirmation)
	assert.Equal(t, sess.Snapshot().Transfer.DestTxHash, "0xd1")
}

func TestDestinationReceipt_Idempotent(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

	// both events are buffered before the listener reads; it only takes one
	h.watcher.fire(t, "0xr0", "0xd1")
	h.watcher.fire(t, "0xr0", "0xd2")
	eventually(t, func() bool { return sess.Snapshot().State == router.StateCompleted })
	h.sender.Close()

	rec, _ := h.history.Get("0xr0")
	assert.Equal(t, rec.DestTxHash, "0xd1")
}

func TestReconcile_NormalConfirmation(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

	h.waiter.results <- models.WaitResult{Confirmed: true}
	eventually(t, func() bool {
		rec, _ := h.history.Get("0xr0")
		return !rec.Pending
	})

	rec, _ := h.history.Get("0xr0")
	assert.True(t, rec.PendingDestinationConfirmation)
	assert.Equal(t, rec.ReplacedFrom, "")
	assert.Equal(t, sess.Snapshot().State, router.StatePending)
}

func TestReconcile_Replacement(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

	h.waiter.results <- models.WaitResult{Replacement: &models.RawTx{Hash: "0xr1", Nonce: 7}}
	eventually(t, func() bool {
		snap := sess.Snapshot()
		return snap.Transfer != nil && snap.Transfer.Hash == "0xr1"
	})

	snap := sess.Snapshot()
	assert.Equal(t, snap.State, router.StateReplaced)
	assert.Equal(t, snap.Transfer.ReplacedFrom, "0xr0")
	assert.True(t, h.watcher.watched("0xr1"))

	r1, ok := h.history.Get("0xr1")
	assert.True(t, ok)
	assert.Equal(t, r1.ReplacedFrom, "0xr0")
	assert.Equal(t, r1.NetworkSlug, "ethereum")
	assert.Equal(t, r1.DestNetworkSlug, "optimism")
	assert.True(t, r1.Pending)

	// the original record is left as it was
	r0, _ := h.history.Get("0xr0")
	assert.Equal(t, r0.ReplacedFrom, "")

	// the superseded subscription is released, the replacement stays watched
	eventually(t, func() bool { return h.watcher.released("0xr0") })
	assert.False(t, h.watcher.released("0xr1"))

	// a late receipt for the replaced tx never reaches the replacement
	h.watcher.fire(t, "0xr0", "0xlate")
	r1, _ = h.history.Get("0xr1")
	assert.Equal(t, r1.DestTxHash, "")
	assert.True(t, r1.PendingDestinationConfirmation)
	assert.Equal(t, sess.Snapshot().State, router.StateReplaced)

	h.watcher.fire(t, "0xr1", "0xd1")
	eventually(t, func() bool { return sess.Snapshot().State == router.StateCompleted })
	assert.Equal(t, sess.Snapshot().Transfer.Hash, "0xr1")
	assert.Equal(t, sess.Snapshot().Transfer.DestTxHash, "0xd1")
}

func TestReconcile_ReplacementChain(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

	h.waiter.results <- models.WaitResult{Replacement: &models.RawTx{Hash: "0xr1"}}
	h.waiter.results <- models.WaitResult{Replacement: &models.RawTx{Hash: "0xr2"}}
	h.waiter.results <- models.WaitResult{Confirmed: true}

	eventually(t, func() bool {
		r2, ok := h.history.Get("0xr2")
		return ok && !r2.Pending
	})

	r2, _ := h.history.Get("0xr2")
	assert.Equal(t, r2.ReplacedFrom, "0xr1")
	r1, _ := h.history.Get("0xr1")
	assert.Equal(t, r1.ReplacedFrom, "0xr0")
	assert.Equal(t, sess.Snapshot().Transfer.Hash, "0xr2")

	eventually(t, func() bool { return h.watcher.released("0xr0") && h.watcher.released("0xr1") })
	assert.False(t, h.watcher.released("0xr2"))
}

func TestReconcile_ReplacementReceiptAlreadyQueued(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

	// the replacement has landed by the time its watch is installed
	h.watcher.queue("0xr1", "0xd1")
	h.waiter.results <- models.WaitResult{Replacement: &models.RawTx{Hash: "0xr1"}}

	eventually(t, func() bool { return sess.Snapshot().State == router.StateCompleted })
	snap := sess.Snapshot()
	assert.Equal(t, snap.Transfer.Hash, "0xr1")
	assert.Equal(t, snap.Transfer.DestTxHash, "0xd1")
	assert.Equal(t, snap.Transfer.ReplacedFrom, "0xr0")
}

func TestSenderClose_ReleasesWatches(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))
	assert.False(t, h.watcher.released("0xr0"))

	h.sender.Close()
	assert.True(t, h.watcher.released("0xr0"))
}

func TestReconcile_IgnoresSelfReplacement(t *testing.T) {
	h := newHarness(t, approveGate, ethereum.NetworkID)
	sess := router.NewSession("s1")
	assert.NoError(t, h.sender.Send(context.Background(), sess, intent(ethereum, optimism)))

	h.waiter.results <- models.WaitResult{Replacement: &models.RawTx{Hash: "0xr0"}}
	h.watcher.fire(t, "0xr0", "0xd1")
	// both listeners exit on their own: the reconciler on the bad replacement,
	// the watcher after its receipt
	h.sender.Wait()

	assert.Equal(t, len(h.history.List(0)), 1)
	assert.Equal(t, sess.Snapshot().Transfer.Hash, "0xr0")
	assert.Equal(t, sess.Snapshot().State, router.StateCompleted)
}
