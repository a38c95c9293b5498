package router_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/history"
	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/holiman/uint256"
	"github.com/zeebo/assert"
)

const signerAddress = "0x52908400098527886E0F7030069857D2E4169EE7"

var (
	ethereum = models.Network{Slug: "ethereum", Name: "Ethereum", NetworkID: 1, IsRoot: true}
	optimism = models.Network{Slug: "optimism", Name: "Optimism", NetworkID: 10}
	arbitrum = models.Network{Slug: "arbitrum", Name: "Arbitrum", NetworkID: 42161}
	usdc     = models.Token{Symbol: "USDC", Decimals: 6}
)

type fakeSigner struct{ addr string }

func (s fakeSigner) Address(ctx context.Context) (string, error) {
	return s.addr, nil
}

// fakeWallet reports networkIDs in order, repeating the last one.
type fakeWallet struct {
	mu         sync.Mutex
	networkIDs []uint64
	checks     int
	signer     router.Signer
	signerErr  error
}

func (w *fakeWallet) Signer(ctx context.Context) (router.Signer, error) {
	return w.signer, w.signerErr
}

func (w *fakeWallet) CheckConnectedNetworkID(ctx context.Context, networkID uint64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.checks
	if idx >= len(w.networkIDs) {
		idx = len(w.networkIDs) - 1
	}
	w.checks++
	return w.networkIDs[idx] == networkID, nil
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []models.BridgeSend
	hash  string
	err   error
}

func (e *fakeExecutor) Send(ctx context.Context, req models.BridgeSend) (*models.RawTx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, req)
	if e.err != nil {
		return nil, e.err
	}
	return &models.RawTx{Hash: e.hash, From: signerAddress}, nil
}

func (e *fakeExecutor) Calls() []models.BridgeSend {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.BridgeSend(nil), e.calls...)
}

// gateFunc adapts a function to router.ConfirmationGate.
type gateFunc func(ctx context.Context, req router.ConfirmRequest) (*models.RawTx, error)

func (f gateFunc) Show(ctx context.Context, req router.ConfirmRequest) (*models.RawTx, error) {
	return f(ctx, req)
}

var approveGate = gateFunc(func(ctx context.Context, req router.ConfirmRequest) (*models.RawTx, error) {
	return req.OnConfirm(ctx)
})

var dismissGate = gateFunc(func(ctx context.Context, req router.ConfirmRequest) (*models.RawTx, error) {
	return nil, nil
})

var rejectGate = gateFunc(func(ctx context.Context, req router.ConfirmRequest) (*models.RawTx, error) {
	return nil, errors.New("User Cancelled the request")
})

// fakeWatcher hands out a buffered channel per tx hash. Receipts in preload
// are queued as soon as the hash is watched.
type fakeWatcher struct {
	mu      sync.Mutex
	chans   map[string]chan models.DestinationReceipt
	ctxs    map[string]context.Context
	preload map[string]string
	keys    []models.WatchKey
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		chans:   make(map[string]chan models.DestinationReceipt),
		ctxs:    make(map[string]context.Context),
		preload: make(map[string]string),
	}
}

func (w *fakeWatcher) Watch(ctx context.Context, key models.WatchKey) (<-chan models.DestinationReceipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan models.DestinationReceipt, 2)
	if destHash, ok := w.preload[key.TxHash]; ok {
		ch <- models.DestinationReceipt{TxHash: destHash}
	}
	w.chans[key.TxHash] = ch
	w.ctxs[key.TxHash] = ctx
	w.keys = append(w.keys, key)
	return ch, nil
}

func (w *fakeWatcher) queue(txHash, destHash string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.preload[txHash] = destHash
}

// released reports whether the subscription for txHash has been cancelled.
func (w *fakeWatcher) released(txHash string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ctx, ok := w.ctxs[txHash]
	return ok && ctx.Err() != nil
}

func (w *fakeWatcher) fire(t *testing.T, txHash, destHash string) {
	t.Helper()
	w.mu.Lock()
	ch, ok := w.chans[txHash]
	w.mu.Unlock()
	if !ok {
		t.Fatalf("no watcher for %s", txHash)
	}
	ch <- models.DestinationReceipt{TxHash: destHash}
}

func (w *fakeWatcher) watched(txHash string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.chans[txHash]
	return ok
}

// fakeWaiter returns whatever the test pushes on results, one per call.
type fakeWaiter struct {
	results chan models.WaitResult
}

func newFakeWaiter() *fakeWaiter {
	return &fakeWaiter{results: make(chan models.WaitResult, 4)}
}

func (w *fakeWaiter) WaitForTransaction(ctx context.Context, tx models.RawTx, args models.WaitArgs) (models.WaitResult, error) {
	select {
	case <-ctx.Done():
		return models.WaitResult{}, ctx.Err()
	case res := <-w.results:
		return res, nil
	}
}

type harness struct {
	wallet   *fakeWallet
	executor *fakeExecutor
	history  *history.MemoryStore
	watcher  *fakeWatcher
	waiter   *fakeWaiter
	sender   *router.Sender
}

func newHarness(t *testing.T, gate router.ConfirmationGate, networkIDs ...uint64) *harness {
	t.Helper()
	return newHarnessWith(t, gate, nil, networkIDs...)
}

func newHarnessWith(t *testing.T, gate router.ConfirmationGate, opts []router.Option, networkIDs ...uint64) *harness {
	t.Helper()
	h := &harness{
		wallet: &fakeWallet{
			networkIDs: networkIDs,
			signer:     fakeSigner{addr: signerAddress},
		},
		executor: &fakeExecutor{hash: "0xr0"},
		history:  history.NewMemoryStore(),
		watcher:  newFakeWatcher(),
		waiter:   newFakeWaiter(),
	}
	opts = append([]router.Option{router.WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	})}, opts...)
	s, err := router.NewSender(router.Collaborators{
		Wallet:   h.wallet,
		Executor: h.executor,
		Gate:     gate,
		History:  h.history,
		Watcher:  h.watcher,
		Waiter:   h.waiter,
	}, opts...)
	assert.NoError(t, err)
	h.sender = s
	t.Cleanup(s.Close)
	return h
}

func intent(source, dest models.Network) models.TransferIntent {
	return models.TransferIntent{
		Source:       &source,
		Destination:  &dest,
		Token:        &usdc,
		Amount:       "0.0001", // 100 base units
		AmountOutMin: uint256.NewInt(100),
		TotalFee:     uint256.NewInt(5),
		Deadline:     func() uint64 { return 1700000000 },
	}
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
