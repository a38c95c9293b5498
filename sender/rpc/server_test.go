package rpc_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-sender/sender/config"
	"github.com/Cogwheel-Validator/spectra-sender/sender/gate"
	"github.com/Cogwheel-Validator/spectra-sender/sender/history"
	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/Cogwheel-Validator/spectra-sender/sender/rpc"
	"github.com/zeebo/assert"
)

const signerAddress = "0x52908400098527886E0F7030069857D2E4169EE7"

type signer struct{}

func (signer) Address(ctx context.Context) (string, error) { return signerAddress, nil }

// wallet is always connected to ethereum.
type wallet struct{}

func (wallet) Signer(ctx context.Context) (router.Signer, error) { return signer{}, nil }

func (wallet) CheckConnectedNetworkID(ctx context.Context, networkID uint64) (bool, error) {
	return networkID == 1, nil
}

type executor struct {
	mu    sync.Mutex
	calls []models.BridgeSend
}

func (e *executor) Send(ctx context.Context, req models.BridgeSend) (*models.RawTx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, req)
	return &models.RawTx{Hash: "0xabc", From: signerAddress}, nil
}

type watcher struct {
	ch chan models.DestinationReceipt
}

func (w *watcher) Watch(ctx context.Context, key models.WatchKey) (<-chan models.DestinationReceipt, error) {
	return w.ch, nil
}

// waiter never resolves; the destination receipt drives completion.
type waiter struct{}

func (waiter) WaitForTransaction(ctx context.Context, tx models.RawTx, args models.WaitArgs) (models.WaitResult, error) {
	<-ctx.Done()
	return models.WaitResult{}, ctx.Err()
}

type fixture struct {
	client   *rpc.SenderServiceClient
	executor *executor
	watcher  *watcher
	history  *history.MemoryStore
	url      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t)
}

func newFixtureWith(t *testing.T, opts ...rpc.SenderServerOption) *fixture {
	t.Helper()
	networks, err := config.BuildNetworks(&config.NetworksConfig{
		Networks: []models.Network{
			{Slug: "ethereum", Name: "Ethereum", NetworkID: 1, IsRoot: true},
			{Slug: "optimism", Name: "Optimism", NetworkID: 10},
		},
		Tokens: []models.Token{{Symbol: "USDC", Decimals: 6}},
	})
	assert.NoError(t, err)

	f := &fixture{
		executor: &executor{},
		watcher:  &watcher{ch: make(chan models.DestinationReceipt, 1)},
		history:  history.NewMemoryStore(),
	}
	g := gate.New()
	sender, err := router.NewSender(router.Collaborators{
		Wallet:   wallet{},
		Executor: f.executor,
		Gate:     g,
		History:  f.history,
		Watcher:  f.watcher,
		Waiter:   waiter{},
	})
	assert.NoError(t, err)

	svc := rpc.NewSenderServer(sender, g, f.history, networks, time.Hour, opts...)
	srv, err := rpc.NewServer(context.Background(), &rpc.ServerConfig{Address: "127.0.0.1:0"}, svc)
	assert.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		svc.Close()
		sender.Close()
	})

	f.client = rpc.NewSenderServiceClient(ts.Client(), ts.URL)
	f.url = ts.URL
	return f
}

func (f *fixture) session(t *testing.T, id string) *models.SessionResponse {
	t.Helper()
	resp, err := f.client.GetSession(context.Background(), id)
	assert.NoError(t, err)
	return resp
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func sendRequest() *models.SendRequest {
	return &models.SendRequest{
		FromNetwork:  "ethereum",
		ToNetwork:    "optimism",
		TokenSymbol:  "USDC",
		Amount:       "1",
		AmountOutMin: "990000",
		TotalFee:     "10000",
	}
}

func waitForConfirmation(t *testing.T, f *fixture, id string) {
	t.Helper()
	eventually(t, func() bool {
		resp, err := f.client.ListPendingConfirmations(context.Background())
		return err == nil && len(resp.Confirmations) == 1 && resp.Confirmations[0].SessionID == id
	})
}

func TestSend_ConfirmAndComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.Send(ctx, sendRequest())
	assert.NoError(t, err)
	assert.NotEqual(t, resp.SessionID, "")

	waitForConfirmation(t, f, resp.SessionID)
	sess := f.session(t, resp.SessionID)
	assert.Equal(t, sess.State, "awaiting_confirmation")
	assert.True(t, sess.Sending)

	assert.NoError(t, f.client.Confirm(ctx, resp.SessionID))
	eventually(t, func() bool {
		sess := f.session(t, resp.SessionID)
		return sess.State == "pending" && !sess.Sending
	})

	sess = f.session(t, resp.SessionID)
	assert.NotNil(t, sess.Transfer)
	assert.Equal(t, sess.Transfer.Hash, "0xabc")
	assert.Equal(t, sess.Transfer.DestNetworkSlug, "optimism")

	f.watcher.ch <- models.DestinationReceipt{TxHash: "0xdest"}
	eventually(t, func() bool { return f.session(t, resp.SessionID).State == "completed" })

	transfers, err := f.client.ListTransfers(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, len(transfers.Transfers), 1)
	assert.Equal(t, transfers.Transfers[0].DestTxHash, "0xdest")

	assert.NoError(t, f.client.ClearTransfers(ctx))
	transfers, err = f.client.ListTransfers(ctx, 0)
	assert.NoError(t, err)
	assert.Equal(t, len(transfers.Transfers), 0)
}

func TestSend_DeadlineFromMinutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := sendRequest()
	minutes := 30
	req.DeadlineMinutes = &minutes
	before := uint64(time.Now().Add(30 * time.Minute).Unix())

	resp, err := f.client.Send(ctx, req)
	assert.NoError(t, err)
	waitForConfirmation(t, f, resp.SessionID)
	assert.NoError(t, f.client.Confirm(ctx, resp.SessionID))
	eventually(t, func() bool { return f.session(t, resp.SessionID).State == "pending" })

	f.executor.mu.Lock()
	defer f.executor.mu.Unlock()
	assert.Equal(t, len(f.executor.calls), 1)
	deadline := f.executor.calls[0].Options.Deadline
	assert.True(t, deadline >= before && deadline <= before+60)
}

func TestSend_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.client.Send(ctx, sendRequest())
	assert.NoError(t, err)
	waitForConfirmation(t, f, resp.SessionID)

	assert.NoError(t, f.client.Cancel(ctx, resp.SessionID))
	eventually(t, func() bool {
		sess := f.session(t, resp.SessionID)
		return sess.State == "failed" && !sess.Sending
	})

	sess := f.session(t, resp.SessionID)
	assert.True(t, sess.Cancelled)
	assert.Equal(t, sess.Error, "")

	f.executor.mu.Lock()
	defer f.executor.mu.Unlock()
	assert.Equal(t, len(f.executor.calls), 0)
}

func TestSend_UnknownNetworkFailsSession(t *testing.T) {
	f := newFixture(t)

	req := sendRequest()
	req.ToNetwork = "polygon"
	resp, err := f.client.Send(context.Background(), req)
	assert.NoError(t, err)

	eventually(t, func() bool { return f.session(t, resp.SessionID).State == "failed" })
	sess := f.session(t, resp.SessionID)
	assert.Equal(t, sess.ErrorKind, string(router.KindMissingNetwork))
	assert.NotEqual(t, sess.Error, "")
}

func TestSessionRetention(t *testing.T) {
	f := newFixtureWith(t, rpc.WithSessionRetention(20*time.Millisecond))
	ctx := context.Background()

	failing := sendRequest()
	failing.ToNetwork = "polygon"
	failed, err := f.client.Send(ctx, failing)
	assert.NoError(t, err)

	waiting, err := f.client.Send(ctx, sendRequest())
	assert.NoError(t, err)
	waitForConfirmation(t, f, waiting.SessionID)

	eventually(t, func() bool {
		_, err := f.client.GetSession(ctx, failed.SessionID)
		return connect.CodeOf(err) == connect.CodeNotFound
	})

	// sessions that are still running are kept
	time.Sleep(100 * time.Millisecond)
	sess := f.session(t, waiting.SessionID)
	assert.Equal(t, sess.State, "awaiting_confirmation")
	assert.NoError(t, f.client.Cancel(ctx, waiting.SessionID))
}

func TestSend_InvalidArguments(t *testing.T) {
	f := newFixture(t)

	badAmount := sendRequest()
	badAmount.AmountOutMin = "1.5"
	zero := 0
	badDeadline := sendRequest()
	badDeadline.DeadlineMinutes = &zero

	for _, req := range []*models.SendRequest{badAmount, badDeadline} {
		_, err := f.client.Send(context.Background(), req)
		assert.Error(t, err)
		assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
	}
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.GetSession(ctx, "missing")
	assert.Equal(t, connect.CodeOf(err), connect.CodeNotFound)

	err = f.client.Confirm(ctx, "missing")
	assert.Equal(t, connect.CodeOf(err), connect.CodeNotFound)

	err = f.client.Cancel(ctx, "missing")
	assert.Equal(t, connect.CodeOf(err), connect.CodeNotFound)
}

func TestListTransfers_NegativeLimit(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.ListTransfers(context.Background(), -1)
	var connectErr *connect.Error
	assert.True(t, errors.As(err, &connectErr))
	assert.Equal(t, connectErr.Code(), connect.CodeInvalidArgument)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(f.url + path)
		assert.NoError(t, err)
		assert.Equal(t, resp.StatusCode, http.StatusOK)
		_ = resp.Body.Close()
	}
}
