package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"walletcard/pkg/card"
	"walletcard/pkg/config"
	"walletcard/pkg/rpc"
	"walletcard/pkg/smartaccount"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	owner   = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	account = "0x1234567890123456789012345678901234567890"
)

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) SmartAccountAddress(ctx context.Context, owner string) (string, error) {
	args := m.Called(owner)
	return args.String(0), args.Error(1)
}

func (m *MockDataSource) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(address)
	bal, _ := args.Get(0).(*big.Int)
	return bal, args.Error(1)
}

// gatedSource blocks its first call until release is closed.
type gatedSource struct {
	account string
	balance *big.Int
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSource(account string, balance *big.Int) *gatedSource {
	return &gatedSource{
		account: account,
		balance: balance,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) wait() {
	g.once.Do(func() { close(g.started) })
	<-g.release
}

func (g *gatedSource) SmartAccountAddress(ctx context.Context, owner string) (string, error) {
	g.wait()
	if g.account == "" {
		return "", smartaccount.ErrNotReady
	}
	return g.account, nil
}

func (g *gatedSource) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	g.wait()
	return g.balance, nil
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func waitFor(t *testing.T, sub Subscriber, typ EventType) card.State {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Type == typ {
				return ev.Data.(card.State)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
			return card.State{}
		}
	}
}

func TestNewWatcher(t *testing.T) {
	w := NewWatcher(owner, config.ChainConfig{Name: "Sepolia", Symbol: "ETH"}, nil)

	st := w.State()
	assert.Equal(t, owner, st.PrimaryAddress)
	assert.Equal(t, card.Placeholder, st.PrimaryBalance)
	assert.Equal(t, card.Placeholder, st.SmartAccountBalance)

	snap := w.Snapshot()
	assert.Equal(t, "Sepolia", snap.Network)
	assert.True(t, snap.Connected)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	w := NewWatcher("", config.ChainConfig{}, nil)
	sub := w.Subscribe()
	assert.NotNil(t, sub)

	w.mu.RLock()
	assert.Equal(t, 1, len(w.subscribers))
	w.mu.RUnlock()

	w.Unsubscribe(sub)
	w.mu.RLock()
	assert.Equal(t, 0, len(w.subscribers))
	w.mu.RUnlock()
}

func TestSync(t *testing.T) {
	mockDS := new(MockDataSource)
	mockDS.On("SmartAccountAddress", owner).Return(account, nil).Once()
	mockDS.On("BalanceAt", owner).Return(ether(2), nil)
	mockDS.On("BalanceAt", account).Return(big.NewInt(0), nil)

	w := NewWatcher(owner, config.ChainConfig{}, mockDS)
	sub := w.Subscribe()

	w.sync(context.Background())
	mockDS.AssertExpectations(t)

	st := waitFor(t, sub, EventSmartAccountResolved)
	assert.Equal(t, account, st.SmartAccountAddress)

	st = waitFor(t, sub, EventBalancesUpdated)
	assert.Equal(t, "2", st.PrimaryBalance)
	assert.Equal(t, "0", st.SmartAccountBalance)

	// resolved address is not re-queried on the next sync
	w.sync(context.Background())
	mockDS.AssertNumberOfCalls(t, "SmartAccountAddress", 1)
}

func TestResolve_NotReadyLeavesAddressEmpty(t *testing.T) {
	mockDS := new(MockDataSource)
	mockDS.On("SmartAccountAddress", owner).Return("", smartaccount.ErrNotReady)
	mockDS.On("BalanceAt", owner).Return(ether(1), nil)

	w := NewWatcher(owner, config.ChainConfig{}, mockDS)
	w.sync(context.Background())

	st := w.State()
	assert.Empty(t, st.SmartAccountAddress)
	assert.Equal(t, "1", st.PrimaryBalance)
	assert.Equal(t, card.Placeholder, st.SmartAccountBalance)
	mockDS.AssertNotCalled(t, "BalanceAt", "")
}

func TestFetchBalances_NoDataSource(t *testing.T) {
	w := NewWatcher(owner, config.ChainConfig{}, nil)
	require.NoError(t, w.Refresh(context.Background()))
	assert.Equal(t, card.Placeholder, w.State().PrimaryBalance)
}

func TestFetchBalances_ErrorKeepsPlaceholder(t *testing.T) {
	mockDS := new(MockDataSource)
	mockDS.On("BalanceAt", owner).Return(nil, errors.New("rpc down"))

	w := NewWatcher(owner, config.ChainConfig{}, mockDS)
	err := w.FetchBalances(context.Background())
	assert.Error(t, err)
	assert.Equal(t, card.Placeholder, w.State().PrimaryBalance)
	assert.True(t, w.Snapshot().LastUpdated.IsZero())
}

func TestSetSession_ResetsBalances(t *testing.T) {
	mockDS := new(MockDataSource)
	mockDS.On("BalanceAt", owner).Return(ether(3), nil)

	w := NewWatcher(owner, config.ChainConfig{}, mockDS)
	require.NoError(t, w.FetchBalances(context.Background()))
	assert.Equal(t, "3", w.State().PrimaryBalance)

	sub := w.Subscribe()
	w.SetSession(account)

	st := waitFor(t, sub, EventSessionChanged)
	assert.Equal(t, account, st.PrimaryAddress)
	assert.Equal(t, card.Placeholder, st.PrimaryBalance)
	assert.Equal(t, card.Placeholder, st.SmartAccountBalance)
	assert.Empty(t, st.SmartAccountAddress)

	w.SetSession("")
	assert.False(t, w.Snapshot().Connected)
}

func TestSetDataSource_ReResolves(t *testing.T) {
	first := new(MockDataSource)
	first.On("SmartAccountAddress", owner).Return("", smartaccount.ErrNotReady)
	first.On("BalanceAt", owner).Return(ether(1), nil)

	second := new(MockDataSource)
	second.On("SmartAccountAddress", owner).Return(account, nil)
	second.On("BalanceAt", mock.Anything).Return(ether(5), nil)

	w := NewWatcher(owner, config.ChainConfig{}, first)
	sub := w.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	waitFor(t, sub, EventBalancesUpdated)
	assert.Empty(t, w.State().SmartAccountAddress)

	w.SetDataSource(second)
	st := waitFor(t, sub, EventSmartAccountResolved)
	assert.Equal(t, account, st.SmartAccountAddress)

	st = waitFor(t, sub, EventBalancesUpdated)
	assert.Equal(t, "5", st.PrimaryBalance)
	assert.Equal(t, "5", st.SmartAccountBalance)

	w.Stop()
	w.Stop()
}

func TestSetDataSource_DiscardsInFlightResolve(t *testing.T) {
	stale := newGatedSource("0x1111111111111111111111111111111111111111", ether(1))
	w := NewWatcher(owner, config.ChainConfig{}, stale)

	done := make(chan struct{})
	go func() {
		w.resolveSmartAccount(context.Background())
		close(done)
	}()
	<-stale.started

	fresh := new(MockDataSource)
	fresh.On("SmartAccountAddress", owner).Return(account, nil)
	w.SetDataSource(fresh)

	close(stale.release)
	<-done
	assert.Empty(t, w.State().SmartAccountAddress)

	w.resolveSmartAccount(context.Background())
	assert.Equal(t, account, w.State().SmartAccountAddress)
	fresh.AssertExpectations(t)
}

func TestFetchBalances_DiscardedAfterSessionChange(t *testing.T) {
	src := newGatedSource("", ether(9))
	w := NewWatcher(owner, config.ChainConfig{}, src)

	errc := make(chan error, 1)
	go func() { errc <- w.FetchBalances(context.Background()) }()
	<-src.started

	w.SetSession(account)
	close(src.release)
	require.NoError(t, <-errc)

	st := w.State()
	assert.Equal(t, account, st.PrimaryAddress)
	assert.Equal(t, card.Placeholder, st.PrimaryBalance)
	assert.Equal(t, card.Placeholder, st.SmartAccountBalance)
	assert.True(t, w.Snapshot().LastUpdated.IsZero())
}

func TestRealDataSource_Fallback(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0xde0b6b3a7640000",
		})
	}))
	defer up.Close()

	client := rpc.NewClient([]string{down.URL, up.URL}, time.Second)
	ds := &RealDataSource{RPC: client}

	bal, err := ds.BalanceAt(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, ether(1).Cmp(bal))
	assert.Equal(t, []string{down.URL}, client.FailedRPCs())

	_, err = ds.SmartAccountAddress(context.Background(), owner)
	assert.ErrorIs(t, err, smartaccount.ErrNotReady)

	_, err = (&RealDataSource{}).BalanceAt(context.Background(), owner)
	assert.ErrorIs(t, err, rpc.ErrNoRPC)
}
