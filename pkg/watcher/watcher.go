package watcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"walletcard/pkg/card"
	"walletcard/pkg/config"
	"walletcard/pkg/models"
	"walletcard/pkg/rpc"
	"walletcard/pkg/smartaccount"

	"github.com/rs/zerolog/log"
)

// DataSource defines the interface for fetching data.
type DataSource interface {
	SmartAccountAddress(ctx context.Context, owner string) (string, error)
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
}

// RealDataSource implements DataSource using the rpc and smartaccount packages.
type RealDataSource struct {
	RPC      *rpc.Client
	Accounts smartaccount.Provider
}

func (d *RealDataSource) SmartAccountAddress(ctx context.Context, owner string) (string, error) {
	if d.Accounts == nil {
		return "", smartaccount.ErrNotReady
	}
	return d.Accounts.Address(ctx, owner)
}

func (d *RealDataSource) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	if d.RPC == nil {
		return nil, rpc.ErrNoRPC
	}
	bal, err := d.RPC.BalanceAt(ctx, address)
	if failed := d.RPC.FailedRPCs(); err == nil && len(failed) > 0 {
		log.Warn().Strs("failed_rpcs", failed).Msg("balance served by fallback RPC")
	}
	return bal, err
}

// Watcher resolves the smart-account address and fetches balances for the
// current session, and broadcasts every change to its subscribers.
type Watcher struct {
	chain      config.ChainConfig
	state      card.State
	generation uint64
	lastUpdate time.Time

	subscribers []Subscriber
	mu          sync.RWMutex
	changes     chan struct{}
	stopChan    chan struct{}
	stopOnce    sync.Once
	dataSource  DataSource
}

// NewWatcher creates a Watcher for primary. A nil data source leaves the
// balances at their placeholder until SetDataSource is called.
func NewWatcher(primary string, chain config.ChainConfig, ds DataSource) *Watcher {
	return &Watcher{
		chain:      chain,
		state:      card.NewState(primary),
		changes:    make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		dataSource: ds,
	}
}

// SetDataSource swaps the providers and re-runs resolution and fetching.
// Results still in flight from the old providers are discarded.
func (w *Watcher) SetDataSource(ds DataSource) {
	w.mu.Lock()
	w.generation++
	w.dataSource = ds
	w.state.SmartAccountAddress = ""
	w.mu.Unlock()
	w.trigger()
}

// SetSession replaces the card for a new session identity. Balances return
// to the placeholder until the next successful fetch.
func (w *Watcher) SetSession(primary string) {
	w.mu.Lock()
	w.generation++
	w.state.PrimaryAddress = primary
	w.state.SmartAccountAddress = ""
	w.state.ResetBalances()
	state := w.state
	w.mu.Unlock()

	w.notify(Event{Type: EventSessionChanged, Data: state})
	w.trigger()
}

func (w *Watcher) trigger() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (w *Watcher) notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
			log.Debug().Str("event", string(event.Type)).Msg("subscriber full, event dropped")
		}
	}
}

// Start begins the resolve/fetch loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop stops the loop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *Watcher) loop(ctx context.Context) {
	w.sync(ctx)

	for {
		select {
		case <-w.changes:
			w.sync(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) sync(ctx context.Context) {
	w.resolveSmartAccount(ctx)
	if err := w.FetchBalances(ctx); err != nil {
		log.Debug().Err(err).Msg("balance fetch incomplete")
	}
}

func (w *Watcher) resolveSmartAccount(ctx context.Context) {
	w.mu.RLock()
	ds := w.dataSource
	owner := w.state.PrimaryAddress
	resolved := w.state.SmartAccountAddress
	gen := w.generation
	w.mu.RUnlock()

	if ds == nil || resolved != "" {
		return
	}

	addr, err := ds.SmartAccountAddress(ctx, owner)
	if err != nil {
		if errors.Is(err, smartaccount.ErrNotReady) {
			log.Debug().Str("owner", owner).Msg("smart account provider not ready")
		} else {
			log.Warn().Err(err).Str("owner", owner).Msg("resolve smart account")
		}
		return
	}

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return
	}
	w.state.SmartAccountAddress = addr
	state := w.state
	w.mu.Unlock()

	log.Info().Str("owner", owner).Str("account", addr).Msg("smart account resolved")
	w.notify(Event{Type: EventSmartAccountResolved, Data: state})
}

// FetchBalances queries both balances. A failed query leaves its slot
// unchanged; the returned error joins every failure.
func (w *Watcher) FetchBalances(ctx context.Context) error {
	w.mu.RLock()
	ds := w.dataSource
	primary := w.state.PrimaryAddress
	account := w.state.SmartAccountAddress
	gen := w.generation
	w.mu.RUnlock()

	if ds == nil {
		return nil
	}

	var errs []error
	primaryBal, accountBal := "", ""
	if primary != "" {
		wei, err := ds.BalanceAt(ctx, primary)
		if err != nil {
			errs = append(errs, fmt.Errorf("primary balance: %w", err))
		} else {
			primaryBal = card.FormatBalance(wei)
		}
	}
	if account != "" {
		wei, err := ds.BalanceAt(ctx, account)
		if err != nil {
			errs = append(errs, fmt.Errorf("smart account balance: %w", err))
		} else {
			accountBal = card.FormatBalance(wei)
		}
	}

	if primaryBal == "" && accountBal == "" {
		return errors.Join(errs...)
	}

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return errors.Join(errs...)
	}
	if primaryBal != "" {
		w.state.PrimaryBalance = primaryBal
	}
	if accountBal != "" {
		w.state.SmartAccountBalance = accountBal
	}
	w.lastUpdate = time.Now()
	state := w.state
	w.mu.Unlock()

	w.notify(Event{Type: EventBalancesUpdated, Data: state})
	return errors.Join(errs...)
}

// Refresh fetches balances now, on the caller's goroutine.
func (w *Watcher) Refresh(ctx context.Context) error {
	return w.FetchBalances(ctx)
}

// State returns a copy of the current card state.
func (w *Watcher) State() card.State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Watcher) Snapshot() models.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return models.Snapshot{
		Network:     w.chain.Name,
		Symbol:      w.chain.Symbol,
		Connected:   w.state.PrimaryAddress != "",
		Card:        w.state,
		LastUpdated: w.lastUpdate,
	}
}
