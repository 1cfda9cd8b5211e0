package feed

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/event"

	"github.com/brojonat/waveportal/service/ethereum"
	"github.com/brojonat/waveportal/service/metrics"
	natspkg "github.com/brojonat/waveportal/service/nats"
	"github.com/brojonat/waveportal/service/wave"
)

// NoWalletAlert is shown when the user asks to connect and no wallet
// provider is configured.
const NoWalletAlert = "No wallet found. Set KEYSTORE_DIR or WALLET_PRIVATE_KEY to connect."

// WalletProvider holds the user's keys and authorizes signing.
type WalletProvider interface {
	// ReadAccounts returns accounts already authorized, without asking the user.
	ReadAccounts(ctx context.Context) ([]string, error)
	// RequestAccounts asks the user to authorize access to their accounts.
	RequestAccounts(ctx context.Context) ([]string, error)
	// SigningHandle returns options for signing transactions as the first account.
	SigningHandle(ctx context.Context) (*bind.TransactOpts, error)
}

// Gateway is the deployed wave portal contract.
type Gateway interface {
	Address() string
	ListAllRecords(ctx context.Context) ([]wave.RawRecord, error)
	TotalRecordCount(ctx context.Context) (*big.Int, error)
	HeldBalance(ctx context.Context, addr string) (*big.Int, error)
	SubmitRecord(ctx context.Context, signer *bind.TransactOpts, message string, gasLimit uint64) (ethereum.PendingSubmission, error)
	WatchNewRecords(ctx context.Context, sink chan<- wave.RawRecord) (event.Subscription, error)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(ctx context.Context, message string)
}

// AlertFunc adapts a function to the Alerter interface.
type AlertFunc func(ctx context.Context, message string)

func (f AlertFunc) Alert(ctx context.Context, message string) { f(ctx, message) }

// State is a snapshot of what the page shows.
type State struct {
	Account    string      `json:"account,omitempty"`
	Draft      string      `json:"draft"`
	Waves      []wave.Wave `json:"waves"`
	Subscribed bool        `json:"subscribed"`
}

// Connected reports whether a wallet account has been adopted.
func (s State) Connected() bool {
	return s.Account != ""
}

// Options tune controller behavior.
type Options struct {
	// GasLimit is the fixed gas bound for every wave transaction.
	GasLimit uint64
	// FetchOnConnect triggers a full fetch after an explicit connect.
	FetchOnConnect bool
	// Publisher relays appended waves; nil disables relaying.
	Publisher natspkg.Publisher
}

const relayBuffer = 64

// Controller owns the wave feed state. All mutations are applied by the
// Run loop; operations may be called from any goroutine while Run is active.
type Controller struct {
	provider WalletProvider
	gateway  Gateway
	alerter  Alerter
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger

	updates chan func(*State)
	relay   chan wave.Wave
	changes chan struct{}
	stopped chan struct{}
	wg      sync.WaitGroup

	mu    sync.RWMutex
	state State
}

// NewController creates a controller. provider may be nil when no wallet
// is available; pass an untyped nil, not a nil pointer.
// If metrics is nil, no metrics will be recorded.
func NewController(provider WalletProvider, gateway Gateway, alerter Alerter, opts Options, m *metrics.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		provider: provider,
		gateway:  gateway,
		alerter:  alerter,
		opts:     opts,
		metrics:  m,
		logger:   logger.With("component", "feed"),
		updates:  make(chan func(*State)),
		relay:    make(chan wave.Wave, relayBuffer),
		changes:  make(chan struct{}, 1),
		stopped:  make(chan struct{}),
		state:    State{Waves: []wave.Wave{}},
	}
}

// Run mounts the controller: it opens the NewWave subscription when a
// wallet provider exists, starts the silent connection check, and applies
// state updates until ctx is done. The subscription is released on return.
// Run must be called at most once.
func (c *Controller) Run(ctx context.Context) error {
	defer c.wg.Wait()
	defer close(c.stopped)

	notifications := make(chan wave.RawRecord, 16)
	var subErr <-chan error

	if c.provider != nil {
		sub, err := c.gateway.WatchNewRecords(ctx, notifications)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to subscribe to new waves", "error", err)
		} else {
			defer func() {
				sub.Unsubscribe()
				c.setSubscribed(false)
				c.logger.InfoContext(ctx, "unsubscribed from new waves")
			}()
			subErr = sub.Err()
			c.setSubscribed(true)
			c.logger.InfoContext(ctx, "subscribed to new waves", "contract", c.gateway.Address())
		}
	} else {
		c.logger.InfoContext(ctx, "no wallet provider available, not subscribing")
	}

	if c.opts.Publisher != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.relayLoop(ctx)
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.CheckExistingConnection(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case apply := <-c.updates:
			c.apply(apply)
		case raw := <-notifications:
			c.appendNotification(ctx, raw)
		case err := <-subErr:
			// A nil error means the subscription was closed without failure.
			c.logger.ErrorContext(ctx, "new wave subscription ended", "error", err)
			subErr = nil
			c.setSubscribed(false)
		}
	}
}

// CheckExistingConnection adopts an already authorized account, if any,
// and fetches all waves for it. It never prompts the user.
func (c *Controller) CheckExistingConnection(ctx context.Context) {
	if c.provider == nil {
		c.logger.InfoContext(ctx, "no wallet provider available")
		return
	}

	accounts, err := c.provider.ReadAccounts(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to read accounts", "error", err)
		return
	}
	if len(accounts) == 0 {
		c.logger.InfoContext(ctx, "no authorized account found")
		return
	}

	c.logger.InfoContext(ctx, "found an authorized account", "account", accounts[0])
	if !c.update(ctx, func(s *State) { s.Account = accounts[0] }) {
		return
	}
	c.FetchAllWaves(ctx)
}

// ConnectWallet asks the wallet provider for account access and adopts
// the first account. Without a provider the user is alerted and nothing
// else happens.
func (c *Controller) ConnectWallet(ctx context.Context) {
	if c.provider == nil {
		c.logger.WarnContext(ctx, "no wallet provider available")
		if c.alerter != nil {
			c.alerter.Alert(ctx, NoWalletAlert)
		}
		return
	}

	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to connect wallet", "error", err)
		return
	}
	if len(accounts) == 0 {
		c.logger.WarnContext(ctx, "wallet returned no accounts")
		return
	}

	c.logger.InfoContext(ctx, "connected", "account", accounts[0])
	if !c.update(ctx, func(s *State) { s.Account = accounts[0] }) {
		return
	}
	if c.opts.FetchOnConnect {
		c.FetchAllWaves(ctx)
	}
}

// FetchAllWaves replaces the wave list with every wave stored by the contract.
func (c *Controller) FetchAllWaves(ctx context.Context) {
	if c.provider == nil {
		c.logger.InfoContext(ctx, "no wallet provider available, not fetching waves")
		return
	}

	records, err := c.gateway.ListAllRecords(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to fetch waves", "error", err)
		if c.metrics != nil {
			c.metrics.RecordFetch("error", 0)
		}
		return
	}

	waves := wave.FromRawList(records)
	if !c.update(ctx, func(s *State) { s.Waves = waves }) {
		return
	}
	if c.metrics != nil {
		c.metrics.RecordFetch("success", len(waves))
	}
	c.logger.DebugContext(ctx, "fetched waves", "count", len(waves))
}

// SubmitWave sends a wave(message) transaction and waits for it to be
// mined, logging the contract's wave count and balance around it. It never
// touches the wave list; the NewWave notification appends the wave.
// Concurrent calls are neither serialized nor deduplicated.
func (c *Controller) SubmitWave(ctx context.Context, message string) {
	if err := c.submitWave(ctx, message); err != nil {
		c.logger.ErrorContext(ctx, "failed to submit wave", "error", err)
		if c.metrics != nil {
			status := "error"
			if errors.Is(err, ethereum.ErrReverted) {
				status = "reverted"
			}
			c.metrics.RecordSubmission(status)
		}
		return
	}
	if c.metrics != nil {
		c.metrics.RecordSubmission("success")
	}
}

var errNoProvider = errors.New("no wallet provider available")

func (c *Controller) submitWave(ctx context.Context, message string) error {
	if c.provider == nil {
		return errNoProvider
	}

	signer, err := c.provider.SigningHandle(ctx)
	if err != nil {
		return err
	}

	receipt, err := Submit(ctx, c.gateway, signer, message, c.opts.GasLimit, c.logger)
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordFinalization(receipt.Mining.Seconds())
		if receipt.Won() {
			c.metrics.RecordPrizeWon()
		}
	}
	return nil
}

// SetDraft replaces the draft message.
func (c *Controller) SetDraft(ctx context.Context, text string) {
	c.update(ctx, func(s *State) { s.Draft = text })
}

// State returns a snapshot of the current state. The wave list is a copy.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	s.Waves = append([]wave.Wave(nil), c.state.Waves...)
	if s.Waves == nil {
		s.Waves = []wave.Wave{}
	}
	return s
}

// Display returns the waves most recent first.
func (c *Controller) Display() []wave.Wave {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return wave.Display(c.state.Waves)
}

// Changes signals after state updates. Signals coalesce; read State after
// receiving one.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

// update hands apply to the Run loop and waits until it has been applied.
// It returns false if ctx is done or Run has exited first.
func (c *Controller) update(ctx context.Context, apply func(*State)) bool {
	done := make(chan struct{})
	wrapped := func(s *State) {
		apply(s)
		close(done)
	}

	select {
	case c.updates <- wrapped:
	case <-ctx.Done():
		return false
	case <-c.stopped:
		return false
	}
	// the loop applies updates synchronously once received
	<-done
	return true
}

func (c *Controller) apply(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) appendNotification(ctx context.Context, raw wave.RawRecord) {
	w := wave.FromRaw(raw)
	c.logger.InfoContext(ctx, "new wave", "from", w.Address, "timestamp", w.Timestamp, "message", w.Message)

	var size int
	c.apply(func(s *State) {
		s.Waves = append(s.Waves, w)
		size = len(s.Waves)
	})
	if c.metrics != nil {
		c.metrics.RecordNotification("success", size)
	}

	if c.opts.Publisher == nil {
		return
	}
	select {
	case c.relay <- w:
	default:
		c.logger.WarnContext(ctx, "relay buffer full, dropping wave", "from", w.Address)
	}
}

func (c *Controller) relayLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-c.relay:
			pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.opts.Publisher.PublishWave(pubCtx, natspkg.FromWave(c.gateway.Address(), w))
			cancel()
			if err != nil {
				c.logger.ErrorContext(ctx, "failed to relay wave", "error", err)
			}
		}
	}
}

func (c *Controller) setSubscribed(subscribed bool) {
	c.apply(func(s *State) { s.Subscribed = subscribed })
	if c.metrics != nil {
		c.metrics.SetSubscriptionActive(subscribed)
	}
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}
