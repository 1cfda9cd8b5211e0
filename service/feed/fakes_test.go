package feed

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/brojonat/waveportal/service/ethereum"
	"github.com/brojonat/waveportal/service/wave"
)

const testContract = "0x0729F8E19F708fB4D1A3aBc000B72Fa8535599C8"

type fakeProvider struct {
	mu           sync.Mutex
	authorized   []string
	requested    []string
	readErr      error
	requestErr   error
	signErr      error
	requestCalls int
	signingCalls int
}

func (p *fakeProvider) ReadAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return nil, p.readErr
	}
	return p.authorized, nil
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestCalls++
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return p.requested, nil
}

func (p *fakeProvider) SigningHandle(ctx context.Context) (*bind.TransactOpts, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signingCalls++
	if p.signErr != nil {
		return nil, p.signErr
	}
	return &bind.TransactOpts{From: common.HexToAddress("0xaa")}, nil
}

type fakePending struct {
	hash    string
	err     error
	// release, when set, holds WaitForFinalization until closed.
	release chan struct{}
}

func (p *fakePending) Hash() string { return p.hash }

func (p *fakePending) WaitForFinalization(ctx context.Context) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

// fakeGateway records every call so tests can assert the gateway was (or
// was not) touched.
type fakeGateway struct {
	mu sync.Mutex

	records  []wave.RawRecord
	listErr  error
	// listGate, when set, holds ListAllRecords until closed.
	listGate chan struct{}

	counts    []*big.Int
	balances  []*big.Int
	pending   *fakePending
	submitErr error

	watchErr error
	sink     chan<- wave.RawRecord
	sub      event.Subscription
	unsubbed bool

	calls     map[string]int
	submitted []string
	gasLimits []uint64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		calls:    make(map[string]int),
		counts:   []*big.Int{big.NewInt(1), big.NewInt(2)},
		balances: []*big.Int{big.NewInt(1e17), big.NewInt(1e17)},
		pending:  &fakePending{hash: "0xfeed"},
	}
}

func (g *fakeGateway) called(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[name]++
}

func (g *fakeGateway) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.calls {
		total += n
	}
	return total
}

func (g *fakeGateway) Address() string { return testContract }

func (g *fakeGateway) ListAllRecords(ctx context.Context) ([]wave.RawRecord, error) {
	g.called("ListAllRecords")
	g.mu.Lock()
	gate := g.listGate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]wave.RawRecord(nil), g.records...), nil
}

func (g *fakeGateway) TotalRecordCount(ctx context.Context) (*big.Int, error) {
	g.called("TotalRecordCount")
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.counts) == 0 {
		return nil, errors.New("no count")
	}
	c := g.counts[0]
	g.counts = g.counts[1:]
	return c, nil
}

func (g *fakeGateway) HeldBalance(ctx context.Context, addr string) (*big.Int, error) {
	g.called("HeldBalance")
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.balances) == 0 {
		return nil, errors.New("no balance")
	}
	b := g.balances[0]
	g.balances = g.balances[1:]
	return b, nil
}

func (g *fakeGateway) SubmitRecord(ctx context.Context, signer *bind.TransactOpts, message string, gasLimit uint64) (ethereum.PendingSubmission, error) {
	g.called("SubmitRecord")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	g.submitted = append(g.submitted, message)
	g.gasLimits = append(g.gasLimits, gasLimit)
	return g.pending, nil
}

func (g *fakeGateway) submittedMessages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.submitted...)
}

func (g *fakeGateway) WatchNewRecords(ctx context.Context, sink chan<- wave.RawRecord) (event.Subscription, error) {
	g.called("WatchNewRecords")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.watchErr != nil {
		return nil, g.watchErr
	}
	g.sink = sink
	g.sub = event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		g.mu.Lock()
		g.unsubbed = true
		g.mu.Unlock()
		return nil
	})
	return g.sub, nil
}

func (g *fakeGateway) subscribed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sink != nil
}

func (g *fakeGateway) unsubscribed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unsubbed
}

// emit delivers a notification the way the chain subscription would.
func (g *fakeGateway) emit(r wave.RawRecord) {
	g.mu.Lock()
	sink := g.sink
	g.mu.Unlock()
	sink <- r
}

type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordingAlerter) Alert(ctx context.Context, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

func (a *recordingAlerter) alerts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}
