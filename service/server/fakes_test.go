package server

import (
	"context"
	"sync"

	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/wave"
)

// fakeFeed is an in-memory Feed. connect adopts account, or raises the
// no-wallet alert through alerts when account is empty.
type fakeFeed struct {
	mu        sync.Mutex
	state     feed.State
	account   string
	alerts    *AlertBox
	fetched   []wave.Wave
	fetches   int
	submitted chan string
}

func newFakeFeed(waves ...wave.Wave) *fakeFeed {
	return &fakeFeed{
		state:     feed.State{Waves: append([]wave.Wave{}, waves...)},
		submitted: make(chan string, 4),
	}
}

func (f *fakeFeed) State() feed.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Waves = append([]wave.Wave{}, f.state.Waves...)
	return s
}

func (f *fakeFeed) ConnectWallet(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account == "" {
		if f.alerts != nil {
			f.alerts.Alert(ctx, feed.NoWalletAlert)
		}
		return
	}
	f.state.Account = f.account
}

func (f *fakeFeed) FetchAllWaves(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetched != nil {
		f.state.Waves = f.fetched
	}
}

func (f *fakeFeed) SubmitWave(ctx context.Context, message string) {
	f.submitted <- message
}

func (f *fakeFeed) SetDraft(ctx context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Draft = text
}
