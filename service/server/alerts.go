package server

import (
	"context"
	"sync"
)

// AlertBox holds the most recent user-facing alert until a page or API
// response shows it. It implements feed.Alerter.
type AlertBox struct {
	mu      sync.Mutex
	message string
}

// NewAlertBox creates an empty alert box.
func NewAlertBox() *AlertBox {
	return &AlertBox{}
}

// Alert stores message, replacing any alert not yet shown.
func (a *AlertBox) Alert(ctx context.Context, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.message = message
}

// Pop returns the pending alert and clears it.
func (a *AlertBox) Pop() string {
	if a == nil {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	msg := a.message
	a.message = ""
	return msg
}
