package waveui

import "context"

// Alerter delivers controller alerts to the Model. It implements
// feed.Alerter.
type Alerter struct {
	ch chan string
}

// NewAlerter creates an alerter with room for a few pending alerts.
func NewAlerter() *Alerter {
	return &Alerter{ch: make(chan string, 4)}
}

// Alert queues message for display. Alerts are dropped while the queue is full.
func (a *Alerter) Alert(ctx context.Context, message string) {
	select {
	case a.ch <- message:
	default:
	}
}

func (a *Alerter) alerts() <-chan string {
	if a == nil {
		return nil
	}
	return a.ch
}
