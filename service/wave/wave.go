package wave

import (
	"time"
)

// Wave is a message stored by the wave portal contract, paired with the
// address that sent it and the block time it was recorded at.
// This is our domain model, independent of the ABI encoding.
type Wave struct {
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// RawRecord is a wave as returned by the chain gateway, before the
// timestamp has been converted.
type RawRecord struct {
	Sender           string
	TimestampSeconds int64
	Message          string
}

// FromRaw converts a raw gateway record into a Wave. The contract stores
// block timestamps in epoch seconds.
func FromRaw(r RawRecord) Wave {
	return Wave{
		Address:   r.Sender,
		Timestamp: time.Unix(r.TimestampSeconds, 0),
		Message:   r.Message,
	}
}

// FromRawList converts a list of raw records, preserving order.
func FromRawList(records []RawRecord) []Wave {
	waves := make([]Wave, len(records))
	for i, r := range records {
		waves[i] = FromRaw(r)
	}
	return waves
}

// Display returns the waves in presentation order (most recent first).
// The input slice is not modified.
func Display(waves []Wave) []Wave {
	out := make([]Wave, len(waves))
	for i, w := range waves {
		out[len(waves)-1-i] = w
	}
	return out
}
