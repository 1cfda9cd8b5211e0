package nats

import (
	"strings"
	"time"

	"github.com/brojonat/waveportal/service/wave"
)

// WaveEvent represents a newly appended wave published to NATS.
// This is published to the subject "waves.{contract_address}" in JetStream.
type WaveEvent struct {
	Contract  string    `json:"contract"`
	Address   string    `json:"address"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromWave converts a wave observed on contract to a WaveEvent for publishing.
func FromWave(contract string, w wave.Wave) *WaveEvent {
	return &WaveEvent{
		Contract:    contract,
		Address:     w.Address,
		Message:     w.Message,
		Timestamp:   w.Timestamp,
		PublishedAt: time.Now().UTC(),
	}
}

// ToWave returns the wave carried by the event.
func (e *WaveEvent) ToWave() wave.Wave {
	return wave.Wave{
		Address:   e.Address,
		Timestamp: e.Timestamp,
		Message:   e.Message,
	}
}

// SubjectFor returns the subject waves for contract are published on.
// Addresses are lowercased so checksum and plain hex forms share a subject.
func SubjectFor(contract string) string {
	return SubjectPrefix + strings.ToLower(contract)
}
