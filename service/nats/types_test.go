package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/waveportal/service/wave"
)

func TestFromWave(t *testing.T) {
	w := wave.Wave{
		Address:   "0x00000000000000000000000000000000000000aA",
		Timestamp: time.UnixMilli(1000000),
		Message:   "hi",
	}

	before := time.Now().UTC()
	event := FromWave("0x0729f8e19f708fb4d1a3abc000b72fa8535599c8", w)

	assert.Equal(t, "0x0729f8e19f708fb4d1a3abc000b72fa8535599c8", event.Contract)
	assert.Equal(t, w.Address, event.Address)
	assert.Equal(t, "hi", event.Message)
	assert.True(t, event.Timestamp.Equal(w.Timestamp))
	assert.False(t, event.PublishedAt.Before(before))
	assert.Equal(t, w, event.ToWave())
}

func TestWaveEvent_JSON(t *testing.T) {
	event := &WaveEvent{
		Contract:    "0xabc",
		Address:     "0xdef",
		Message:     "hello",
		Timestamp:   time.Unix(1000, 0).UTC(),
		PublishedAt: time.Unix(2000, 0).UTC(),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "0xabc", fields["contract"])
	assert.Equal(t, "0xdef", fields["address"])
	assert.Equal(t, "hello", fields["message"])
	assert.Equal(t, "1970-01-01T00:16:40Z", fields["timestamp"])
	assert.Contains(t, fields, "published_at")
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "waves.0x0729f8e19f708fb4d1a3abc000b72fa8535599c8",
		SubjectFor("0x0729F8E19F708fB4D1A3aBc000B72Fa8535599C8"))
}

func TestMockPublisher(t *testing.T) {
	ctx := context.Background()
	m := NewMockPublisher()

	require.NoError(t, m.PublishWave(ctx, &WaveEvent{Message: "one"}))
	require.NoError(t, m.PublishWave(ctx, &WaveEvent{Message: "two"}))
	assert.Equal(t, 2, m.GetPublishedEventCount())
	assert.Equal(t, "two", m.GetPublishedEvents()[1].Message)

	m.SetPublishError(errors.New("nats down"))
	assert.EqualError(t, m.PublishWave(ctx, &WaveEvent{Message: "three"}), "nats down")
	assert.Equal(t, 2, m.GetPublishedEventCount())

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())

	m.Reset()
	assert.Equal(t, 0, m.GetPublishedEventCount())
	assert.False(t, m.IsClosed())
}
