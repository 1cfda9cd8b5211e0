package ethereum

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/brojonat/waveportal/service/wave"
)

// contractWave mirrors the WavePortal.Wave struct returned by getAllWaves.
// Field names must match the ABI component names in camel case.
type contractWave struct {
	Waver     common.Address
	Message   string
	Timestamp *big.Int
}

func (w contractWave) toRaw() wave.RawRecord {
	return wave.RawRecord{
		Sender:           w.Waver.Hex(),
		TimestampSeconds: bigToInt64(w.Timestamp),
		Message:          w.Message,
	}
}

// newWaveEvent is the decoded NewWave(address indexed from, uint256 timestamp, string message) log.
type newWaveEvent struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
	Raw       types.Log
}

func (e newWaveEvent) toRaw() wave.RawRecord {
	return wave.RawRecord{
		Sender:           e.From.Hex(),
		TimestampSeconds: bigToInt64(e.Timestamp),
		Message:          e.Message,
	}
}

// bigToInt64 saturates values that do not fit, so an oversized timestamp
// still sorts after every real one.
func bigToInt64(v *big.Int) int64 {
	switch {
	case v == nil:
		return 0
	case v.IsInt64():
		return v.Int64()
	case v.Sign() > 0:
		return math.MaxInt64
	default:
		return math.MinInt64
	}
}
