package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/wave"
)

func TestWavesCommands_RequireRPCURL(t *testing.T) {
	t.Setenv("ETH_RPC_URL", "")

	for _, sub := range []string{"list", "count", "balance", "watch"} {
		t.Run(sub, func(t *testing.T) {
			err := newApp().Run([]string{"waveportal", "waves", sub})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "EthRPCURL is required")
		})
	}
}

func TestWavesCommands_InvalidContract(t *testing.T) {
	err := newApp().Run([]string{"waveportal", "--rpc-url", "ws://localhost:8546", "--contract", "nope", "waves", "count"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ContractAddress must be a hex address")
}

func TestWavesCommands_WalletSourcesExclusive(t *testing.T) {
	err := newApp().Run([]string{
		"waveportal",
		"--rpc-url", "ws://localhost:8546",
		"--keystore", t.TempDir(),
		"--private-key", "0xabc",
		"waves", "send", "hi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestWavesList_InvalidJQ(t *testing.T) {
	err := newApp().Run([]string{"waveportal", "--rpc-url", "ws://localhost:8546", "waves", "list", "--jq", ".message =="})
	require.Error(t, err)
}

func TestWavesSend_RequiresMessage(t *testing.T) {
	err := newApp().Run([]string{"waveportal", "--rpc-url", "ws://localhost:8546", "waves", "send"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is required")
}

func TestPrintWaves(t *testing.T) {
	waves := []wave.Wave{
		{Address: "0x01", Timestamp: time.Unix(1700000000, 0).UTC(), Message: "first"},
		{Address: "0x02", Timestamp: time.Unix(1700000060, 0).UTC(), Message: "second"},
	}

	t.Run("human", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printWaves(&buf, waves, false))

		out := buf.String()
		assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"), "order is preserved")
		assert.Contains(t, out, "Time:    Tue Nov 14 2023 22:13:20 UTC")
		assert.Contains(t, out, "2 waves")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printWaves(&buf, waves, true))

		var got []wave.Wave
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "second", got[1].Message)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printWaves(&buf, nil, false))
		assert.Contains(t, buf.String(), "No waves found")

		buf.Reset()
		require.NoError(t, printWaves(&buf, nil, true))
		assert.JSONEq(t, "[]", buf.String())
	})
}

func TestPrintSendResult(t *testing.T) {
	result := sendResult{Hash: "0xhash", From: "0xaa", TotalWaves: "7", Won: true, Balance: "0.0999"}

	var buf bytes.Buffer
	require.NoError(t, printSendResult(&buf, result, false))
	assert.Contains(t, buf.String(), "You won ether!")
	assert.Contains(t, buf.String(), "0.0999 ETH")

	buf.Reset()
	result.Won = false
	require.NoError(t, printSendResult(&buf, result, true))
	assert.JSONEq(t, `{"hash":"0xhash","from":"0xaa","total_waves":"7","won":false,"contract_balance_ether":"0.0999"}`, buf.String())
}

func TestSendResultFrom(t *testing.T) {
	receipt := &feed.Receipt{
		Hash:          "0xhash",
		From:          "0xaa",
		CountBefore:   big.NewInt(6),
		CountAfter:    big.NewInt(7),
		BalanceBefore: big.NewInt(1e17),
		BalanceAfter:  big.NewInt(99e15),
	}

	result := sendResultFrom(receipt)
	assert.Equal(t, sendResult{Hash: "0xhash", From: "0xaa", TotalWaves: "7", Won: true, Balance: "0.099"}, result)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
