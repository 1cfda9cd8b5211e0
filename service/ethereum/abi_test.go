package ethereum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bareABI = `[
  {"type":"function","name":"getAllWaves","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"waver","type":"address"},{"name":"message","type":"string"},{"name":"timestamp","type":"uint256"}]}]},
  {"type":"function","name":"getTotalWaves","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"wave","stateMutability":"nonpayable","inputs":[{"name":"_message","type":"string"}],"outputs":[]},
  {"type":"event","name":"NewWave","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"timestamp","type":"uint256","indexed":false},
    {"name":"message","type":"string","indexed":false}]}
]`

func TestLoadABI_Embedded(t *testing.T) {
	parsed, err := LoadABI("")
	require.NoError(t, err)

	assert.Contains(t, parsed.Methods, "getAllWaves")
	assert.Contains(t, parsed.Methods, "getTotalWaves")
	assert.Contains(t, parsed.Methods, "wave")
	require.Contains(t, parsed.Events, "NewWave")
	assert.Equal(t, "NewWave(address,uint256,string)", parsed.Events["NewWave"].Sig)
}

func TestLoadABI_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WavePortal.abi.json")
	require.NoError(t, os.WriteFile(path, []byte(bareABI), 0o600))

	parsed, err := LoadABI(path)
	require.NoError(t, err)
	assert.Len(t, parsed.Methods, 3)
}

func TestLoadABI_MissingFile(t *testing.T) {
	_, err := LoadABI(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read ABI file")
}

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "bare abi array", data: bareABI},
		{name: "hardhat artifact", data: `{"contractName":"WavePortal","abi":` + bareABI + `}`},
		{name: "artifact without abi", data: `{"contractName":"WavePortal"}`, wantErr: "no abi field"},
		{name: "not json", data: `hello`, wantErr: "failed to parse ABI"},
		{
			name:    "missing wave method",
			data:    `[{"type":"function","name":"getAllWaves","inputs":[],"outputs":[]}]`,
			wantErr: "missing method",
		},
		{
			name: "missing event",
			data: `[
				{"type":"function","name":"getAllWaves","inputs":[],"outputs":[]},
				{"type":"function","name":"getTotalWaves","inputs":[],"outputs":[]},
				{"type":"function","name":"wave","inputs":[{"name":"m","type":"string"}],"outputs":[]}
			]`,
			wantErr: `missing event "NewWave"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArtifact([]byte(tt.data))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
