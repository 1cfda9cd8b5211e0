package ethereum

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method and event names used by the wave portal.
const (
	methodGetAllWaves   = "getAllWaves"
	methodGetTotalWaves = "getTotalWaves"
	methodWave          = "wave"
	eventNewWave        = "NewWave"
)

//go:embed artifacts/WavePortal.json
var defaultArtifact []byte

// LoadABI reads the contract interface description from path. An empty
// path returns the embedded WavePortal artifact.
func LoadABI(path string) (abi.ABI, error) {
	if path == "" {
		return ParseArtifact(defaultArtifact)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read ABI file: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact parses either a compiler artifact ({"abi": [...], ...}) or
// a bare ABI array, and checks that the wave portal interface is present.
func ParseArtifact(data []byte) (abi.ABI, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '{' {
		var artifact struct {
			ABI json.RawMessage `json:"abi"`
		}
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return abi.ABI{}, fmt.Errorf("failed to decode artifact: %w", err)
		}
		if len(artifact.ABI) == 0 {
			return abi.ABI{}, fmt.Errorf("artifact has no abi field")
		}
		raw = artifact.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	for _, name := range []string{methodGetAllWaves, methodGetTotalWaves, methodWave} {
		if _, ok := parsed.Methods[name]; !ok {
			return abi.ABI{}, fmt.Errorf("ABI is missing method %q", name)
		}
	}
	if _, ok := parsed.Events[eventNewWave]; !ok {
		return abi.ABI{}, fmt.Errorf("ABI is missing event %q", eventNewWave)
	}

	return parsed, nil
}
