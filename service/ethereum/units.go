package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// FormatEther renders a wei amount in ether, e.g. 1e17 wei as "0.1".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	ether := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return ether.Text('f', -1)
}
