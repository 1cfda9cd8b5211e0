package ethereum

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEther(t *testing.T) {
	tests := []struct {
		wei  *big.Int
		want string
	}{
		{wei: nil, want: "0"},
		{wei: big.NewInt(0), want: "0"},
		{wei: big.NewInt(1e17), want: "0.1"},
		{wei: big.NewInt(1e18), want: "1"},
		{wei: new(big.Int).Mul(big.NewInt(25), big.NewInt(1e17)), want: "2.5"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEther(tt.wei))
	}
}
