package feed

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/brojonat/waveportal/service/ethereum"
)

// Receipt describes a mined wave and the contract state around it.
type Receipt struct {
	Hash          string
	From          string
	CountBefore   *big.Int
	CountAfter    *big.Int
	BalanceBefore *big.Int
	BalanceAfter  *big.Int
	Mining        time.Duration
}

// Won reports whether the contract paid out for this wave.
func (r *Receipt) Won() bool {
	return r.BalanceAfter.Cmp(r.BalanceBefore) < 0
}

// Submit sends a wave(message) transaction signed by signer and waits for it
// to be mined. The contract's wave count and balance are read before and
// after, and every step is logged. The first failing step ends the sequence.
func Submit(ctx context.Context, gateway Gateway, signer *bind.TransactOpts, message string, gasLimit uint64, logger *slog.Logger) (*Receipt, error) {
	receipt := &Receipt{From: signer.From.Hex()}

	count, err := gateway.TotalRecordCount(ctx)
	if err != nil {
		return nil, err
	}
	receipt.CountBefore = count
	logger.InfoContext(ctx, "retrieved total wave count", "count", count.String())

	contract := gateway.Address()
	receipt.BalanceBefore, err = gateway.HeldBalance(ctx, contract)
	if err != nil {
		return nil, err
	}

	pending, err := gateway.SubmitRecord(ctx, signer, message, gasLimit)
	if err != nil {
		return nil, err
	}
	receipt.Hash = pending.Hash()
	logger.InfoContext(ctx, "mining", "hash", receipt.Hash)

	start := time.Now()
	if err := pending.WaitForFinalization(ctx); err != nil {
		return nil, err
	}
	receipt.Mining = time.Since(start)
	logger.InfoContext(ctx, "mined", "hash", receipt.Hash)

	count, err = gateway.TotalRecordCount(ctx)
	if err != nil {
		return nil, err
	}
	receipt.CountAfter = count
	logger.InfoContext(ctx, "retrieved total wave count", "count", count.String())

	receipt.BalanceAfter, err = gateway.HeldBalance(ctx, contract)
	if err != nil {
		return nil, err
	}
	if receipt.Won() {
		logger.InfoContext(ctx, "user won ether")
	} else {
		logger.InfoContext(ctx, "user didn't win")
	}
	logger.InfoContext(ctx, "contract balance is now", "ether", ethereum.FormatEther(receipt.BalanceAfter))

	return receipt, nil
}
