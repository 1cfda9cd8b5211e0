package ethereum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/brojonat/waveportal/service/metrics"
	"github.com/brojonat/waveportal/service/wave"
)

// ErrReverted is returned by WaitForFinalization when the transaction was
// included but the contract call failed.
var ErrReverted = errors.New("transaction reverted")

// PendingSubmission is a submitted but not yet finalized wave transaction.
type PendingSubmission interface {
	Hash() string
	WaitForFinalization(ctx context.Context) error
}

// Contract provides the wave portal operations on top of a node backend.
// It wraps the go-ethereum bound contract with logging and metrics.
type Contract struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewContract creates a gateway for the contract deployed at address.
// If metrics is nil, no metrics will be recorded.
func NewContract(address common.Address, parsed abi.ABI, backend Backend, m *metrics.Metrics, logger *slog.Logger) *Contract {
	return &Contract{
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend: backend,
		logger:  logger,
		metrics: m,
	}
}

// Address returns the contract address in checksum form.
func (c *Contract) Address() string {
	return c.address.Hex()
}

// ListAllRecords calls getAllWaves and returns every stored record in
// contract order.
func (c *Contract) ListAllRecords(ctx context.Context) ([]wave.RawRecord, error) {
	var out []interface{}
	start := time.Now()
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, methodGetAllWaves)
	c.record(methodGetAllWaves, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", methodGetAllWaves, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", methodGetAllWaves)
	}

	converted, ok := abi.ConvertType(out[0], new([]contractWave)).(*[]contractWave)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", methodGetAllWaves, out[0])
	}

	records := make([]wave.RawRecord, len(*converted))
	for i, w := range *converted {
		records[i] = w.toRaw()
	}

	c.logger.DebugContext(ctx, "fetched all waves", "count", len(records))
	return records, nil
}

// TotalRecordCount calls getTotalWaves.
func (c *Contract) TotalRecordCount(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	start := time.Now()
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, methodGetTotalWaves)
	c.record(methodGetTotalWaves, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", methodGetTotalWaves, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", methodGetTotalWaves)
	}

	count, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", methodGetTotalWaves, out[0])
	}
	return count, nil
}

// HeldBalance returns the native balance held at addr, in wei.
func (c *Contract) HeldBalance(ctx context.Context, addr string) (*big.Int, error) {
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("invalid address %q", addr)
	}
	start := time.Now()
	balance, err := c.backend.BalanceAt(ctx, common.HexToAddress(addr), nil)
	c.record("eth_getBalance", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", addr, err)
	}
	return balance, nil
}

// SubmitRecord sends a wave(message) transaction signed by signer with a
// fixed gas limit. It returns once the node accepted the transaction.
func (c *Contract) SubmitRecord(ctx context.Context, signer *bind.TransactOpts, message string, gasLimit uint64) (PendingSubmission, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	opts := *signer
	opts.Context = ctx
	opts.GasLimit = gasLimit

	start := time.Now()
	tx, err := c.bound.Transact(&opts, methodWave, message)
	c.record(methodWave, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", methodWave, err)
	}

	c.logger.DebugContext(ctx, "wave transaction sent",
		"hash", tx.Hash().Hex(),
		"from", signer.From.Hex(),
		"gas_limit", gasLimit,
	)
	return &submission{tx: tx, contract: c}, nil
}

// WatchNewRecords subscribes to NewWave logs and delivers each decoded
// record to sink. Logs that fail to decode are logged and skipped; logs
// removed by a reorg are ignored. The subscription ends when ctx is done,
// Unsubscribe is called or the underlying log subscription fails.
func (c *Contract) WatchNewRecords(ctx context.Context, sink chan<- wave.RawRecord) (event.Subscription, error) {
	start := time.Now()
	logs, sub, err := c.bound.WatchLogs(&bind.WatchOpts{Context: ctx}, eventNewWave)
	c.record("eth_subscribe", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", eventNewWave, err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case log := <-logs:
				if log.Removed {
					continue
				}
				record, err := c.decodeNewWave(log)
				if err != nil {
					c.logger.WarnContext(ctx, "failed to decode NewWave log",
						"tx_hash", log.TxHash.Hex(),
						"error", err,
					)
					continue
				}
				select {
				case sink <- record:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (c *Contract) decodeNewWave(log types.Log) (wave.RawRecord, error) {
	var ev newWaveEvent
	if err := c.bound.UnpackLog(&ev, eventNewWave, log); err != nil {
		return wave.RawRecord{}, err
	}
	ev.Raw = log
	return ev.toRaw(), nil
}

func (c *Contract) record(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, time.Since(start).Seconds())
}

// submission tracks a sent wave transaction until its receipt arrives.
type submission struct {
	tx       *types.Transaction
	contract *Contract
}

func (s *submission) Hash() string {
	return s.tx.Hash().Hex()
}

// WaitForFinalization blocks until the transaction is mined or ctx is done.
func (s *submission) WaitForFinalization(ctx context.Context) error {
	start := time.Now()
	receipt, err := bind.WaitMined(ctx, s.contract.backend, s.tx)
	s.contract.record("eth_getTransactionReceipt", start, err)
	if err != nil {
		return fmt.Errorf("failed waiting for %s: %w", s.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s in block %s", ErrReverted, s.Hash(), receipt.BlockNumber)
	}
	return nil
}
