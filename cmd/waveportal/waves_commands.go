package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/waveportal/service/ethereum"
	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/wave"
)

// timeFormat matches how the page renders wave timestamps.
const timeFormat = "Mon Jan 02 2006 15:04:05 MST"

func wavesCommands() *cli.Command {
	return &cli.Command{
		Name:  "waves",
		Usage: "Read and send waves directly against the contract",
		Subcommands: []*cli.Command{
			listWavesCommand(),
			sendWaveCommand(),
			watchWavesCommand(),
			countWavesCommand(),
			balanceCommand(),
		},
	}
}

func listWavesCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List every wave stored by the contract",
		Description: `Fetch all waves with getAllWaves() and print them.

Waves are printed in the order the contract stores them (oldest first)
unless --display is given. --jq keeps only waves for which every expression
is truthy; each wave is the object {address, timestamp, message}, with
timestamp in epoch seconds.

Example:
  waveportal waves list --display --jq '.message | test("gm"; "i")'`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq expression a wave must satisfy (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "display",
				Usage: "Most recent first, as the page shows them",
			},
		},
		Action: func(c *cli.Context) error {
			var filter *wave.Filter
			if exprs := c.StringSlice("jq"); len(exprs) > 0 {
				f, err := wave.NewFilter(exprs...)
				if err != nil {
					return err
				}
				filter = f
			}

			p, err := openPortal(c, cliLogger(c, os.Stderr))
			if err != nil {
				return err
			}
			defer p.Close()

			records, err := p.contract.ListAllRecords(c.Context)
			if err != nil {
				return err
			}

			waves := wave.FromRawList(records)
			if filter != nil {
				waves = filter.Apply(waves)
			}
			if c.Bool("display") {
				waves = wave.Display(waves)
			}

			return printWaves(os.Stdout, waves, c.Bool("json"))
		},
	}
}

func sendWaveCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send a wave and wait for it to be mined",
		ArgsUsage: "MESSAGE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the transaction to be mined",
				Value: 5 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("message is required")
			}
			message := c.Args().Get(0)
			jsonOutput := c.Bool("json")

			logger := cliLogger(c, os.Stderr)
			p, err := openPortal(c, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			provider, err := p.walletProvider(terminalPrompt)
			if err != nil {
				return err
			}
			if provider == nil {
				return fmt.Errorf("no wallet configured (use --keystore or --private-key)")
			}
			if _, err := provider.RequestAccounts(c.Context); err != nil {
				return fmt.Errorf("failed to authorize wallet: %w", err)
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			signer, err := provider.SigningHandle(ctx)
			if err != nil {
				return err
			}

			receipt, err := feed.Submit(ctx, p.contract, signer, message, p.cfg.GasLimit, logger)
			if err != nil {
				return err
			}

			return printSendResult(os.Stdout, sendResultFrom(receipt), jsonOutput)
		},
	}
}

type sendResult struct {
	Hash       string `json:"hash"`
	From       string `json:"from"`
	TotalWaves string `json:"total_waves"`
	Won        bool   `json:"won"`
	Balance    string `json:"contract_balance_ether"`
}

func sendResultFrom(r *feed.Receipt) sendResult {
	return sendResult{
		Hash:       r.Hash,
		From:       r.From,
		TotalWaves: r.CountAfter.String(),
		Won:        r.Won(),
		Balance:    ethereum.FormatEther(r.BalanceAfter),
	}
}

func printSendResult(w io.Writer, r sendResult, jsonOutput bool) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(r)
	}
	fmt.Fprintf(w, "✓ Mined %s\n", r.Hash)
	fmt.Fprintf(w, "  From:        %s\n", r.From)
	fmt.Fprintf(w, "  Total waves: %s\n", r.TotalWaves)
	if r.Won {
		fmt.Fprintf(w, "  You won ether!\n")
	} else {
		fmt.Fprintf(w, "  You didn't win this time.\n")
	}
	fmt.Fprintf(w, "  Contract balance: %s ETH\n", r.Balance)
	return nil
}

func watchWavesCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print waves as the contract emits NewWave (needs a websocket RPC URL)",
		Action: func(c *cli.Context) error {
			jsonOutput := c.Bool("json")

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			p, err := openPortal(c, cliLogger(c, os.Stderr))
			if err != nil {
				return err
			}
			defer p.Close()

			records := make(chan wave.RawRecord, 16)
			sub, err := p.contract.WatchNewRecords(ctx, records)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Watching %s for new waves... (Ctrl-C to exit)\n\n", p.contract.Address())
			}

			count := 0
			for {
				select {
				case raw := <-records:
					count++
					if err := printWave(os.Stdout, wave.FromRaw(raw), jsonOutput); err != nil {
						return err
					}
				case err := <-sub.Err():
					if err != nil {
						return fmt.Errorf("subscription failed: %w", err)
					}
					return nil
				case <-ctx.Done():
					if !jsonOutput {
						fmt.Fprintf(os.Stderr, "\nReceived %d waves\n", count)
					}
					return nil
				}
			}
		},
	}
}

func countWavesCommand() *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Print the contract's total wave count",
		Action: func(c *cli.Context) error {
			p, err := openPortal(c, cliLogger(c, os.Stderr))
			if err != nil {
				return err
			}
			defer p.Close()

			count, err := p.contract.TotalRecordCount(c.Context)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{"total_waves": count.String()})
			}
			fmt.Println(count.String())
			return nil
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Print the ether held by the contract, or by ADDRESS",
		ArgsUsage: "[ADDRESS]",
		Action: func(c *cli.Context) error {
			p, err := openPortal(c, cliLogger(c, os.Stderr))
			if err != nil {
				return err
			}
			defer p.Close()

			address := c.Args().First()
			if address == "" {
				address = p.contract.Address()
			}

			wei, err := p.contract.HeldBalance(c.Context, address)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{
					"address": address,
					"wei":     wei.String(),
					"ether":   ethereum.FormatEther(wei),
				})
			}
			fmt.Printf("%s ETH\n", ethereum.FormatEther(wei))
			return nil
		},
	}
}

func printWaves(w io.Writer, waves []wave.Wave, jsonOutput bool) error {
	if jsonOutput {
		if waves == nil {
			waves = []wave.Wave{}
		}
		data, err := json.MarshalIndent(waves, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal waves: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(waves) == 0 {
		fmt.Fprintln(w, "No waves found")
		return nil
	}
	for _, wv := range waves {
		if err := printWave(w, wv, false); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "%d waves\n", len(waves))
	return nil
}

func printWave(w io.Writer, wv wave.Wave, jsonOutput bool) error {
	if jsonOutput {
		return json.NewEncoder(w).Encode(wv)
	}
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Address: %s\n", wv.Address)
	fmt.Fprintf(w, "Time:    %s\n", wv.Timestamp.Format(timeFormat))
	fmt.Fprintf(w, "Message: %s\n", wv.Message)
	return nil
}
