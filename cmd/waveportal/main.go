package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/waveportal/service/config"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "waveportal",
		Usage: "Wave portal contract client",
		Description: `A command-line client for the wave portal contract.

Read and send waves directly against an Ethereum node, open the terminal UI,
or talk to a running waveportal server over HTTP.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Contract commands (Ethereum RPC)
			wavesCommands(),
			// Terminal UI
			uiCommand(),
			// Client commands (HTTP API)
			clientCommands(),
			// NATS wave streaming commands
			{
				Name:  "nats",
				Usage: "NATS wave streaming commands",
				Subcommands: []*cli.Command{
					subscribeCommand(),
					inspectStreamCommand(),
				},
			},
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Ethereum JSON-RPC URL (ws:// or wss:// for watching)",
				EnvVars: []string{"ETH_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "contract",
				Usage:   "Wave portal contract address",
				EnvVars: []string{"CONTRACT_ADDRESS"},
				Value:   config.DefaultContractAddress,
			},
			&cli.StringFlag{
				Name:    "abi",
				Usage:   "Path to the contract artifact or ABI JSON (default: embedded)",
				EnvVars: []string{"CONTRACT_ABI_PATH"},
			},
			&cli.Uint64Flag{
				Name:    "gas-limit",
				Usage:   "Gas limit for wave transactions",
				EnvVars: []string{"WAVE_GAS_LIMIT"},
				Value:   config.DefaultGasLimit,
			},
			&cli.StringFlag{
				Name:    "keystore",
				Usage:   "Keystore directory holding the wallet account",
				EnvVars: []string{"KEYSTORE_DIR"},
			},
			&cli.StringFlag{
				Name:    "passphrase",
				Usage:   "Keystore passphrase (prompted for when needed if unset)",
				EnvVars: []string{"WALLET_PASSPHRASE"},
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Hex-encoded wallet private key",
				EnvVars: []string{"WALLET_PRIVATE_KEY"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Server URL for HTTP commands",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
