package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/waveportal/client"
	natspkg "github.com/brojonat/waveportal/service/nats"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with a waveportal server",
		Subcommands: []*cli.Command{
			clientListCommand(),
			clientSendCommand(),
			clientConnectCommand(),
			clientRefreshCommand(),
			clientStreamCommand(),
		},
	}
}

// newHTTPClient creates an API client for the server named by the global
// server-url flag. Only errors are logged.
func newHTTPClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), &http.Client{Timeout: 30 * time.Second}, logger)
}

func clientListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the waves held by the server",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "jq",
				Usage: "jq expression a wave must satisfy (repeatable, evaluated by the server)",
			},
			&cli.BoolFlag{
				Name:  "display",
				Usage: "Most recent first, as the page shows them",
			},
		},
		Action: func(c *cli.Context) error {
			opts := client.ListOptions{
				Order:   client.OrderCanonical,
				Filters: c.StringSlice("jq"),
			}
			if c.Bool("display") {
				opts.Order = client.OrderDisplay
			}

			portal, err := newHTTPClient(c).List(c.Context, opts)
			if err != nil {
				return fmt.Errorf("failed to list waves: %w", err)
			}

			if c.Bool("json") {
				return printPortalJSON(os.Stdout, portal)
			}
			printPortalHeader(os.Stdout, portal)
			return printWaves(os.Stdout, portal.Waves, false)
		},
	}
}

func clientSendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Ask the server to send a wave (the server's draft if MESSAGE is omitted)",
		ArgsUsage: "[MESSAGE]",
		Action: func(c *cli.Context) error {
			message := c.Args().First()
			if err := newHTTPClient(c).Submit(c.Context, message); err != nil {
				return fmt.Errorf("failed to send wave: %w", err)
			}
			if c.Bool("json") {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "submitted"})
			}
			fmt.Println("✓ Wave submitted; it will appear once mined")
			return nil
		},
	}
}

func clientConnectCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Ask the server to connect its wallet",
		Action: func(c *cli.Context) error {
			portal, err := newHTTPClient(c).Connect(c.Context)
			if err != nil {
				return fmt.Errorf("failed to connect wallet: %w", err)
			}
			if c.Bool("json") {
				return printPortalJSON(os.Stdout, portal)
			}
			printPortalHeader(os.Stdout, portal)
			return nil
		},
	}
}

func clientRefreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Ask the server to refetch every wave from the contract",
		Action: func(c *cli.Context) error {
			portal, err := newHTTPClient(c).Refresh(c.Context)
			if err != nil {
				return fmt.Errorf("failed to refresh waves: %w", err)
			}
			if c.Bool("json") {
				return printPortalJSON(os.Stdout, portal)
			}
			printPortalHeader(os.Stdout, portal)
			return nil
		},
	}
}

func clientStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Stream new waves from the server via SSE",
		Action: func(c *cli.Context) error {
			jsonOutput := c.Bool("json")

			// Create context that cancels on interrupt
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Streaming waves from %s... (Ctrl+C to stop)\n\n", c.String("server-url"))
			}

			err := newHTTPClient(c).StreamWaves(ctx, func(event *natspkg.WaveEvent) error {
				return printWave(os.Stdout, event.ToWave(), jsonOutput)
			})
			if err != nil {
				return err
			}
			if !jsonOutput && ctx.Err() != nil {
				fmt.Fprintf(os.Stderr, "\nDisconnected\n")
			}
			return nil
		},
	}
}

func printPortalHeader(w io.Writer, portal *client.Portal) {
	if portal.Connected {
		fmt.Fprintf(w, "Wallet:     %s\n", portal.Account)
	} else {
		fmt.Fprintf(w, "Wallet:     not connected\n")
	}
	fmt.Fprintf(w, "Subscribed: %t\n", portal.Subscribed)
	fmt.Fprintf(w, "Waves:      %d\n", portal.Count)
	if portal.Draft != "" {
		fmt.Fprintf(w, "Draft:      %s\n", portal.Draft)
	}
}

func printPortalJSON(w io.Writer, portal *client.Portal) error {
	data, err := json.MarshalIndent(portal, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

