package main

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/waveui"
)

func uiCommand() *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Open the wave portal terminal UI",
		Description: `Show the wave portal in the terminal.

Press c to connect the wallet. With a keystore and no passphrase configured
you are asked for the passphrase at that point. Once connected, type a
message and press ctrl+s to wave. New waves appear as the contract emits
them. Logs are shown on the status line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "fetch-on-connect",
				Usage:   "Fetch all waves right after connecting the wallet",
				EnvVars: []string{"FETCH_ON_CONNECT"},
			},
		},
		Action: func(c *cli.Context) error {
			// Log records go to the status line; anything written to
			// stderr would tear the screen.
			handler := waveui.NewLogHandler(parseLevel(c.String("log-level")))
			logger := slog.New(handler)

			p, err := openPortal(c, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			var program *tea.Program
			prompt := func(ctx context.Context, account string) (string, error) {
				if err := program.ReleaseTerminal(); err != nil {
					return "", err
				}
				defer program.RestoreTerminal()
				return terminalPrompt(ctx, account)
			}

			provider, err := p.walletProvider(prompt)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			alerter := waveui.NewAlerter()
			controller := feed.NewController(provider, p.contract, alerter, feed.Options{
				GasLimit:       p.cfg.GasLimit,
				FetchOnConnect: c.Bool("fetch-on-connect"),
			}, nil, logger)

			program = tea.NewProgram(
				waveui.NewModel(ctx, controller, alerter),
				tea.WithAltScreen(),
				tea.WithContext(ctx),
			)
			handler.SetSender(program)

			done := make(chan struct{})
			go func() {
				defer close(done)
				controller.Run(ctx)
			}()

			_, err = program.Run()
			cancel()
			<-done
			return err
		},
	}
}
