package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/lnbits/client"
	"github.com/brojonat/lnbits/service/config"
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
		Name:  "lnbits",
		Usage: "LNbits wallet CLI",
		Description: `A command-line tool for an LNbits wallet.

Check the balance, create and watch invoices, pay bolt11 invoices and
LNURL / lightning addresses. Keys are read from flags or the environment.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			walletCommand(),
			invoiceCommands(),
			payCommand(),
			lnurlCommands(),
			decodeCommand(),
			envCommand(),
			versionCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "LNbits base URL",
				EnvVars: []string{"LNBITS_ENDPOINT"},
				Value:   client.DefaultEndpoint,
			},
			&cli.StringFlag{
				Name:    "admin-key",
				Usage:   "Wallet admin key (spend and balance)",
				EnvVars: []string{"LNBITS_ADMIN_KEY"},
			},
			&cli.StringFlag{
				Name:    "invoice-key",
				Usage:   "Wallet invoice/read key",
				EnvVars: []string{"LNBITS_INVOICE_READ_KEY"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Per-request HTTP timeout",
				EnvVars: []string{"LNBITS_TIMEOUT"},
				Value:   30 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   config.DefaultLogLevel,
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "Publish payment events to this NATS server",
				EnvVars: []string{"NATS_URL"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address while the command runs",
				EnvVars: []string{"METRICS_ADDR"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to the JSON output (implies --json)",
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			fmt.Fprintf(w, "lnbits CLI\n")
			fmt.Fprintf(w, "  Version: %s\n", version)
			fmt.Fprintf(w, "  Commit:  %s\n", commit)
			fmt.Fprintf(w, "  Built:   %s\n", date)
			return nil
		},
	}
}
