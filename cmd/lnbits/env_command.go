package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/lnbits/service/config"
)

// resolvedConfig is what `env` prints. Keys are masked.
type resolvedConfig struct {
	Endpoint       string `json:"endpoint"`
	AdminKey       string `json:"admin_key"`
	InvoiceReadKey string `json:"invoice_read_key"`
	Timeout        string `json:"timeout"`
	LogLevel       string `json:"log_level"`
	NATSURL        string `json:"nats_url,omitempty"`
	MetricsAddr    string `json:"metrics_addr,omitempty"`
}

func envCommand() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Check the LNBITS_* environment and show the resolved settings",
		Description: `Loads configuration from the environment only (flags are ignored),
validates it and prints the result with keys masked. Exits non-zero when
a required variable is missing or a value does not parse.`,
		Action: func(c *cli.Context) error {
			out, err := newPrinter(c.App.Writer, c.Bool("json"), c.String("jq"))
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			resolved := resolvedConfig{
				Endpoint:       cfg.Endpoint,
				AdminKey:       maskKey(cfg.AdminKey),
				InvoiceReadKey: maskKey(cfg.InvoiceReadKey),
				Timeout:        cfg.Timeout.String(),
				LogLevel:       cfg.LogLevel,
				NATSURL:        cfg.NATSURL,
				MetricsAddr:    cfg.MetricsAddr,
			}

			return out.print(resolved, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Configuration OK\n")
				fmt.Fprintf(w, "  Endpoint:     %s\n", resolved.Endpoint)
				fmt.Fprintf(w, "  Admin key:    %s\n", resolved.AdminKey)
				fmt.Fprintf(w, "  Invoice key:  %s\n", resolved.InvoiceReadKey)
				fmt.Fprintf(w, "  Timeout:      %s\n", resolved.Timeout)
				fmt.Fprintf(w, "  Log level:    %s\n", resolved.LogLevel)
				if resolved.NATSURL != "" {
					fmt.Fprintf(w, "  NATS:         %s\n", resolved.NATSURL)
				}
				if resolved.MetricsAddr != "" {
					fmt.Fprintf(w, "  Metrics:      %s\n", resolved.MetricsAddr)
				}
			})
		},
	}
}

// maskKey keeps the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
