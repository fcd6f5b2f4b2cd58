package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/btcsuite/btcutil"
	"github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/lnbits/client"
	"github.com/brojonat/lnbits/service/bolt11"
	"github.com/brojonat/lnbits/service/metrics"
	lnnats "github.com/brojonat/lnbits/service/nats"
)

func walletCommand() *cli.Command {
	return &cli.Command{
		Name:    "wallet",
		Aliases: []string{"balance"},
		Usage:   "Show wallet name and balance",
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			wallet, err := rt.client.WalletDetails(c.Context)
			if err != nil {
				return fmt.Errorf("failed to get wallet details: %w", err)
			}

			return rt.out.print(wallet, func(w io.Writer) {
				fmt.Fprintf(w, "Wallet:   %s (%s)\n", wallet.Name, wallet.ID)
				fmt.Fprintf(w, "Balance:  %d sats (%s)\n", wallet.Balance/1000, msatToAmount(wallet.Balance))
			})
		}),
	}
}

func invoiceCommands() *cli.Command {
	return &cli.Command{
		Name:  "invoice",
		Usage: "Create and inspect incoming invoices",
		Subcommands: []*cli.Command{
			createInvoiceCommand(),
			checkInvoiceCommand(),
			awaitInvoiceCommand(),
		},
	}
}

func createInvoiceCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an invoice",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:    "amount",
				Aliases: []string{"a"},
				Usage:   "Amount in sats",
			},
			&cli.StringFlag{
				Name:    "memo",
				Aliases: []string{"m"},
				Usage:   "Invoice description",
				Value:   client.DefaultCreateInvoiceParams().Memo,
			},
			&cli.StringFlag{
				Name:  "webhook",
				Usage: "URL LNbits calls when the invoice is paid",
			},
			&cli.Int64Flag{
				Name:  "expiry",
				Usage: "Expiry in seconds (LNbits default when unset)",
			},
			&cli.StringFlag{
				Name:  "qr-file",
				Usage: "Also write the invoice as a PNG QR code to this path",
			},
		},
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			params := client.CreateInvoiceParams{
				Amount:  c.Int64("amount"),
				Memo:    c.String("memo"),
				Webhook: c.String("webhook"),
			}
			if c.IsSet("expiry") {
				expiry := c.Int64("expiry")
				params.Expiry = &expiry
			}

			inv, err := rt.client.CreateInvoice(c.Context, &params)
			if err != nil {
				return fmt.Errorf("failed to create invoice: %w", err)
			}
			rt.metrics.RecordInvoiceCreated(params.Amount)
			rt.publish(c.Context, lnnats.FromInvoice(inv, params))

			if path := c.String("qr-file"); path != "" {
				if err := writeInvoiceQR(path, inv.PaymentRequest); err != nil {
					return err
				}
			}

			return rt.out.print(inv, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Invoice created\n")
				fmt.Fprintf(w, "  Payment hash: %s\n", inv.PaymentHash)
				fmt.Fprintf(w, "  Amount:       %d sats\n", params.Amount)
				fmt.Fprintf(w, "\n%s\n", inv.PaymentRequest)
			})
		}),
	}
}

// writeInvoiceQR encodes a payment request as a lightning: URI QR code.
// Upper case keeps the code in QR alphanumeric mode, which is smaller.
func writeInvoiceQR(path, paymentRequest string) error {
	png, err := qrcode.Encode("lightning:"+strings.ToUpper(paymentRequest), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return nil
}

func checkInvoiceCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Show whether an invoice is paid",
		ArgsUsage: "PAYMENT_HASH",
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			if c.NArg() < 1 {
				return fmt.Errorf("payment hash is required")
			}

			status, err := rt.client.CheckInvoice(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to check invoice: %w", err)
			}

			return rt.out.print(status, func(w io.Writer) {
				printInvoiceStatus(w, status)
			})
		}),
	}
}

func awaitInvoiceCommand() *cli.Command {
	return &cli.Command{
		Name:      "await",
		Usage:     "Poll an invoice until it is paid",
		ArgsUsage: "PAYMENT_HASH",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Value:   2 * time.Second,
				Usage:   "Time between status checks",
			},
			&cli.DurationFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Value:   5 * time.Minute,
				Usage:   "Give up after this long",
			},
		},
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			if c.NArg() < 1 {
				return fmt.Errorf("payment hash is required")
			}
			interval := c.Duration("interval")
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("wait"))
			defer cancel()

			status, err := awaitPaid(ctx, rt, c.Args().Get(0), interval)
			if err != nil {
				return err
			}
			rt.publish(c.Context, lnnats.FromInvoiceStatus(status))

			return rt.out.print(status, func(w io.Writer) {
				printInvoiceStatus(w, status)
			})
		}),
	}
}

// awaitPaid polls CheckInvoice until the invoice is paid or ctx ends.
// A 404 stops immediately; other errors are logged and polling continues.
func awaitPaid(ctx context.Context, rt *runtime, paymentHash string, interval time.Duration) (*client.InvoiceStatus, error) {
	result := "error"
	defer metrics.Timer(time.Now(), func(d float64) {
		rt.metrics.RecordInvoiceAwait(result, d)
	})()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := rt.client.CheckInvoice(ctx, paymentHash)
		switch {
		case err == nil && status.Paid:
			result = "paid"
			return status, nil
		case client.IsNotFound(err):
			return nil, fmt.Errorf("failed to await invoice: %w", err)
		case err != nil && ctx.Err() == nil:
			rt.logger.Warn("invoice check failed, will retry", "payment_hash", paymentHash, "error", err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				result = "timeout"
				return nil, fmt.Errorf("invoice %s not paid before timeout", paymentHash)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func payCommand() *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "Pay a bolt11 invoice",
		ArgsUsage: "BOLT11",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "max-sats",
				Usage: "Refuse to pay invoices above this amount (0 = no limit)",
			},
			&cli.BoolFlag{
				Name:  "no-decode",
				Usage: "Skip local decoding and checks of the invoice",
			},
		},
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			if c.NArg() < 1 {
				return fmt.Errorf("bolt11 invoice is required")
			}
			pr := c.Args().Get(0)

			var decoded *bolt11.Invoice
			if !c.Bool("no-decode") {
				var err error
				decoded, err = bolt11.Decode(pr)
				if err != nil {
					return err
				}
				if err := checkPayable(decoded, c.Int64("max-sats"), time.Now()); err != nil {
					return err
				}
			}

			pay, err := rt.client.PayInvoice(c.Context, &client.PayInvoiceParams{Bolt11: pr})
			if err != nil {
				return fmt.Errorf("failed to pay invoice: %w", err)
			}
			rt.metrics.RecordPaymentSent("bolt11")
			rt.publish(c.Context, lnnats.FromPayment(pay))

			if decoded != nil && pay.PaymentHash != decoded.PaymentHash {
				rt.logger.Warn("payment hash differs from invoice",
					"invoice_hash", decoded.PaymentHash,
					"payment_hash", pay.PaymentHash,
				)
			}

			return rt.out.print(pay, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Payment sent\n")
				fmt.Fprintf(w, "  Payment hash: %s\n", pay.PaymentHash)
			})
		}),
	}
}

// checkPayable rejects expired invoices, "any amount" invoices (the pay
// endpoint has no amount field) and invoices above maxSats when maxSats > 0.
func checkPayable(inv *bolt11.Invoice, maxSats int64, now time.Time) error {
	if inv.Expired(now) {
		return fmt.Errorf("invoice expired at %s", inv.ExpiresAt().Format(time.RFC3339))
	}
	if inv.AmountMsat == nil {
		return fmt.Errorf("invoice has no amount")
	}
	if maxSats > 0 && int64(inv.AmountSat()) > maxSats {
		return fmt.Errorf("invoice amount %d sats exceeds --max-sats %d", int64(inv.AmountSat()), maxSats)
	}
	return nil
}

func lnurlCommands() *cli.Command {
	return &cli.Command{
		Name:  "lnurl",
		Usage: "Resolve and pay LNURLs and lightning addresses",
		Subcommands: []*cli.Command{
			scanLNURLCommand(),
			payLNURLCommand(),
		},
	}
}

func scanLNURLCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Show what an LNURL or lightning address resolves to",
		ArgsUsage: "LNURL_OR_ADDRESS",
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			if c.NArg() < 1 {
				return fmt.Errorf("lnurl or lightning address is required")
			}

			meta, err := rt.client.ScanLNURL(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to scan lnurl: %w", err)
			}

			return rt.out.print(meta, func(w io.Writer) {
				printLNURLMetadata(w, meta)
			})
		}),
	}
}

func payLNURLCommand() *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "Pay an LNURL-pay link or lightning address",
		ArgsUsage: "LNURL_OR_ADDRESS",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "amount",
				Aliases:  []string{"a"},
				Usage:    "Amount in sats",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "comment",
				Usage: "Comment for the recipient, if the service allows one",
			},
		},
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			if c.NArg() < 1 {
				return fmt.Errorf("lnurl or lightning address is required")
			}

			meta, err := rt.client.ScanLNURL(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("failed to scan lnurl: %w", err)
			}

			params, err := lnurlPayParams(meta, c.Int64("amount"), c.String("comment"))
			if err != nil {
				return err
			}

			pay, err := rt.client.PayLNURL(c.Context, params)
			if err != nil {
				return fmt.Errorf("failed to pay lnurl: %w", err)
			}
			rt.metrics.RecordPaymentSent("lnurl")
			rt.publish(c.Context, lnnats.FromLNURLPayment(pay))

			return rt.out.print(pay, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Paid %d sats to %s\n", c.Int64("amount"), meta.Domain)
				fmt.Fprintf(w, "  Payment hash: %s\n", pay.PaymentHash)
				printSuccessAction(w, pay.SuccessAction)
			})
		}),
	}
}

// lnurlPayParams checks the amount and comment against what the service
// advertised and builds the PayLNURL request.
func lnurlPayParams(meta *client.LNURLMetadata, amountSats int64, comment string) (client.PayLNURLParams, error) {
	if meta.Tag != "payRequest" {
		return client.PayLNURLParams{}, fmt.Errorf("lnurl is a %q, not a payRequest", meta.Tag)
	}

	if amountSats <= 0 || amountSats > math.MaxInt64/1000 {
		return client.PayLNURLParams{}, fmt.Errorf("amount %d sats is not a valid payment amount", amountSats)
	}

	amountMsat := amountSats * 1000
	if amountMsat < meta.MinSendable || (meta.MaxSendable > 0 && amountMsat > meta.MaxSendable) {
		return client.PayLNURLParams{}, fmt.Errorf("amount %d sats outside allowed range %d-%d sats",
			amountSats, meta.MinSendable/1000, meta.MaxSendable/1000)
	}
	if n := utf8.RuneCountInString(comment); n > meta.CommentAllowed {
		return client.PayLNURLParams{}, fmt.Errorf("comment is %d characters, service allows %d",
			n, meta.CommentAllowed)
	}

	return client.PayLNURLParams{
		Callback:        meta.Callback,
		DescriptionHash: meta.DescriptionHash,
		Amount:          amountMsat,
		Comment:         comment,
		Description:     meta.Description,
	}, nil
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode a bolt11 invoice locally",
		ArgsUsage: "BOLT11",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("bolt11 invoice is required")
			}
			out, err := newPrinter(c.App.Writer, c.Bool("json"), c.String("jq"))
			if err != nil {
				return err
			}

			inv, err := bolt11.Decode(c.Args().Get(0))
			if err != nil {
				return err
			}

			return out.print(inv, func(w io.Writer) {
				fmt.Fprintf(w, "Network:      %s\n", inv.Network)
				if inv.AmountMsat != nil {
					fmt.Fprintf(w, "Amount:       %d sats (%s)\n", int64(inv.AmountSat()), inv.AmountSat())
				} else {
					fmt.Fprintf(w, "Amount:       any\n")
				}
				fmt.Fprintf(w, "Payment hash: %s\n", inv.PaymentHash)
				if inv.Description != "" {
					fmt.Fprintf(w, "Description:  %s\n", inv.Description)
				}
				if inv.DescriptionHash != "" {
					fmt.Fprintf(w, "Desc. hash:   %s\n", inv.DescriptionHash)
				}
				fmt.Fprintf(w, "Payee:        %s\n", inv.Payee)
				fmt.Fprintf(w, "Created:      %s\n", inv.CreatedAt.UTC().Format(time.RFC3339))
				fmt.Fprintf(w, "Expires:      %s\n", inv.ExpiresAt().UTC().Format(time.RFC3339))
			})
		},
	}
}

func printInvoiceStatus(w io.Writer, status *client.InvoiceStatus) {
	state := "unpaid"
	if status.Paid {
		state = "paid"
	}
	fmt.Fprintf(w, "Payment hash: %s\n", status.PaymentHash)
	fmt.Fprintf(w, "Status:       %s\n", state)
	if status.Preimage != "" {
		fmt.Fprintf(w, "Preimage:     %s\n", status.Preimage)
	}
}

func printLNURLMetadata(w io.Writer, meta *client.LNURLMetadata) {
	fmt.Fprintf(w, "Domain:       %s\n", meta.Domain)
	fmt.Fprintf(w, "Kind:         %s (%s)\n", meta.Kind, meta.Tag)
	if meta.TargetUser != "" {
		fmt.Fprintf(w, "User:         %s\n", meta.TargetUser)
	}
	if meta.Description != "" {
		fmt.Fprintf(w, "Description:  %s\n", meta.Description)
	}
	if meta.Fixed {
		fmt.Fprintf(w, "Amount:       %d sats (fixed)\n", meta.MinSendable/1000)
	} else {
		fmt.Fprintf(w, "Amount:       %d-%d sats\n", meta.MinSendable/1000, meta.MaxSendable/1000)
	}
	if meta.CommentAllowed > 0 {
		fmt.Fprintf(w, "Comment:      up to %d characters\n", meta.CommentAllowed)
	}
	if meta.AllowsNostr {
		fmt.Fprintf(w, "Nostr zaps:   %s\n", meta.NostrPubkey)
	}
}

func printSuccessAction(w io.Writer, a *client.SuccessAction) {
	if a == nil {
		return
	}
	switch a.Kind {
	case client.SuccessActionMessage:
		fmt.Fprintf(w, "  Message:      %s\n", a.Message)
	case client.SuccessActionURL:
		fmt.Fprintf(w, "  %s: %s\n", a.Description, a.URL)
	case client.SuccessActionAES:
		fmt.Fprintf(w, "  %s (encrypted, needs the payment preimage)\n", a.Description)
	default:
		fmt.Fprintf(w, "  Success action (%s): %s\n", a.Tag, string(a.Raw))
	}
}

func msatToAmount(msat int64) btcutil.Amount {
	return btcutil.Amount(msat / 1000)
}
