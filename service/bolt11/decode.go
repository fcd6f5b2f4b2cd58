// Package bolt11 decodes lightning payment requests locally, so callers can
// inspect an invoice before handing it to the wallet for payment.
package bolt11

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnd/zpay32"
)

// Invoice is the decoded, display-friendly form of a bolt11 payment request.
type Invoice struct {
	Network string `json:"network"`
	// AmountMsat is nil for "any amount" invoices.
	AmountMsat      *int64        `json:"amount_msat,omitempty"`
	PaymentHash     string        `json:"payment_hash"`
	Description     string        `json:"description,omitempty"`
	DescriptionHash string        `json:"description_hash,omitempty"`
	Payee           string        `json:"payee"`
	CreatedAt       time.Time     `json:"created_at"`
	Expiry          time.Duration `json:"expiry"`
}

// AmountSat returns the amount rounded down to whole satoshis, or 0 for
// "any amount" invoices.
func (i *Invoice) AmountSat() btcutil.Amount {
	if i.AmountMsat == nil {
		return 0
	}
	return btcutil.Amount(*i.AmountMsat / 1000)
}

// ExpiresAt returns the time after which the invoice can no longer be paid.
func (i *Invoice) ExpiresAt() time.Time {
	return i.CreatedAt.Add(i.Expiry)
}

// Expired reports whether the invoice is expired at now.
func (i *Invoice) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt())
}

// Decode parses and signature-checks a bolt11 payment request. A leading
// "lightning:" URI scheme is accepted.
func Decode(paymentRequest string) (*Invoice, error) {
	pr := strings.ToLower(strings.TrimSpace(paymentRequest))
	pr = strings.TrimPrefix(pr, "lightning:")

	net, err := networkFor(pr)
	if err != nil {
		return nil, err
	}

	inv, err := zpay32.Decode(pr, net)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payment request: %w", err)
	}

	out := &Invoice{
		Network:   net.Name,
		CreatedAt: inv.Timestamp,
		Expiry:    inv.Expiry(),
	}
	if inv.MilliSat != nil {
		msat := int64(*inv.MilliSat)
		out.AmountMsat = &msat
	}
	if inv.PaymentHash != nil {
		out.PaymentHash = hex.EncodeToString(inv.PaymentHash[:])
	}
	if inv.Description != nil {
		out.Description = *inv.Description
	}
	if inv.DescriptionHash != nil {
		out.DescriptionHash = hex.EncodeToString(inv.DescriptionHash[:])
	}
	if inv.Destination != nil {
		out.Payee = hex.EncodeToString(inv.Destination.SerializeCompressed())
	}
	return out, nil
}

// networkFor picks chain parameters from the human-readable prefix.
// Longer prefixes are checked first since "lnbcrt" also starts with "lnbc".
func networkFor(pr string) (*chaincfg.Params, error) {
	switch {
	case strings.HasPrefix(pr, "lnbcrt"):
		return &chaincfg.RegressionNetParams, nil
	case strings.HasPrefix(pr, "lnbc"):
		return &chaincfg.MainNetParams, nil
	case strings.HasPrefix(pr, "lntb"):
		return &chaincfg.TestNet3Params, nil
	case strings.HasPrefix(pr, "lnsb"):
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unrecognized payment request prefix")
	}
}
