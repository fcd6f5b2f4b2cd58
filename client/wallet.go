package client

import (
	"context"
	"net/http"
	"net/url"
)

// Operation names, also used as metric and log labels.
const (
	OpWalletDetails = "wallet_details"
	OpCreateInvoice = "create_invoice"
	OpPayInvoice    = "pay_invoice"
	OpPayLNURL      = "pay_lnurl"
	OpCheckInvoice  = "check_invoice"
	OpScanLNURL     = "scan_lnurl"
)

// CreateInvoiceParams are the inputs to CreateInvoice.
type CreateInvoiceParams struct {
	// Amount in satoshis.
	Amount int64
	Memo   string
	Out    bool
	// Webhook is omitted from the request when empty.
	Webhook string
	// Expiry in seconds; omitted when nil so LNbits applies its own default.
	Expiry *int64
}

// DefaultCreateInvoiceParams returns the parameters CreateInvoice uses when
// called with nil.
func DefaultCreateInvoiceParams() CreateInvoiceParams {
	return CreateInvoiceParams{
		Amount: 0,
		Memo:   "memo",
		Out:    false,
	}
}

type createInvoiceRequest struct {
	Amount  int64  `json:"amount"`
	Memo    string `json:"memo"`
	Out     bool   `json:"out"`
	Webhook string `json:"webhook,omitempty"`
	Expiry  *int64 `json:"expiry,omitempty"`
}

// PayInvoiceParams are the inputs to PayInvoice.
type PayInvoiceParams struct {
	Bolt11 string
	// Out defaults to true when nil.
	Out *bool
}

// DefaultPayInvoiceParams returns the parameters PayInvoice uses when called
// with nil.
func DefaultPayInvoiceParams() PayInvoiceParams {
	out := true
	return PayInvoiceParams{Bolt11: "", Out: &out}
}

type payInvoiceRequest struct {
	Bolt11 string `json:"bolt11"`
	Out    bool   `json:"out"`
}

// PayLNURLParams are the inputs to PayLNURL. Callback, DescriptionHash and
// Description normally come from a prior ScanLNURL.
type PayLNURLParams struct {
	Callback        string `json:"callback"`
	DescriptionHash string `json:"description_hash"`
	// Amount in millisatoshis.
	Amount      int64  `json:"amount"`
	Comment     string `json:"comment"`
	Description string `json:"description"`
}

// WalletDetails returns the id, name and balance of the wallet. Admin key.
func (c *Client) WalletDetails(ctx context.Context) (*WalletDetails, error) {
	var w WalletDetails
	if err := c.do(ctx, OpWalletDetails, http.MethodGet, "/wallet", c.adminKey, nil, &w); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched wallet details", "wallet_id", w.ID, "balance_msat", w.Balance)
	return &w, nil
}

// CreateInvoice creates an incoming invoice. Invoice/read key.
// A nil params uses DefaultCreateInvoiceParams.
func (c *Client) CreateInvoice(ctx context.Context, params *CreateInvoiceParams) (*Invoice, error) {
	p := DefaultCreateInvoiceParams()
	if params != nil {
		p = *params
	}
	reqBody := createInvoiceRequest{
		Amount:  p.Amount,
		Memo:    p.Memo,
		Out:     p.Out,
		Webhook: p.Webhook,
		Expiry:  p.Expiry,
	}

	var inv Invoice
	if err := c.do(ctx, OpCreateInvoice, http.MethodPost, "/payments", c.invoiceReadKey, reqBody, &inv); err != nil {
		return nil, err
	}
	c.logger.Debug("invoice created", "payment_hash", inv.PaymentHash, "amount", p.Amount)
	return &inv, nil
}

// PayInvoice pays a bolt11 payment request. Admin key.
// A nil params uses DefaultPayInvoiceParams.
func (c *Client) PayInvoice(ctx context.Context, params *PayInvoiceParams) (*Payment, error) {
	p := DefaultPayInvoiceParams()
	if params != nil {
		p.Bolt11 = params.Bolt11
		if params.Out != nil {
			p.Out = params.Out
		}
	}
	reqBody := payInvoiceRequest{Bolt11: p.Bolt11, Out: *p.Out}

	var pay Payment
	if err := c.do(ctx, OpPayInvoice, http.MethodPost, "/payments", c.adminKey, reqBody, &pay); err != nil {
		return nil, err
	}
	c.logger.Debug("invoice paid", "payment_hash", pay.PaymentHash)
	return &pay, nil
}

// PayLNURL asks LNbits to request an invoice from an LNURL-pay callback and
// pay it. Admin key.
func (c *Client) PayLNURL(ctx context.Context, params PayLNURLParams) (*LNURLPayment, error) {
	var pay LNURLPayment
	if err := c.do(ctx, OpPayLNURL, http.MethodPost, "/payments/lnurl", c.adminKey, params, &pay); err != nil {
		return nil, err
	}
	c.logger.Debug("lnurl paid", "payment_hash", pay.PaymentHash, "amount_msat", params.Amount)
	return &pay, nil
}

// CheckInvoice returns the settlement status of a payment hash. Invoice/read key.
func (c *Client) CheckInvoice(ctx context.Context, paymentHash string) (*InvoiceStatus, error) {
	path := "/payments/" + url.PathEscape(paymentHash)

	var status InvoiceStatus
	if err := c.do(ctx, OpCheckInvoice, http.MethodGet, path, c.invoiceReadKey, nil, &status); err != nil {
		return nil, err
	}
	c.logger.Debug("checked invoice", "payment_hash", paymentHash, "paid", status.Paid)
	return &status, nil
}

// ScanLNURL resolves an LNURL string or lightning address (user@domain)
// through LNbits' lnurlscan endpoint. Invoice/read key.
func (c *Client) ScanLNURL(ctx context.Context, value string) (*LNURLMetadata, error) {
	path := "/lnurlscan/" + url.PathEscape(value)

	var meta LNURLMetadata
	if err := c.do(ctx, OpScanLNURL, http.MethodGet, path, c.invoiceReadKey, nil, &meta); err != nil {
		return nil, err
	}
	c.logger.Debug("scanned lnurl", "domain", meta.Domain, "tag", meta.Tag)
	return &meta, nil
}
