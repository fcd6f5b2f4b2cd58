package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/lnbits/client"
)

// EventType names what happened to a payment.
type EventType string

const (
	EventInvoiceCreated EventType = "invoice.created"
	EventInvoiceSettled EventType = "invoice.settled"
	EventPaymentSent    EventType = "payment.sent"
	EventLNURLPaid      EventType = "lnurl.paid"
)

// PaymentEvent is published to the subject "lnbits.{type}.{payment_hash}" in JetStream.
type PaymentEvent struct {
	Type        EventType `json:"type"`
	PaymentHash string    `json:"payment_hash"`
	CheckingID  string    `json:"checking_id,omitempty"`

	// Set for created invoices
	PaymentRequest string `json:"payment_request,omitempty"`
	AmountSat      int64  `json:"amount_sat,omitempty"`
	Memo           string `json:"memo,omitempty"`

	// Set for settled invoices
	Preimage string `json:"preimage,omitempty"`

	// Set for LNURL payments
	SuccessAction *client.SuccessAction `json:"success_action,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the JetStream subject the event is published on.
func (e *PaymentEvent) Subject() string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, e.Type, e.PaymentHash)
}

// FromInvoice converts a created invoice to an event.
func FromInvoice(inv *client.Invoice, params client.CreateInvoiceParams) *PaymentEvent {
	return &PaymentEvent{
		Type:           EventInvoiceCreated,
		PaymentHash:    inv.PaymentHash,
		CheckingID:     inv.CheckingID,
		PaymentRequest: inv.PaymentRequest,
		AmountSat:      params.Amount,
		Memo:           params.Memo,
		PublishedAt:    time.Now().UTC(),
	}
}

// FromInvoiceStatus converts a paid invoice status to an event.
func FromInvoiceStatus(status *client.InvoiceStatus) *PaymentEvent {
	return &PaymentEvent{
		Type:        EventInvoiceSettled,
		PaymentHash: status.PaymentHash,
		Preimage:    status.Preimage,
		PublishedAt: time.Now().UTC(),
	}
}

// FromPayment converts a bolt11 payment result to an event.
func FromPayment(pay *client.Payment) *PaymentEvent {
	return &PaymentEvent{
		Type:        EventPaymentSent,
		PaymentHash: pay.PaymentHash,
		CheckingID:  pay.CheckingID,
		PublishedAt: time.Now().UTC(),
	}
}

// FromLNURLPayment converts an LNURL payment result to an event.
func FromLNURLPayment(pay *client.LNURLPayment) *PaymentEvent {
	return &PaymentEvent{
		Type:          EventLNURLPaid,
		PaymentHash:   pay.PaymentHash,
		CheckingID:    pay.CheckingID,
		SuccessAction: pay.SuccessAction,
		PublishedAt:   time.Now().UTC(),
	}
}
