package client

import (
	"encoding/json"
	"fmt"
)

// WalletDetails is a snapshot of the wallet behind the configured keys.
type WalletDetails struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Balance is in millisatoshis.
	Balance int64 `json:"balance"`
}

// Invoice is returned by CreateInvoice.
type Invoice struct {
	CheckingID     string  `json:"checking_id"`
	LNURLResponse  *string `json:"lnurl_response,omitempty"`
	PaymentHash    string  `json:"payment_hash"`
	PaymentRequest string  `json:"payment_request"`
}

// Payment is returned by PayInvoice.
type Payment struct {
	PaymentHash string `json:"payment_hash"`
	CheckingID  string `json:"checking_id,omitempty"`
}

// InvoiceStatus is returned by CheckInvoice. Only PaymentHash and Paid are
// interpreted here; everything else LNbits reports is kept in Details.
type InvoiceStatus struct {
	PaymentHash string          `json:"payment_hash"`
	Paid        bool            `json:"paid"`
	Preimage    string          `json:"preimage,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// UnmarshalJSON falls back to details.payment_hash, which is where newer
// LNbits versions report it.
func (s *InvoiceStatus) UnmarshalJSON(data []byte) error {
	type alias InvoiceStatus
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.PaymentHash == "" && len(a.Details) > 0 {
		var d struct {
			PaymentHash string `json:"payment_hash"`
		}
		if err := json.Unmarshal(a.Details, &d); err == nil {
			a.PaymentHash = d.PaymentHash
		}
	}
	*s = InvoiceStatus(a)
	return nil
}

// MetadataEntry is one [type, content] pair of an LNURL-pay metadata array,
// e.g. ["text/plain", "coffee"].
type MetadataEntry struct {
	Key   string
	Value string
}

// Metadata is the ordered LNURL-pay metadata list.
type Metadata []MetadataEntry

// Text returns the value of the first entry with the given key.
func (m Metadata) Text(key string) (string, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// UnmarshalJSON accepts either a JSON array of pairs or the LUD-06 form,
// a string holding that array.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		if encoded == "" {
			*m = nil
			return nil
		}
		data = []byte(encoded)
	}

	var raw [][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid lnurl metadata: %w", err)
	}
	out := make(Metadata, 0, len(raw))
	for i, pair := range raw {
		if len(pair) < 2 {
			return fmt.Errorf("invalid lnurl metadata: entry %d has %d elements", i, len(pair))
		}
		out = append(out, MetadataEntry{Key: pair[0], Value: pair[1]})
	}
	*m = out
	return nil
}

// MarshalJSON encodes the entries back as an array of pairs.
func (m Metadata) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, len(m))
	for i, e := range m {
		pairs[i] = [2]string{e.Key, e.Value}
	}
	return json.Marshal(pairs)
}

// LNURLMetadata is LNbits' resolved view of an LNURL or lightning address.
type LNURLMetadata struct {
	Domain          string   `json:"domain"`
	Callback        string   `json:"callback"`
	MaxSendable     int64    `json:"maxSendable"`
	MinSendable     int64    `json:"minSendable"`
	Metadata        Metadata `json:"metadata"`
	CommentAllowed  int      `json:"commentAllowed"`
	Tag             string   `json:"tag"`
	AllowsNostr     bool     `json:"allowsNostr"`
	NostrPubkey     string   `json:"nostrPubkey,omitempty"`
	Kind            string   `json:"kind"`
	Fixed           bool     `json:"fixed"`
	DescriptionHash string   `json:"description_hash"`
	Description     string   `json:"description"`
	TargetUser      string   `json:"targetUser"`
}

// LNURLPayment is returned by PayLNURL.
type LNURLPayment struct {
	SuccessAction *SuccessAction `json:"success_action"`
	PaymentHash   string         `json:"payment_hash"`
	CheckingID    string         `json:"checking_id"`
}
