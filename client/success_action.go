package client

import "encoding/json"

// SuccessActionKind identifies the LUD-09 success action variant.
type SuccessActionKind string

const (
	SuccessActionMessage SuccessActionKind = "message"
	SuccessActionURL     SuccessActionKind = "url"
	SuccessActionAES     SuccessActionKind = "aes"
	// SuccessActionUnknown is any tag this package does not model; see Raw.
	SuccessActionUnknown SuccessActionKind = "unknown"
)

// SuccessAction is what the LNURL service asks the payer to show once a
// payment succeeds. Only the fields of the matching Kind are set.
type SuccessAction struct {
	Kind SuccessActionKind
	// Tag is the tag as sent by the service, also for unknown kinds.
	Tag string

	// message
	Message string
	// url, aes
	Description string
	// url
	URL string
	// aes
	Ciphertext string
	IV         string

	// Raw is the undecoded payload.
	Raw json.RawMessage
}

type successActionWire struct {
	Tag         string `json:"tag"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Ciphertext  string `json:"ciphertext,omitempty"`
	IV          string `json:"iv,omitempty"`
}

// UnmarshalJSON never fails on a payload it cannot read: anything that is
// not a well-formed action object decodes as SuccessActionUnknown with Raw
// set, so a completed payment is still reported to the caller.
func (a *SuccessAction) UnmarshalJSON(data []byte) error {
	var w successActionWire
	if err := json.Unmarshal(data, &w); err != nil {
		*a = SuccessAction{
			Kind: SuccessActionUnknown,
			Raw:  append(json.RawMessage(nil), data...),
		}
		return nil
	}

	*a = SuccessAction{
		Tag: w.Tag,
		Raw: append(json.RawMessage(nil), data...),
	}
	switch SuccessActionKind(w.Tag) {
	case SuccessActionMessage:
		a.Kind = SuccessActionMessage
		a.Message = w.Message
	case SuccessActionURL:
		a.Kind = SuccessActionURL
		a.Description = w.Description
		a.URL = w.URL
	case SuccessActionAES:
		a.Kind = SuccessActionAES
		a.Description = w.Description
		a.Ciphertext = w.Ciphertext
		a.IV = w.IV
	default:
		a.Kind = SuccessActionUnknown
	}
	return nil
}

func (a SuccessAction) MarshalJSON() ([]byte, error) {
	if a.Kind == SuccessActionUnknown && len(a.Raw) > 0 {
		return a.Raw, nil
	}
	w := successActionWire{Tag: string(a.Kind)}
	switch a.Kind {
	case SuccessActionMessage:
		w.Message = a.Message
	case SuccessActionURL:
		w.Description = a.Description
		w.URL = a.URL
	case SuccessActionAES:
		w.Description = a.Description
		w.Ciphertext = a.Ciphertext
		w.IV = a.IV
	default:
		w.Tag = a.Tag
	}
	return json.Marshal(w)
}
