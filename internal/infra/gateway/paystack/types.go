package paystack

import (
	"encoding/json"
	"strings"
)

// Paystack transaction statuses
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusAbandoned  = "abandoned"
	StatusReversed   = "reversed"
	StatusOngoing    = "ongoing"
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusQueued     = "queued"
)

// envelope is the wrapper every Paystack response uses
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeRequest is the body of POST /transaction/initialize.
// Amount is in the currency's minor unit (kobo for NGN).
type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	Currency    string            `json:"currency,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InitializeData is returned by POST /transaction/initialize
type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyData is returned by GET /transaction/verify/:reference
type VerifyData struct {
	ID        int64    `json:"id"`
	Status    string   `json:"status"`
	Reference string   `json:"reference"`
	Amount    int64    `json:"amount"`
	Currency  string   `json:"currency"`
	PaidAt    string   `json:"paid_at"`
	Metadata  Metadata `json:"metadata"`
}

// Metadata is the object attached at initialization. Paystack echoes an
// empty string when none was set, so decoding tolerates both shapes.
type Metadata map[string]string

// UnmarshalJSON accepts an object, an empty string or null
func (m *Metadata) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" || s == `""` {
		*m = nil
		return nil
	}

	raw := map[string]interface{}{}
	if err := json.Unmarshal(b, &raw); err != nil {
		// Anything else is provider noise; ignore it
		*m = nil
		return nil
	}

	out := make(Metadata, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			out[k] = str
		}
	}
	*m = out
	return nil
}

// ResolveData is returned by GET /bank/resolve
type ResolveData struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankID        int64  `json:"bank_id"`
}
