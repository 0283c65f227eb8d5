package handler

import (
	"encoding/json"
	"time"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/internal/platform/position"
	"github.com/kislikjeka/agrovest/internal/platform/user"
	"github.com/kislikjeka/agrovest/pkg/money"
)

// AmountInput accepts an amount as a JSON string or number and keeps its
// literal text, so money.Parse sees exactly what the client sent.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	if string(data) == "null" {
		*a = ""
		return nil
	}
	*a = AmountInput(data)
	return nil
}

type credentials struct {
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login
type SessionResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func toUserResponse(u *user.User) *UserResponse {
	return &UserResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
	}
}

// EntryResponse is a ledger entry as shown to clients
type EntryResponse struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Kind        string            `json:"kind"`
	KindLabel   string            `json:"kind_label"`
	Status      string            `json:"status"`
	Amount      string            `json:"amount"`
	Reference   *string           `json:"reference,omitempty"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// OfferingResponse is an offering as shown to clients
type OfferingResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	ImageURL       string `json:"image_url"`
	UnitPrice      string `json:"unit_price"`
	YieldRate      string `json:"yield_rate"`
	TermMonths     int    `json:"term_months"`
	TotalUnits     int    `json:"total_units"`
	RemainingUnits int    `json:"remaining_units"`
	Investors      int    `json:"investors"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// PositionResponse is a position as shown to clients
type PositionResponse struct {
	ID              string  `json:"id"`
	OfferingID      string  `json:"offering_id"`
	Units           int     `json:"units"`
	CommittedAmount string  `json:"committed_amount"`
	YieldRate       string  `json:"yield_rate"`
	ExpectedPayout  string  `json:"expected_payout"`
	MaturityDate    string  `json:"maturity_date"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	CompletedAt     *string `json:"completed_at,omitempty"`
}

func toEntryResponse(e *ledger.Entry) *EntryResponse {
	if e == nil {
		return nil
	}
	return &EntryResponse{
		ID:          e.ID.String(),
		UserID:      e.UserID.String(),
		Kind:        string(e.Kind),
		KindLabel:   e.Kind.Label(),
		Status:      string(e.Status),
		Amount:      money.Format(e.Amount),
		Reference:   e.Reference,
		Description: e.Description,
		Metadata:    e.Metadata,
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
}

func toEntryResponses(entries []*ledger.Entry) []*EntryResponse {
	out := make([]*EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toOfferingResponse(o *offering.Offering) *OfferingResponse {
	if o == nil {
		return nil
	}
	return &OfferingResponse{
		ID:             o.ID.String(),
		Title:          o.Title,
		Description:    o.Description,
		Location:       o.Location,
		ImageURL:       o.ImageURL,
		UnitPrice:      money.Format(o.UnitPrice),
		YieldRate:      o.YieldRate.String(),
		TermMonths:     o.TermMonths,
		TotalUnits:     o.TotalUnits,
		RemainingUnits: o.RemainingUnits,
		Investors:      o.Investors,
		Status:         string(o.Status),
		CreatedAt:      formatTime(o.CreatedAt),
	}
}

func toPositionResponse(p *position.Position) *PositionResponse {
	if p == nil {
		return nil
	}
	resp := &PositionResponse{
		ID:              p.ID.String(),
		OfferingID:      p.OfferingID.String(),
		Units:           p.Units,
		CommittedAmount: money.Format(p.CommittedAmount),
		YieldRate:       p.YieldRate.String(),
		ExpectedPayout:  money.Format(p.ExpectedPayout),
		MaturityDate:    formatTime(p.MaturityDate),
		Status:          string(p.Status),
		CreatedAt:       formatTime(p.CreatedAt),
	}
	if p.CompletedAt != nil {
		s := formatTime(*p.CompletedAt)
		resp.CompletedAt = &s
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
