package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp decodes backend datetimes with or without a zone offset.
// Naive values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// TaskStatus is the task lifecycle state.
type TaskStatus string

const (
	TaskOpen            TaskStatus = "open"
	TaskAssigned        TaskStatus = "assigned"
	TaskInProgress      TaskStatus = "in_progress"
	TaskCompleted       TaskStatus = "completed"
	TaskCancelled       TaskStatus = "cancelled"
	TaskDisputed        TaskStatus = "disputed"
	TaskClientConfirmed TaskStatus = "client_confirmed"
)

// Task is a job posted by a client.
type Task struct {
	ID               string     `json:"id"`
	ClientID         string     `json:"client_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Category         string     `json:"category,omitempty"`
	Location         string     `json:"location,omitempty"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
	BudgetMin        *int64     `json:"budget_min,omitempty"`
	BudgetMax        *int64     `json:"budget_max,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	Status           TaskStatus `json:"status"`
	AssignedOfferID  string     `json:"assigned_offer_id,omitempty"`
	AssignedTaskerID string     `json:"assigned_tasker_id,omitempty"`
	CreatedAt        Timestamp  `json:"created_at"`
	DueDate          *Timestamp `json:"due_date,omitempty"`
}

// OfferStatus is the offer lifecycle state.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferWithdrawn OfferStatus = "withdrawn"
)

// Offer is a tasker's bid on a task.
type Offer struct {
	ID          string      `json:"id"`
	TaskID      string      `json:"task_id"`
	TaskerID    string      `json:"tasker_id"`
	AmountCents int64       `json:"amount_cents"`
	Currency    string      `json:"currency"`
	Message     string      `json:"message,omitempty"`
	Status      OfferStatus `json:"status"`
	CreatedAt   Timestamp   `json:"created_at"`
	UpdatedAt   *Timestamp  `json:"updated_at,omitempty"`
}

// Message is a chat message on a task thread.
type Message struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  Timestamp `json:"created_at"`
}

// Notification is an in-app notification.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Data      any       `json:"data,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt Timestamp `json:"created_at"`
}

// Payment is an escrowed task payment.
type Payment struct {
	ID       string `json:"id"`
	TaskID   string `json:"task_id"`
	OfferID  string `json:"offer_id"`
	ClientID string `json:"client_id"`
	TaskerID string `json:"tasker_id"`
	WalletID string `json:"wallet_id"`
	Status   string `json:"status"`
	// The backend serializes the amount under either name.
	Amount      int64     `json:"amount,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Currency    string    `json:"currency"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Cents returns the payment amount in minor units.
func (p Payment) Cents() int64 {
	if p.AmountCents != 0 {
		return p.AmountCents
	}
	return p.Amount
}

// Wallet holds a user's balances in minor units.
type Wallet struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	AvailableBalance int64  `json:"available_balance"`
	EscrowBalance    int64  `json:"escrow_balance"`
	Currency         string `json:"currency"`
}

// Transaction is a wallet ledger entry.
type Transaction struct {
	ID        string         `json:"id"`
	WalletID  string         `json:"wallet_id"`
	Type      string         `json:"type"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Status    string         `json:"status"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt Timestamp      `json:"created_at"`
}

// PayoutResult is the payout-request acknowledgement.
type PayoutResult struct {
	OK           bool   `json:"ok"`
	PayoutStatus string `json:"payout_status"`
	PayoutID     string `json:"payout_id"`
}

// Dispute is a complaint raised on a task.
type Dispute struct {
	ID            string    `json:"id"`
	TaskID        string    `json:"task_id"`
	AgainstUserID string    `json:"against_user_id"`
	RaisedByID    string    `json:"raised_by_id"`
	Reason        string    `json:"reason"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     Timestamp `json:"created_at"`
}
