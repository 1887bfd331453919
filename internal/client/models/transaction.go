package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TypeDeposit  TransactionType = "deposit"
	TypeWithdraw TransactionType = "withdraw"
	TypeTransfer TransactionType = "transfer"
)

// Coordinates is a best-effort device location attached to a transaction.
// Absence is permitted; the server decides how to weigh a missing location.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ValidationError reports a locally rejected request. It never reaches the
// network and is always immediately actionable by the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrAlreadySubmitted is returned when a request object is submitted twice.
// Re-submission of the same logical transaction requires a new request.
var ErrAlreadySubmitted = errors.New("transaction request already submitted")

// TransactionRequest describes a money-movement request. Amounts are in
// minor units (cents). A request object is one-shot: the first submission
// stamps an idempotency key and any further submission fails locally.
type TransactionRequest struct {
	Amount              int64
	Type                TransactionType
	CounterpartyAccount string

	// Filled in by the orchestrator before sending.
	Location          *Coordinates
	DeviceFingerprint string

	idempotencyKey string
}

// Validate checks the request-shape invariants: positive amount, known type,
// and a counterparty account exactly when the type is transfer.
func (r *TransactionRequest) Validate() error {
	if r.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	switch r.Type {
	case TypeDeposit, TypeWithdraw, TypeTransfer:
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown transaction type %q", r.Type)}
	}
	if r.Type == TypeTransfer && r.CounterpartyAccount == "" {
		return &ValidationError{Field: "counterparty_account", Reason: "required for transfers"}
	}
	if r.Type != TypeTransfer && r.CounterpartyAccount != "" {
		return &ValidationError{Field: "counterparty_account", Reason: "only allowed for transfers"}
	}
	return nil
}

// BeginSubmit stamps the request with a fresh idempotency key. It fails with
// ErrAlreadySubmitted if the request was submitted before, making every retry
// of the same logical transaction require an explicit new request object.
func (r *TransactionRequest) BeginSubmit() (string, error) {
	if r.idempotencyKey != "" {
		return "", ErrAlreadySubmitted
	}
	r.idempotencyKey = uuid.NewString()
	return r.idempotencyKey, nil
}

// IdempotencyKey returns the key stamped by BeginSubmit, or "" before it.
func (r *TransactionRequest) IdempotencyKey() string {
	return r.idempotencyKey
}

// Verdict is the server's risk decision for a submitted transaction, decoded
// exactly once at the network boundary. Exactly one of the three concrete
// types is produced per submission.
type Verdict interface {
	verdict()
}

// Completed means the transaction went through; no further action.
type Completed struct {
	TransactionID string
	RiskScore     int
}

// PendingReview means the transaction awaits asynchronous review server-side.
// Terminal from the client's perspective.
type PendingReview struct {
	TransactionID string
	RiskScore     int
}

// RequiresOTP means the transaction is held until a one-time passcode is
// verified. DistanceViolation marks the verification as mandatory rather
// than precautionary; the mechanics are identical either way.
type RequiresOTP struct {
	TransactionID     string
	DistanceViolation bool
}

func (Completed) verdict()     {}
func (PendingReview) verdict() {}
func (RequiresOTP) verdict()   {}

// TransactionResult is the finalized transaction returned after a successful
// OTP verification.
type TransactionResult struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	RiskScore     int    `json:"risk_score"`
	Status        string `json:"status"`
}

// Transaction is a history record as listed by the server.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    int64           `json:"amount"`
	Status    string          `json:"status"`
	RiskScore int             `json:"risk_score"`
	CreatedAt time.Time       `json:"created_at"`
}

// FraudAlert is a client-visible alert raised against one of the client's
// own transactions.
type FraudAlert struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Level         string    `json:"level"`
	RiskScore     int       `json:"risk_score"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
