package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/safenetai/safebank-client/internal/client/models"
)

// TokenSource supplies the current bearer header and repairs an expired
// access token. Only the session manager mutates credential state; this
// client only reads it.
type TokenSource interface {
	// AuthHeader returns the formatted bearer header value, or "" when
	// unauthenticated.
	AuthHeader() string

	// Refresh obtains a new access token using the stored refresh token.
	// A failed refresh logs the session out before returning.
	Refresh(ctx context.Context) error
}

// Client is the authed server API consumed by the transaction orchestrator
// and the OTP challenge.
type Client interface {
	SubmitTransaction(ctx context.Context, req *models.TransactionRequest) (models.Verdict, error)
	VerifyTransactionOTP(ctx context.Context, transactionID, code string) (*models.TransactionResult, error)
	ResendTransactionOTP(ctx context.Context, transactionID string) error
	Profile(ctx context.Context) (*models.User, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	ListAlerts(ctx context.Context) ([]models.FraudAlert, error)
}

// HTTPClient implements Client on top of Transport. Every call attaches the
// current bearer header; a 401 triggers exactly one refresh and one replay.
// A second 401 propagates, which guarantees termination even against a
// server that always rejects.
type HTTPClient struct {
	transport *Transport
	tokens    TokenSource
}

func NewHTTPClient(transport *Transport, tokens TokenSource) *HTTPClient {
	return &HTTPClient{transport: transport, tokens: tokens}
}

func (c *HTTPClient) doAuthed(ctx context.Context, req request, out any) error {
	req.auth = c.tokens.AuthHeader()

	err := c.transport.do(ctx, req, out)
	if err == nil || !errors.Is(err, ErrUnauthorized) {
		return err
	}

	if refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
		// Propagate the original authorization error; the logout already
		// performed by Refresh is sufficient signal for the UI layer.
		return err
	}

	req.auth = c.tokens.AuthHeader()
	return c.transport.do(ctx, req, out)
}

type transactionPayload struct {
	Amount              int64               `json:"amount"`
	Type                string              `json:"type"`
	CounterpartyAccount string              `json:"counterparty_account,omitempty"`
	CurrentLocation     *models.Coordinates `json:"current_location,omitempty"`
	DeviceFingerprint   string              `json:"device_fingerprint"`
}

type verdictResponse struct {
	Status            string `json:"status"`
	TransactionID     string `json:"transaction_id"`
	RiskScore         int    `json:"risk_score"`
	DistanceViolation bool   `json:"distance_violation"`
}

// SubmitTransaction posts the request and classifies the server's verdict
// into exactly one of Completed, PendingReview or RequiresOTP. The request's
// idempotency key travels as a header so a replayed call cannot double-post.
func (c *HTTPClient) SubmitTransaction(ctx context.Context, req *models.TransactionRequest) (models.Verdict, error) {
	payload := transactionPayload{
		Amount:              req.Amount,
		Type:                string(req.Type),
		CounterpartyAccount: req.CounterpartyAccount,
		CurrentLocation:     req.Location,
		DeviceFingerprint:   req.DeviceFingerprint,
	}

	var resp verdictResponse
	err := c.doAuthed(ctx, request{
		method: http.MethodPost,
		path:   "/transactions",
		idem:   req.IdempotencyKey(),
		body:   payload,
	}, &resp)
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case "completed":
		return models.Completed{TransactionID: resp.TransactionID, RiskScore: resp.RiskScore}, nil
	case "pending":
		return models.PendingReview{TransactionID: resp.TransactionID, RiskScore: resp.RiskScore}, nil
	case "requires_otp":
		return models.RequiresOTP{TransactionID: resp.TransactionID, DistanceViolation: resp.DistanceViolation}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedVerdict, resp.Status)
	}
}

// VerifyTransactionOTP submits a passcode for a held transaction. Server
// rejections come back as *OTPRejectedError with the reason forwarded
// verbatim; an expired code is distinguished so the challenge can terminate.
func (c *HTTPClient) VerifyTransactionOTP(ctx context.Context, transactionID, code string) (*models.TransactionResult, error) {
	in := map[string]string{"code": code}
	var out models.TransactionResult
	err := c.doAuthed(ctx, request{
		method: http.MethodPost,
		path:   "/transactions/" + transactionID + "/verify-otp",
		body:   in,
	}, &out)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusBadRequest {
			reason := OTPReasonInvalid
			if strings.Contains(strings.ToLower(se.Message), "expired") {
				reason = OTPReasonExpired
			}
			return nil, &OTPRejectedError{Reason: reason, Message: se.Message}
		}
		return nil, err
	}
	return &out, nil
}

// ResendTransactionOTP asks the server to issue a fresh passcode for a held
// transaction.
func (c *HTTPClient) ResendTransactionOTP(ctx context.Context, transactionID string) error {
	return c.doAuthed(ctx, request{
		method: http.MethodPost,
		path:   "/transactions/" + transactionID + "/resend-otp",
	}, nil)
}

func (c *HTTPClient) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.doAuthed(ctx, request{method: http.MethodGet, path: "/users/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := c.doAuthed(ctx, request{method: http.MethodGet, path: "/transactions"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListAlerts(ctx context.Context) ([]models.FraudAlert, error) {
	var out []models.FraudAlert
	if err := c.doAuthed(ctx, request{method: http.MethodGet, path: "/dashboard/alerts"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
