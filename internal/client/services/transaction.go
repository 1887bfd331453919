// Package services holds the client-side orchestration between the user
// facing layer and the server API.
package services

import (
	"context"
	"errors"
	"sync"

	"github.com/safenetai/safebank-client/internal/client/api"
	"github.com/safenetai/safebank-client/internal/client/device"
	"github.com/safenetai/safebank-client/internal/client/geo"
	"github.com/safenetai/safebank-client/internal/client/models"
	"github.com/safenetai/safebank-client/internal/client/otp"
	"github.com/safenetai/safebank-client/internal/logging"
)

// ErrSubmissionInFlight is returned when a new transaction is submitted while
// a previous submission is still being processed or its OTP challenge has not
// finished.
var ErrSubmissionInFlight = errors.New("a transaction is already awaiting verification")

// TransactionService submits transactions and owns the resulting OTP
// challenge, if any. One submission at a time: a new Submit is refused until
// the previous verdict is fully resolved.
type TransactionService struct {
	client api.Client
	geo    geo.Provider
	device device.Provider
	log    logging.Logger

	mu        sync.Mutex
	busy      bool
	challenge *otp.Challenge
}

func NewTransactionService(client api.Client, geoProvider geo.Provider, deviceProvider device.Provider, log logging.Logger) *TransactionService {
	return &TransactionService{
		client: client,
		geo:    geoProvider,
		device: deviceProvider,
		log:    log,
	}
}

// Submit validates the request, enriches it with device identity and a
// best-effort location, and posts it. The returned verdict is one of
// models.Completed, models.PendingReview or models.RequiresOTP; in the last
// case the service holds the live challenge, retrievable via Challenge.
func (s *TransactionService) Submit(ctx context.Context, req *models.TransactionRequest) (models.Verdict, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.busy || (s.challenge != nil && !s.challenge.Terminal()) {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if _, err := req.BeginSubmit(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	fingerprint, err := s.device.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	req.DeviceFingerprint = fingerprint

	// Location is a risk signal, not a requirement. A provider failure
	// degrades to "no location" and the submission proceeds.
	loc, err := s.geo.Locate(ctx)
	if err != nil {
		s.log.Warn(ctx, "location unavailable", "error", err)
		loc = nil
	}
	req.Location = loc

	verdict, err := s.client.SubmitTransaction(ctx, req)
	if err != nil {
		return nil, err
	}

	if held, ok := verdict.(models.RequiresOTP); ok {
		ch := otp.NewChallenge(s.client, s.log, held.TransactionID, held.DistanceViolation)
		s.mu.Lock()
		s.challenge = ch
		s.mu.Unlock()
		s.log.Info(ctx, "transaction held for otp verification",
			"transaction_id", held.TransactionID,
			"distance_violation", held.DistanceViolation)
	}

	return verdict, nil
}

// Challenge returns the challenge created by the last Submit that came back
// RequiresOTP, or nil. The challenge stays available after it turns terminal
// so the caller can read its final state.
func (s *TransactionService) Challenge() *otp.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challenge
}

// History lists the authenticated user's transactions, newest first as
// ordered by the server.
func (s *TransactionService) History(ctx context.Context) ([]models.Transaction, error) {
	return s.client.ListTransactions(ctx)
}

// Alerts lists fraud alerts raised against the user's own transactions.
func (s *TransactionService) Alerts(ctx context.Context) ([]models.FraudAlert, error) {
	return s.client.ListAlerts(ctx)
}

// Profile fetches the authenticated user's account details, including the
// current balance.
func (s *TransactionService) Profile(ctx context.Context) (*models.User, error) {
	return s.client.Profile(ctx)
}

// Close cancels any live challenge. Safe to call at any time.
func (s *TransactionService) Close() {
	s.mu.Lock()
	ch := s.challenge
	s.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}
