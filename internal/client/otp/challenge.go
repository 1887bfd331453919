// Package otp drives the time-boxed one-time-passcode challenge for a single
// held transaction. Each challenge owns its countdown: the timer is stopped
// deterministically on every terminal transition and on Close, never leaked.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/safenetai/safebank-client/internal/client/api"
	"github.com/safenetai/safebank-client/internal/client/models"
	"github.com/safenetai/safebank-client/internal/logging"
)

// ChallengeSeconds is the countdown a fresh (or resent) passcode lives for.
const ChallengeSeconds = 600

// CodeLength is the exact number of digits a passcode must have at submit time.
const CodeLength = 6

type State string

const (
	StateActive    State = "active"
	StateVerifying State = "verifying"
	StateVerified  State = "verified"
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
)

var (
	// ErrCodeFormat rejects a code that is not exactly 6 digits after
	// normalization. Local check; never reaches the network.
	ErrCodeFormat = errors.New("code must be exactly 6 digits")

	// ErrCodeLive rejects a resend while the current code's countdown is
	// still running. Local no-op: the countdown and the entered code are
	// left untouched.
	ErrCodeLive = errors.New("code still live, resend not available yet")

	// ErrExpired rejects submissions once the countdown ran out.
	ErrExpired = errors.New("challenge expired")

	// ErrCancelled rejects any operation on a cancelled challenge.
	ErrCancelled = errors.New("challenge cancelled")

	// ErrNotActive rejects operations outside the Active state, e.g. a
	// second submit while one is already in flight.
	ErrNotActive = errors.New("challenge is not active")
)

// Client is the server surface the challenge needs. *api.HTTPClient
// satisfies it.
type Client interface {
	VerifyTransactionOTP(ctx context.Context, transactionID, code string) (*models.TransactionResult, error)
	ResendTransactionOTP(ctx context.Context, transactionID string) error
}

// Challenge is the verification state machine for one held transaction.
// It is owned exclusively by the flow that created it.
type Challenge struct {
	client Client
	log    logging.Logger

	transactionID     string
	distanceViolation bool

	mu        sync.Mutex
	state     State
	remaining int
	entered   string
	done      chan struct{}
}

// NewChallenge creates an Active challenge bound to transactionID and starts
// its countdown. The caller must Cancel or Close the challenge when tearing
// down the owning flow.
func NewChallenge(client Client, log logging.Logger, transactionID string, distanceViolation bool) *Challenge {
	c := newChallenge(client, log, transactionID, distanceViolation)
	c.mu.Lock()
	c.startCountdownLocked()
	c.mu.Unlock()
	return c
}

// newChallenge builds the challenge without a running countdown. Tests drive
// the clock through tick directly.
func newChallenge(client Client, log logging.Logger, transactionID string, distanceViolation bool) *Challenge {
	return &Challenge{
		client:            client,
		log:               log,
		transactionID:     transactionID,
		distanceViolation: distanceViolation,
		state:             StateActive,
		remaining:         ChallengeSeconds,
	}
}

func (c *Challenge) startCountdownLocked() {
	done := make(chan struct{})
	c.done = done
	go c.run(done)
}

func (c *Challenge) run(done chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.tick() {
				return
			}
		case <-done:
			return
		}
	}
}

// tick advances the countdown by one second. Returns true once the countdown
// is finished or the challenge left the counting states.
func (c *Challenge) tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive && c.state != StateVerifying {
		return true
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 && c.state == StateActive {
		c.state = StateExpired
		c.stopCountdownLocked()
		c.log.Warn(context.Background(), "otp challenge expired", "transaction_id", c.transactionID)
		return true
	}
	return false
}

func (c *Challenge) stopCountdownLocked() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

// NormalizeCode applies the entry ergonomics rule: non-digit characters are
// silently stripped and the result is truncated to 6 characters. This does
// not relax validation; submit time still requires exactly 6 digits.
func NormalizeCode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == CodeLength {
				break
			}
		}
	}
	return b.String()
}

// Enter records the user's current input, normalized. Only meaningful while
// the challenge is Active.
func (c *Challenge) Enter(raw string) string {
	code := NormalizeCode(raw)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateActive {
		c.entered = code
	}
	return code
}

// SubmitCode verifies a passcode against the held transaction. The code is
// normalized first and must come out as exactly 6 digits while the challenge
// is Active with time remaining. Server rejections keep the countdown
// unchanged and return the challenge to Active, except an expired-code
// rejection, which terminates it. A response arriving after Cancel is
// discarded.
func (c *Challenge) SubmitCode(ctx context.Context, raw string) (*models.TransactionResult, error) {
	code := NormalizeCode(raw)

	c.mu.Lock()
	switch c.state {
	case StateExpired:
		c.mu.Unlock()
		return nil, ErrExpired
	case StateCancelled:
		c.mu.Unlock()
		return nil, ErrCancelled
	case StateVerifying, StateVerified:
		c.mu.Unlock()
		return nil, ErrNotActive
	}
	if c.remaining <= 0 {
		c.state = StateExpired
		c.stopCountdownLocked()
		c.mu.Unlock()
		return nil, ErrExpired
	}
	if len(code) != CodeLength {
		c.mu.Unlock()
		return nil, ErrCodeFormat
	}
	c.entered = code
	c.state = StateVerifying
	c.mu.Unlock()

	result, err := c.client.VerifyTransactionOTP(ctx, c.transactionID, code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateCancelled {
		// Cancelled while the verify was in flight; the response is discarded.
		return nil, ErrCancelled
	}

	if err != nil {
		var rejected *api.OTPRejectedError
		if errors.As(err, &rejected) && rejected.Reason == api.OTPReasonExpired {
			c.state = StateExpired
			c.stopCountdownLocked()
		} else {
			c.state = StateActive
		}
		return nil, err
	}

	c.state = StateVerified
	c.stopCountdownLocked()
	c.log.Info(ctx, "otp verified", "transaction_id", c.transactionID)
	return result, nil
}

// Resend asks the server for a fresh passcode. Not available while the
// current code's countdown is still running; once the countdown is
// exhausted, a successful resend revives the challenge to Active with a full
// countdown and a cleared code.
func (c *Challenge) Resend(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateCancelled:
		c.mu.Unlock()
		return ErrCancelled
	case StateVerifying, StateVerified:
		c.mu.Unlock()
		return ErrNotActive
	}
	if c.remaining > 0 {
		c.mu.Unlock()
		return ErrCodeLive
	}
	c.mu.Unlock()

	if err := c.client.ResendTransactionOTP(ctx, c.transactionID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCancelled {
		return ErrCancelled
	}
	c.state = StateActive
	c.remaining = ChallengeSeconds
	c.entered = ""
	c.stopCountdownLocked()
	c.startCountdownLocked()
	c.log.Info(ctx, "otp resent", "transaction_id", c.transactionID)
	return nil
}

// Cancel abandons the wait and makes the challenge inert: the countdown is
// stopped immediately and any in-flight verify response will be discarded.
// The underlying transaction is left however the server left it. Idempotent.
func (c *Challenge) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateVerified || c.state == StateCancelled {
		return
	}
	c.state = StateCancelled
	c.stopCountdownLocked()
}

// Close releases the challenge on component teardown. Equivalent to Cancel.
func (c *Challenge) Close() {
	c.Cancel()
}

func (c *Challenge) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Terminal reports whether the challenge reached Verified, Cancelled or
// Expired. The orchestrator refuses a new submission while the previous
// challenge is non-terminal.
func (c *Challenge) Terminal() bool {
	switch c.State() {
	case StateVerified, StateCancelled, StateExpired:
		return true
	}
	return false
}

func (c *Challenge) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Challenge) Entered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entered
}

func (c *Challenge) TransactionID() string {
	return c.transactionID
}

// DistanceViolation reports whether the server flagged an impossible-travel
// violation, which makes the verification mandatory rather than
// precautionary. The mechanics are identical either way.
func (c *Challenge) DistanceViolation() bool {
	return c.distanceViolation
}

// FormatRemaining renders the countdown as MM:SS for display.
func (c *Challenge) FormatRemaining() string {
	return FormatSeconds(c.Remaining())
}

func FormatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
