package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safenetai/safebank-client/internal/client/models"
)

// fakeTokens implements TokenSource with scripted refresh behavior.
type fakeTokens struct {
	header       string
	refreshed    atomic.Int32
	refreshErr   error
	afterRefresh string
}

func (f *fakeTokens) AuthHeader() string { return f.header }

func (f *fakeTokens) Refresh(ctx context.Context) error {
	f.refreshed.Add(1)
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.header = f.afterRefresh
	return nil
}

func newTestClient(t *testing.T, handler http.Handler, tokens TokenSource) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(NewTransport(srv.URL, 5*time.Second), tokens)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestTransport_Login_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "alice@example.com", in["identifier"])

		writeJSON(w, http.StatusOK, AuthPayload{
			AccessToken:  "acc-1",
			RefreshToken: "ref-1",
			User:         models.User{ID: 7, Email: "alice@example.com"},
		})
	}))
	t.Cleanup(srv.Close)

	tr := NewTransport(srv.URL, 5*time.Second)
	payload, err := tr.Login(context.Background(), "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", payload.AccessToken)
	assert.Equal(t, "ref-1", payload.RefreshToken)
	assert.Equal(t, int64(7), payload.User.ID)
}

func TestTransport_Login_RejectionBecomesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}))
	t.Cleanup(srv.Close)

	tr := NewTransport(srv.URL, 5*time.Second)
	_, err := tr.Login(context.Background(), "alice@example.com", "wrong")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid credentials", authErr.Message)
}

func TestTransport_NetworkFailureIsUnavailable(t *testing.T) {
	tr := NewTransport("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := tr.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_RefreshAndRetryOnce(t *testing.T) {
	var calls atomic.Int32
	tokens := &fakeTokens{header: "Bearer stale", afterRefresh: "Bearer fresh"}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, models.User{ID: 1, Email: "a@b.c"})
	}), tokens)

	user, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), tokens.refreshed.Load())
}

func TestHTTPClient_RefreshFailurePropagatesOriginalError(t *testing.T) {
	tokens := &fakeTokens{header: "Bearer stale", refreshErr: &AuthError{Message: "refresh rejected"}}
	var calls atomic.Int32

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	}), tokens)

	_, err := client.Profile(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "token expired", se.Message)

	// Only the original call went out; the retry was skipped.
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), tokens.refreshed.Load())
}

func TestHTTPClient_SecondUnauthorizedTerminates(t *testing.T) {
	// Server always rejects: exactly one refresh, exactly one retry, then stop.
	tokens := &fakeTokens{header: "Bearer a", afterRefresh: "Bearer b"}
	var calls atomic.Int32

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "nope"})
	}), tokens)

	_, err := client.Profile(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), tokens.refreshed.Load())
}

func submitReq(t *testing.T) *models.TransactionRequest {
	t.Helper()
	req := &models.TransactionRequest{Amount: 50000_00, Type: models.TypeTransfer, CounterpartyAccount: "ACC-9"}
	_, err := req.BeginSubmit()
	require.NoError(t, err)
	return req
}

func TestSubmitTransaction_VerdictClassification(t *testing.T) {
	tests := []struct {
		name string
		resp verdictResponse
		want models.Verdict
	}{
		{
			name: "completed",
			resp: verdictResponse{Status: "completed", TransactionID: "tx-1", RiskScore: 12},
			want: models.Completed{TransactionID: "tx-1", RiskScore: 12},
		},
		{
			name: "pending review",
			resp: verdictResponse{Status: "pending", TransactionID: "tx-2", RiskScore: 55},
			want: models.PendingReview{TransactionID: "tx-2", RiskScore: 55},
		},
		{
			name: "requires otp with distance violation",
			resp: verdictResponse{Status: "requires_otp", TransactionID: "tx-3", DistanceViolation: true},
			want: models.RequiresOTP{TransactionID: "tx-3", DistanceViolation: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &fakeTokens{header: "Bearer ok"}
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/transactions", r.URL.Path)
				require.NotEmpty(t, r.Header.Get("Idempotency-Key"))
				writeJSON(w, http.StatusCreated, tt.resp)
			}), tokens)

			verdict, err := client.SubmitTransaction(context.Background(), submitReq(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict)
		})
	}
}

func TestSubmitTransaction_UnknownStatusIsAnError(t *testing.T) {
	tokens := &fakeTokens{header: "Bearer ok"}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, verdictResponse{Status: "quarantined"})
	}), tokens)

	_, err := client.SubmitTransaction(context.Background(), submitReq(t))
	require.ErrorIs(t, err, ErrUnexpectedVerdict)
}

func TestSubmitTransaction_SendsPayloadAndIdempotencyKey(t *testing.T) {
	tokens := &fakeTokens{header: "Bearer ok"}
	req := submitReq(t)
	req.Location = &models.Coordinates{Lat: 36.75, Lng: 3.06}
	req.DeviceFingerprint = "dev-1"

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, req.IdempotencyKey(), r.Header.Get("Idempotency-Key"))

		var in transactionPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, int64(50000_00), in.Amount)
		assert.Equal(t, "transfer", in.Type)
		assert.Equal(t, "ACC-9", in.CounterpartyAccount)
		assert.Equal(t, "dev-1", in.DeviceFingerprint)
		require.NotNil(t, in.CurrentLocation)
		assert.InDelta(t, 36.75, in.CurrentLocation.Lat, 0.0001)

		writeJSON(w, http.StatusCreated, verdictResponse{Status: "completed", TransactionID: "tx-1"})
	}), tokens)

	_, err := client.SubmitTransaction(context.Background(), req)
	require.NoError(t, err)
}

func TestVerifyTransactionOTP_MapsRejections(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		wantReason OTPRejectReason
	}{
		{"invalid code", "Invalid OTP code", OTPReasonInvalid},
		{"expired code", "OTP has expired", OTPReasonExpired},
		{"too many attempts", "Too many failed attempts", OTPReasonInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &fakeTokens{header: "Bearer ok"}
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": tt.message})
			}), tokens)

			_, err := client.VerifyTransactionOTP(context.Background(), "tx-1", "123456")

			var rej *OTPRejectedError
			require.ErrorAs(t, err, &rej)
			assert.Equal(t, tt.wantReason, rej.Reason)
			assert.Equal(t, tt.message, rej.Message)
		})
	}
}

func TestVerifyTransactionOTP_Success(t *testing.T) {
	tokens := &fakeTokens{header: "Bearer ok"}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/tx-1/verify-otp", r.URL.Path)

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "123456", in["code"])

		writeJSON(w, http.StatusOK, models.TransactionResult{
			TransactionID: "tx-1", Amount: 100_00, RiskScore: 81, Status: "completed",
		})
	}), tokens)

	res, err := client.VerifyTransactionOTP(context.Background(), "tx-1", "123456")
	require.NoError(t, err)
	assert.Equal(t, int64(100_00), res.Amount)
	assert.Equal(t, 81, res.RiskScore)
}

func TestResendTransactionOTP(t *testing.T) {
	tokens := &fakeTokens{header: "Bearer ok"}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/tx-1/resend-otp", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"message": "OTP resent successfully"})
	}), tokens)

	require.NoError(t, client.ResendTransactionOTP(context.Background(), "tx-1"))
}

func TestListEndpoints(t *testing.T) {
	tokens := &fakeTokens{header: "Bearer ok"}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transactions":
			writeJSON(w, http.StatusOK, []models.Transaction{{ID: "tx-1", Status: "completed"}})
		case "/dashboard/alerts":
			writeJSON(w, http.StatusOK, []models.FraudAlert{{ID: "al-1", Level: "high"}})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		}
	}), tokens)

	txs, err := client.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].ID)

	alerts, err := client.ListAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "high", alerts[0].Level)
}

func TestStatusError_UnwrapsToUnauthorizedOnlyFor401(t *testing.T) {
	assert.True(t, errors.Is(&StatusError{Code: 401, Message: "x"}, ErrUnauthorized))
	assert.False(t, errors.Is(&StatusError{Code: 400, Message: "x"}, ErrUnauthorized))
	assert.False(t, errors.Is(&StatusError{Code: 500, Message: "x"}, ErrUnauthorized))
}
