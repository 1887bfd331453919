// Package api is the single chokepoint through which every server call
// passes. Transport speaks raw JSON over HTTP; HTTPClient layers the bearer
// header and the one-refresh-one-retry contract on top of it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/safenetai/safebank-client/internal/client/models"
	"github.com/safenetai/safebank-client/internal/common"
)

// Transport performs plain JSON requests against the server. It knows nothing
// about sessions; the authorization header is passed in per call.
type Transport struct {
	baseURL string
	http    *http.Client
}

func NewTransport(baseURL string, timeout time.Duration) *Transport {
	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type request struct {
	method string
	path   string
	auth   string
	idem   string
	body   any
}

// errorBody is the server's uniform error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func (t *Transport) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, t.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.auth != "" {
		httpReq.Header.Set(common.AuthorizationHeader, req.auth)
	}
	if req.idem != "" {
		httpReq.Header.Set(common.IdempotencyKeyHeader, req.idem)
	}

	resp, err := t.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		if eb.Error == "" {
			eb.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: eb.Error}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
		}
	}
	return nil
}

// AuthPayload is the credential pair plus profile returned by login and
// challenge verification. The client treats both tokens as opaque bearer
// values and never parses them.
type AuthPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// asAuthError converts a server rejection into an AuthError carrying the
// server message verbatim. Transport failures pass through unchanged.
func asAuthError(err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		return &AuthError{Message: se.Message}
	}
	return err
}

// Login exchanges an identifier/secret pair for a credential pair.
func (t *Transport) Login(ctx context.Context, identifier, secret string) (*AuthPayload, error) {
	in := map[string]string{"identifier": identifier, "secret": secret}
	var out AuthPayload
	if err := t.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: in}, &out); err != nil {
		return nil, asAuthError(err)
	}
	return &out, nil
}

// VerifyChallenge completes an account-activation OTP login. Distinct from
// the per-transaction OTP: it issues a fresh credential pair like Login does.
func (t *Transport) VerifyChallenge(ctx context.Context, identifier, code string) (*AuthPayload, error) {
	in := map[string]string{"identifier": identifier, "code": code}
	var out AuthPayload
	if err := t.do(ctx, request{method: http.MethodPost, path: "/auth/verify-challenge", body: in}, &out); err != nil {
		return nil, asAuthError(err)
	}
	return &out, nil
}

// Refresh exchanges the refresh token for a new access token. The refresh
// token itself is left untouched by the server.
func (t *Transport) Refresh(ctx context.Context, refreshToken string) (string, error) {
	in := map[string]string{"refresh_token": refreshToken}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := t.do(ctx, request{method: http.MethodPost, path: "/auth/refresh", body: in}, &out); err != nil {
		return "", asAuthError(err)
	}
	return out.AccessToken, nil
}

// Register creates a new account. The server replies with a confirmation
// message; credentials are only issued after the account challenge is
// verified.
func (t *Transport) Register(ctx context.Context, email, password, fullName string) (string, error) {
	in := map[string]string{"email": email, "password": password, "full_name": fullName}
	var out struct {
		Message string `json:"message"`
	}
	if err := t.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: in}, &out); err != nil {
		return "", asAuthError(err)
	}
	return out.Message, nil
}
