// Package common contains shared constants and small helpers used across
// the SafeBank client.
package common

const (
	// AuthorizationHeader carries the bearer access token on outbound requests.
	AuthorizationHeader = "Authorization"

	// IdempotencyKeyHeader guards money-movement requests against double
	// submission on the server side.
	IdempotencyKeyHeader = "Idempotency-Key"

	// BearerPrefix is prepended to the access token in the Authorization header.
	BearerPrefix = "Bearer "
)
