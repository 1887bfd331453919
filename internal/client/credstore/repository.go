// Package credstore persists the client's credential pair, cached profile and
// device identity in a local sqlite database. It is the only durable state the
// client owns; everything else lives server-side.
package credstore

import "context"

// Well-known keys. The access and refresh tokens are issued and cleared
// together; no partial pair is ever persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserData     = "user_data"
	KeyDeviceID     = "device_id"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
