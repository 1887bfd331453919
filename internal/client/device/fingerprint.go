// Package device identifies the client installation with an opaque
// fingerprint. The fingerprint carries no semantics client-side; the server
// uses it as a risk signal.
package device

import (
	"context"

	"github.com/google/uuid"

	"github.com/safenetai/safebank-client/internal/client/credstore"
)

type Provider interface {
	Fingerprint(ctx context.Context) (string, error)
}

// StoreProvider generates a fingerprint once per installation and persists
// it in the credential store so it survives restarts.
type StoreProvider struct {
	repo credstore.Repository
}

func NewStoreProvider(repo credstore.Repository) *StoreProvider {
	return &StoreProvider{repo: repo}
}

func (p *StoreProvider) Fingerprint(ctx context.Context) (string, error) {
	existing, err := p.repo.Get(ctx, credstore.KeyDeviceID)
	if err != nil {
		return "", err
	}
	if len(existing) != 0 {
		return string(existing), nil
	}

	id := uuid.NewString()
	if err := p.repo.Set(ctx, credstore.KeyDeviceID, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}
