// Package geo abstracts the geolocation capability. Location is best-effort:
// a failure means "no location available" and never blocks a submission.
package geo

import (
	"context"
	"errors"

	"github.com/safenetai/safebank-client/internal/client/models"
)

// ErrUnavailable means no coordinates could be acquired.
var ErrUnavailable = errors.New("location unavailable")

type Provider interface {
	Locate(ctx context.Context) (*models.Coordinates, error)
}

// StaticProvider serves fixed coordinates, e.g. configured by flag for a
// terminal client with no positioning hardware.
type StaticProvider struct {
	coords models.Coordinates
}

func NewStaticProvider(lat, lng float64) *StaticProvider {
	return &StaticProvider{coords: models.Coordinates{Lat: lat, Lng: lng}}
}

func (p *StaticProvider) Locate(ctx context.Context) (*models.Coordinates, error) {
	c := p.coords
	return &c, nil
}

// NoopProvider reports that no location is available.
type NoopProvider struct{}

func (NoopProvider) Locate(ctx context.Context) (*models.Coordinates, error) {
	return nil, ErrUnavailable
}
