// Package location serves the country/state/city reference data, cached.
package location

import (
	"context"

	"kobapay/internal/apperr"
	"kobapay/internal/config"
	"kobapay/internal/models"
	"kobapay/internal/repositories"
)

type Service struct {
	cfg       config.Config
	locations *repositories.LocationRepository
	cache     *repositories.Cache
}

func NewService(cfg config.Config, locations *repositories.LocationRepository, cache *repositories.Cache) *Service {
	return &Service{cfg: cfg, locations: locations, cache: cache}
}

func (s *Service) Countries(ctx context.Context) ([]models.Country, error) {
	key := s.cache.Key("countries")
	countries, err := repositories.Cached(ctx, s.cache, key, s.cfg.DefaultCacheTTL, s.locations.Countries)
	if err != nil {
		return nil, apperr.Server(err, "location.Countries")
	}
	return countries, nil
}

func (s *Service) States(ctx context.Context, countryID uint) ([]models.State, error) {
	key := s.cache.Key("states", countryID)
	states, err := repositories.Cached(ctx, s.cache, key, s.cfg.DefaultCacheTTL, func() ([]models.State, error) {
		return s.locations.StatesByCountry(countryID)
	})
	if err != nil {
		return nil, apperr.Server(err, "location.States")
	}
	return states, nil
}

func (s *Service) Cities(ctx context.Context, stateID uint) ([]models.City, error) {
	key := s.cache.Key("cities", stateID)
	cities, err := repositories.Cached(ctx, s.cache, key, s.cfg.DefaultCacheTTL, func() ([]models.City, error) {
		return s.locations.CitiesByState(stateID)
	})
	if err != nil {
		return nil, apperr.Server(err, "location.Cities")
	}
	return cities, nil
}
