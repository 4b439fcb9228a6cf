package service

import (
	"context"
	"fmt"

	"github.com/router-for-me/RelayStationHub/internal/models"
	"github.com/router-for-me/RelayStationHub/internal/relay"
	"github.com/router-for-me/RelayStationHub/internal/store"
)

// StationService fronts the station store and the per-station relay
// adapters. The station row is resolved first so a bad ID fails before
// any network traffic, and adapter calls run outside the store lock.
type StationService struct {
	stations *store.StationStore
	adapters func(*models.Station) relay.Adapter
}

// NewStationService builds a service over the given store using the
// default adapter selection.
func NewStationService(stations *store.StationStore) *StationService {
	return &StationService{stations: stations, adapters: relay.ForStation}
}

func (s *StationService) resolve(ctx context.Context, stationID string) (*models.Station, relay.Adapter, error) {
	if s == nil || s.stations == nil {
		return nil, nil, fmt.Errorf("station service: not initialized")
	}
	station, err := s.stations.Get(ctx, stationID)
	if err != nil {
		return nil, nil, err
	}
	factory := s.adapters
	if factory == nil {
		factory = relay.ForStation
	}
	return station, factory(station), nil
}

func (s *StationService) StationInfo(ctx context.Context, stationID string) (*relay.StationInfo, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.StationInfo(ctx, station)
}

func (s *StationService) UserInfo(ctx context.Context, stationID, userID string) (*relay.UserInfo, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.UserInfo(ctx, station, userID)
}

func (s *StationService) Logs(ctx context.Context, stationID string, page, pageSize int, filters *relay.LogFilters) (*relay.LogPage, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.Logs(ctx, station, page, pageSize, filters)
}

func (s *StationService) TestConnection(ctx context.Context, stationID string) (*relay.ConnectionTestResult, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.TestConnection(ctx, station)
}

func (s *StationService) ListTokens(ctx context.Context, stationID string, page, size int) (*relay.TokenPage, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.ListTokens(ctx, station, page, size)
}

func (s *StationService) CreateToken(ctx context.Context, stationID string, req *relay.CreateTokenRequest) (*relay.Token, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.CreateToken(ctx, station, req)
}

func (s *StationService) UpdateToken(ctx context.Context, stationID, tokenID string, req *relay.UpdateTokenRequest) (*relay.Token, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.UpdateToken(ctx, station, tokenID, req)
}

func (s *StationService) DeleteToken(ctx context.Context, stationID, tokenID string) error {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return err
	}
	return adapter.DeleteToken(ctx, station, tokenID)
}

func (s *StationService) ToggleToken(ctx context.Context, stationID, tokenID string, enabled bool) (*relay.Token, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.ToggleToken(ctx, station, tokenID, enabled)
}

func (s *StationService) UserGroups(ctx context.Context, stationID string) (map[string]any, error) {
	station, adapter, err := s.resolve(ctx, stationID)
	if err != nil {
		return nil, err
	}
	return adapter.UserGroups(ctx, station)
}
