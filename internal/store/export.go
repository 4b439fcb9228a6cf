package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/router-for-me/RelayStationHub/internal/models"
)

const exportVersion = 1

// ExportItem is one station payload inside an export document, stripped of
// identity and timestamps.
type ExportItem struct {
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	APIURL        string         `json:"api_url"`
	Adapter       string         `json:"adapter"`
	AuthMethod    string         `json:"auth_method"`
	SystemToken   string         `json:"system_token"`
	UserID        string         `json:"user_id,omitempty"`
	AdapterConfig datatypes.JSON `json:"adapter_config,omitempty"`
	Enabled       bool           `json:"enabled"`
}

// Export is a versioned station snapshot. Credentials ride along in
// plaintext, so the document must be handled like a secret.
type Export struct {
	Version    int          `json:"version"`
	ExportedAt int64        `json:"exported_at"`
	Stations   []ExportItem `json:"stations"`
}

// Export snapshots stations into a portable document. An empty id list
// exports everything; explicit ids are exported in the given order and
// unknown ids are skipped.
func (s *StationStore) Export(ctx context.Context, ids []string) (*Export, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("station store: not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var stations []models.Station
	if len(ids) == 0 {
		if errFind := s.db.WithContext(ctx).Order("created_at DESC").Find(&stations).Error; errFind != nil {
			return nil, fmt.Errorf("station store: export: %w", errFind)
		}
	} else {
		for _, id := range ids {
			var row models.Station
			errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				continue
			}
			if errFind != nil {
				return nil, fmt.Errorf("station store: export: %w", errFind)
			}
			stations = append(stations, row)
		}
	}

	items := make([]ExportItem, 0, len(stations))
	for _, station := range stations {
		items = append(items, ExportItem{
			Name:          station.Name,
			Description:   station.Description,
			APIURL:        station.APIURL,
			Adapter:       station.Adapter,
			AuthMethod:    station.AuthMethod,
			SystemToken:   station.SystemToken,
			UserID:        station.UserID,
			AdapterConfig: station.AdapterConfig,
			Enabled:       station.Enabled,
		})
	}
	return &Export{Version: exportVersion, ExportedAt: nowUnix(), Stations: items}, nil
}

// Import merges an export document, matching records by station name. With
// overwrite set, a matched station is rewritten in place keeping its id and
// created_at; otherwise it is skipped. Unmatched records insert under fresh
// ids. Returns the imported and the skipped names.
func (s *StationStore) Import(ctx context.Context, export *Export, overwrite bool) ([]string, []string, error) {
	if s == nil || s.db == nil {
		return nil, nil, fmt.Errorf("station store: not initialized")
	}
	if export == nil {
		return nil, nil, fmt.Errorf("station store: export is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imported := []string{}
	skipped := []string{}
	for _, item := range export.Stations {
		var existing models.Station
		errFind := s.db.WithContext(ctx).Where("name = ?", item.Name).First(&existing).Error
		switch {
		case errFind == nil && !overwrite:
			skipped = append(skipped, item.Name)
			continue
		case errFind == nil:
			columns := map[string]any{
				"description":    item.Description,
				"api_url":        item.APIURL,
				"adapter":        item.Adapter,
				"auth_method":    item.AuthMethod,
				"system_token":   item.SystemToken,
				"user_id":        item.UserID,
				"adapter_config": item.AdapterConfig,
				"enabled":        item.Enabled,
				"updated_at":     nowUnix(),
			}
			if errUpdate := s.db.WithContext(ctx).Model(&models.Station{}).Where("id = ?", existing.ID).Updates(columns).Error; errUpdate != nil {
				return nil, nil, fmt.Errorf("station store: import update %s: %w", item.Name, errUpdate)
			}
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			now := nowUnix()
			record := models.Station{
				ID:            uuid.NewString(),
				Name:          item.Name,
				Description:   item.Description,
				APIURL:        item.APIURL,
				Adapter:       item.Adapter,
				AuthMethod:    item.AuthMethod,
				SystemToken:   item.SystemToken,
				UserID:        item.UserID,
				AdapterConfig: item.AdapterConfig,
				Enabled:       item.Enabled,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
				return nil, nil, fmt.Errorf("station store: import insert %s: %w", item.Name, errCreate)
			}
		default:
			return nil, nil, fmt.Errorf("station store: import lookup %s: %w", item.Name, errFind)
		}
		imported = append(imported, item.Name)
	}
	return imported, skipped, nil
}
