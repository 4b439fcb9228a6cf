package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbutil "github.com/router-for-me/RelayStationHub/internal/db"
	"github.com/router-for-me/RelayStationHub/internal/models"
)

// ErrNotFound marks lookups for rows that do not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict marks inserts that collide with an existing identifier.
var ErrConflict = errors.New("conflict")

// StationStore persists relay stations and their derived records. All
// operations serialize on one mutex; the working set is small and local.
type StationStore struct {
	db *gorm.DB

	mu sync.Mutex
}

// NewStationStore constructs a StationStore.
func NewStationStore(db *gorm.DB) *StationStore {
	return &StationStore{db: db}
}

// Add inserts a station, assigning an id and timestamps. The caller's id is
// kept when present so imports can pin identities.
func (s *StationStore) Add(ctx context.Context, station *models.Station) (*models.Station, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("station store: not initialized")
	}
	if station == nil {
		return nil, fmt.Errorf("station store: station is nil")
	}

	record := *station
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := nowUnix()
	record.CreatedAt = now
	record.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		if isDuplicateKey(errCreate) {
			return nil, fmt.Errorf("station store: station %s: %w", record.ID, ErrConflict)
		}
		return nil, fmt.Errorf("station store: create: %w", errCreate)
	}
	return &record, nil
}

// Get loads one station by id.
func (s *StationStore) Get(ctx context.Context, id string) (*models.Station, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("station store: not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("station store: id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, id)
}

// List returns stations ordered newest-created first. A keyword narrows the
// result to stations whose name or description matches case-insensitively.
func (s *StationStore) List(ctx context.Context, keyword string) ([]models.Station, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("station store: not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.WithContext(ctx).Model(&models.Station{})
	if keywordQ := strings.TrimSpace(keyword); keywordQ != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+keywordQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(s.db, "name")+" OR "+dbutil.CaseInsensitiveLikeExpr(s.db, "description"),
			pattern, pattern,
		)
	}

	rows := []models.Station{}
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("station store: list: %w", errFind)
	}
	return rows, nil
}

// Update applies a partial update. Only recognized fields are written and
// unknown keys are ignored; updated_at moves only when something recognized
// was present.
func (s *StationStore) Update(ctx context.Context, id string, updates map[string]any) (*models.Station, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("station store: not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("station store: id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, errFind := s.getLocked(ctx, id); errFind != nil {
		return nil, errFind
	}
	columns := stationUpdateColumns(updates)
	if len(columns) == 0 {
		return s.getLocked(ctx, id)
	}
	columns["updated_at"] = nowUnix()

	if errUpdate := s.db.WithContext(ctx).Model(&models.Station{}).Where("id = ?", id).Updates(columns).Error; errUpdate != nil {
		return nil, fmt.Errorf("station store: update: %w", errUpdate)
	}
	return s.getLocked(ctx, id)
}

// Delete removes a station together with its saved config and usage record.
func (s *StationStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("station store: not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("station store: id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Station{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("station store: station %s: %w", id, ErrNotFound)
		}
		if errConfig := tx.Where("station_id = ?", id).Delete(&models.StationConfig{}).Error; errConfig != nil {
			return errConfig
		}
		if errUsage := tx.Where("station_id = ?", id).Delete(&models.ConfigUsage{}).Error; errUsage != nil {
			return errUsage
		}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, ErrNotFound) {
			return errTx
		}
		return fmt.Errorf("station store: delete: %w", errTx)
	}
	return nil
}

// SaveConfig upserts the saved setup for a station, keeping the original
// created_at on rewrite.
func (s *StationStore) SaveConfig(ctx context.Context, cfg *models.StationConfig) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("station store: not initialized")
	}
	if cfg == nil {
		return fmt.Errorf("station store: config is nil")
	}

	record := *cfg
	record.StationID = strings.TrimSpace(record.StationID)
	if record.StationID == "" {
		return fmt.Errorf("station store: station id is empty")
	}
	now := nowUnix()
	if record.CreatedAt == 0 {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"station_name", "api_endpoint", "custom_endpoint", "path", "model", "saved_settings", "updated_at"}),
	}).Create(&record).Error; errUpsert != nil {
		return fmt.Errorf("station store: save config: %w", errUpsert)
	}
	return nil
}

// GetConfig loads the saved setup for a station.
func (s *StationStore) GetConfig(ctx context.Context, stationID string) (*models.StationConfig, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("station store: not initialized")
	}
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return nil, fmt.Errorf("station store: station id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var row models.StationConfig
	if errFind := s.db.WithContext(ctx).Where("station_id = ?", stationID).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("station store: config for %s: %w", stationID, ErrNotFound)
		}
		return nil, fmt.Errorf("station store: get config: %w", errFind)
	}
	return &row, nil
}

// RecordUsage upserts the last applied configuration for a station.
func (s *StationStore) RecordUsage(ctx context.Context, stationID, baseURL, token string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("station store: not initialized")
	}
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return fmt.Errorf("station store: station id is empty")
	}

	record := models.ConfigUsage{
		StationID: stationID,
		BaseURL:   baseURL,
		Token:     token,
		AppliedAt: nowUnix(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_url", "token", "applied_at"}),
	}).Create(&record).Error; errUpsert != nil {
		return fmt.Errorf("station store: record usage: %w", errUpsert)
	}
	return nil
}

// UsageStatus is one applied-configuration record joined with the owning
// station's current name.
type UsageStatus struct {
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	BaseURL     string `json:"base_url"`
	Token       string `json:"token"`
	IsActive    bool   `json:"is_active"`
	AppliedAt   int64  `json:"applied_at"`
}

// UsageStatuses lists applied configurations newest first. Stations deleted
// since their configuration was applied show up as "Unknown". IsActive is
// left false; whether a row matches the live settings document is decided by
// the switcher, not the database.
func (s *StationStore) UsageStatuses(ctx context.Context) ([]UsageStatus, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("station store: not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := []UsageStatus{}
	errFind := s.db.WithContext(ctx).
		Table("config_usage").
		Select("config_usage.station_id, relay_stations.name AS station_name, config_usage.base_url, config_usage.token, config_usage.applied_at").
		Joins("LEFT JOIN relay_stations ON relay_stations.id = config_usage.station_id").
		Order("config_usage.applied_at DESC").
		Scan(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("station store: usage statuses: %w", errFind)
	}
	for i := range rows {
		if rows[i].StationName == "" {
			rows[i].StationName = "Unknown"
		}
	}
	return rows, nil
}

// stationUpdateColumns maps recognized update keys onto their columns,
// coercing values the same way for every storage dialect.
func stationUpdateColumns(updates map[string]any) map[string]any {
	columns := map[string]any{}
	for key, value := range updates {
		switch key {
		case "name":
			columns["name"] = stringOr(value, "")
		case "description":
			columns["description"] = stringOr(value, "")
		case "api_url":
			columns["api_url"] = stringOr(value, "")
		case "adapter":
			columns["adapter"] = stringOr(value, models.AdapterNewAPI)
		case "auth_method":
			columns["auth_method"] = stringOr(value, models.AuthBearerToken)
		case "system_token":
			columns["system_token"] = stringOr(value, "")
		case "user_id":
			columns["user_id"] = stringOr(value, "")
		case "enabled":
			enabled, _ := value.(bool)
			columns["enabled"] = enabled
		}
	}
	return columns
}

func (s *StationStore) getLocked(ctx context.Context, id string) (*models.Station, error) {
	var row models.Station
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("station store: station %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("station store: get: %w", errFind)
	}
	return &row, nil
}

// isDuplicateKey detects primary key collisions on both supported dialects.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func stringOr(value any, fallback string) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fallback
}

func nowUnix() int64 {
	return time.Now().Unix()
}
