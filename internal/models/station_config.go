package models

import "gorm.io/datatypes"

// StationConfig stores the saved endpoint configuration for one station.
type StationConfig struct {
	StationID string `gorm:"column:station_id;type:text;primaryKey"` // Owning station ID.

	StationName    string `gorm:"column:station_name;type:text;not null"` // Station name at save time.
	APIEndpoint    string `gorm:"column:api_endpoint;type:text;not null"` // Selected API endpoint URL.
	CustomEndpoint string `gorm:"column:custom_endpoint;type:text"`       // Optional user-entered endpoint.
	Path           string `gorm:"type:text"`                              // Optional request path override.
	Model          string `gorm:"type:text"`                              // Optional model override.

	SavedSettings datatypes.JSON `gorm:"column:saved_settings;type:jsonb"` // Opaque GUI settings blob.

	CreatedAt int64 `gorm:"not null"` // Creation time, epoch seconds.
	UpdatedAt int64 `gorm:"not null"` // Last update time, epoch seconds.
}

// TableName maps StationConfig to the station_configs table.
func (StationConfig) TableName() string { return "station_configs" }
