package models

// ConfigUsage records the last application of a station as the active provider.
type ConfigUsage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	StationID string `gorm:"column:station_id;type:text;not null;uniqueIndex"` // Applied station ID.
	BaseURL   string `gorm:"column:base_url;type:text;not null"`               // Base URL written on apply.
	Token     string `gorm:"type:text;not null"`                               // Credential written on apply.

	AppliedAt int64 `gorm:"column:applied_at;not null"` // Application time, epoch seconds.
}

// TableName maps ConfigUsage to the config_usage table.
func (ConfigUsage) TableName() string { return "config_usage" }
