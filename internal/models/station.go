package models

import (
	"strings"

	"gorm.io/datatypes"
)

// Adapter kind identifiers for relay station management APIs.
const (
	// AdapterNewAPI is the standard New API management surface.
	AdapterNewAPI = "newapi"
	// AdapterOneAPI is a legacy alias handled by the standard adapter.
	AdapterOneAPI = "oneapi"
	// AdapterYourAPI is the New API variant with zero-based token paging.
	AdapterYourAPI = "yourapi"
	// AdapterCustom is a user-managed endpoint without a management API.
	AdapterCustom = "custom"
)

// Auth method identifiers describing how the station credential is presented.
const (
	// AuthBearerToken presents the credential as an Authorization bearer token.
	AuthBearerToken = "bearer_token"
	// AuthAPIKey presents the credential as a plain API key.
	AuthAPIKey = "api_key"
	// AuthCustom defers credential presentation to adapter config.
	AuthCustom = "custom"
)

// KnownAdapter reports whether the adapter kind is one of the supported values.
func KnownAdapter(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case AdapterNewAPI, AdapterOneAPI, AdapterYourAPI, AdapterCustom:
		return true
	}
	return false
}

// KnownAuthMethod reports whether the auth method is one of the supported values.
func KnownAuthMethod(method string) bool {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case AuthBearerToken, AuthAPIKey, AuthCustom:
		return true
	}
	return false
}

// Station stores a named relay station configuration.
type Station struct {
	ID string `gorm:"type:text;primaryKey"` // UUID assigned at creation.

	Name        string `gorm:"type:text;not null"` // Display name.
	Description string `gorm:"type:text"`          // Optional description.

	APIURL      string `gorm:"column:api_url;type:text;not null"`      // Management API base URL.
	Adapter     string `gorm:"type:text;not null"`                     // Adapter kind, stored as given.
	AuthMethod  string `gorm:"column:auth_method;type:text;not null"`  // Credential presentation.
	SystemToken string `gorm:"column:system_token;type:text;not null"` // Management credential.
	UserID      string `gorm:"column:user_id;type:text"`               // Upstream account ID, "1" when empty.

	AdapterConfig datatypes.JSON `gorm:"column:adapter_config;type:jsonb"` // Open adapter settings.

	Enabled bool `gorm:"not null"` // Whether the station is selectable.

	CreatedAt int64 `gorm:"not null"` // Creation time, epoch seconds.
	UpdatedAt int64 `gorm:"not null"` // Last update time, epoch seconds.
}

// TableName maps Station to the relay_stations table.
func (Station) TableName() string { return "relay_stations" }
