package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/router-for-me/RelayStationHub/internal/models"
	"github.com/router-for-me/RelayStationHub/internal/store"
)

// StationConfigHandler manages the saved endpoint setup of a station.
type StationConfigHandler struct {
	stations *store.StationStore // Backing station store.
}

// NewStationConfigHandler creates a StationConfigHandler.
func NewStationConfigHandler(stations *store.StationStore) *StationConfigHandler {
	return &StationConfigHandler{stations: stations}
}

type saveConfigRequest struct {
	APIEndpoint    string         `json:"api_endpoint"`    // Selected API endpoint URL, required.
	CustomEndpoint string         `json:"custom_endpoint"` // Optional user-entered endpoint.
	Path           string         `json:"path"`            // Optional request path override.
	Model          string         `json:"model"`           // Optional model override.
	SavedSettings  map[string]any `json:"saved_settings"`  // Opaque GUI settings blob.
}

// Get returns the saved setup for a station.
func (h *StationConfigHandler) Get(c *gin.Context) {
	cfg, errGet := h.stations.GetConfig(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get config failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": formatConfigRow(cfg)})
}

// Save upserts the saved setup for a station. The station name is captured
// at save time so the record stays readable after a rename or delete.
func (h *StationConfigHandler) Save(c *gin.Context) {
	station, errGet := h.stations.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get station failed"})
		return
	}

	var body saveConfigRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	apiEndpoint := strings.TrimSpace(body.APIEndpoint)
	if apiEndpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_endpoint is required"})
		return
	}
	var savedSettings datatypes.JSON
	if len(body.SavedSettings) > 0 {
		raw, errMarshal := json.Marshal(body.SavedSettings)
		if errMarshal != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid saved_settings"})
			return
		}
		savedSettings = datatypes.JSON(raw)
	}

	cfg := &models.StationConfig{
		StationID:      station.ID,
		StationName:    station.Name,
		APIEndpoint:    apiEndpoint,
		CustomEndpoint: strings.TrimSpace(body.CustomEndpoint),
		Path:           strings.TrimSpace(body.Path),
		Model:          strings.TrimSpace(body.Model),
		SavedSettings:  savedSettings,
	}
	if errSave := h.stations.SaveConfig(c.Request.Context(), cfg); errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save config failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

// formatConfigRow renders a saved setup for API responses.
func formatConfigRow(row *models.StationConfig) gin.H {
	out := gin.H{
		"station_id":      row.StationID,
		"station_name":    row.StationName,
		"api_endpoint":    row.APIEndpoint,
		"custom_endpoint": row.CustomEndpoint,
		"path":            row.Path,
		"model":           row.Model,
		"created_at":      row.CreatedAt,
		"updated_at":      row.UpdatedAt,
	}
	if len(row.SavedSettings) > 0 {
		out["saved_settings"] = json.RawMessage(row.SavedSettings)
	}
	return out
}
