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

// StationHandler manages relay station records.
type StationHandler struct {
	stations *store.StationStore // Backing station store.
}

// NewStationHandler creates a StationHandler.
func NewStationHandler(stations *store.StationStore) *StationHandler {
	return &StationHandler{stations: stations}
}

type createStationRequest struct {
	ID            string         `json:"id"`             // Optional pinned ID, generated when empty.
	Name          string         `json:"name"`           // Display name, required.
	Description   string         `json:"description"`    // Optional description.
	APIURL        string         `json:"api_url"`        // Management API base URL, required.
	Adapter       string         `json:"adapter"`        // Adapter kind, defaults to newapi.
	AuthMethod    string         `json:"auth_method"`    // Credential presentation, defaults to bearer_token.
	SystemToken   string         `json:"system_token"`   // Management credential, required.
	UserID        string         `json:"user_id"`        // Optional upstream account ID.
	AdapterConfig map[string]any `json:"adapter_config"` // Optional open adapter settings.
	Enabled       *bool          `json:"enabled"`        // Defaults to enabled.
}

// List returns stations newest first, optionally narrowed by a keyword
// matching name or description.
func (h *StationHandler) List(c *gin.Context) {
	rows, errList := h.stations.List(c.Request.Context(), c.Query("keyword"))
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list stations failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, formatStationRow(&row))
	}
	c.JSON(http.StatusOK, gin.H{"stations": out})
}

// Create validates and inserts a station.
func (h *StationHandler) Create(c *gin.Context) {
	var body createStationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	apiURL := strings.TrimSpace(body.APIURL)
	if apiURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_url is required"})
		return
	}
	systemToken := strings.TrimSpace(body.SystemToken)
	if systemToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "system_token is required"})
		return
	}
	adapter := strings.TrimSpace(body.Adapter)
	if adapter == "" {
		adapter = models.AdapterNewAPI
	}
	if !models.KnownAdapter(adapter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adapter"})
		return
	}
	authMethod := strings.TrimSpace(body.AuthMethod)
	if authMethod == "" {
		authMethod = models.AuthBearerToken
	}
	if !models.KnownAuthMethod(authMethod) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auth_method"})
		return
	}

	var adapterConfig datatypes.JSON
	if len(body.AdapterConfig) > 0 {
		raw, errMarshal := json.Marshal(body.AdapterConfig)
		if errMarshal != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adapter_config"})
			return
		}
		adapterConfig = datatypes.JSON(raw)
	}
	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}

	station := &models.Station{
		ID:            strings.TrimSpace(body.ID),
		Name:          name,
		Description:   strings.TrimSpace(body.Description),
		APIURL:        apiURL,
		Adapter:       adapter,
		AuthMethod:    authMethod,
		SystemToken:   systemToken,
		UserID:        strings.TrimSpace(body.UserID),
		AdapterConfig: adapterConfig,
		Enabled:       enabled,
	}
	created, errAdd := h.stations.Add(c.Request.Context(), station)
	if errAdd != nil {
		if errors.Is(errAdd, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "station already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create station failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"station": formatStationRow(created)})
}

// Get returns one station by id.
func (h *StationHandler) Get(c *gin.Context) {
	station, errGet := h.stations.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		if errors.Is(errGet, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get station failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"station": formatStationRow(station)})
}

// Update applies a partial update. Unknown fields are ignored.
func (h *StationHandler) Update(c *gin.Context) {
	var updates map[string]any
	if errBind := c.ShouldBindJSON(&updates); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	station, errUpdate := h.stations.Update(c.Request.Context(), c.Param("id"), updates)
	if errUpdate != nil {
		if errors.Is(errUpdate, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update station failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"station": formatStationRow(station)})
}

// Delete removes a station and its dependent records.
func (h *StationHandler) Delete(c *gin.Context) {
	if errDelete := h.stations.Delete(c.Request.Context(), c.Param("id")); errDelete != nil {
		if errors.Is(errDelete, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete station failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Export returns a portable snapshot of stations. The ids query parameter
// holds a comma separated list; when absent every station is exported.
func (h *StationHandler) Export(c *gin.Context) {
	var ids []string
	for _, id := range strings.Split(c.Query("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	export, errExport := h.stations.Export(c.Request.Context(), ids)
	if errExport != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export stations failed"})
		return
	}
	c.JSON(http.StatusOK, export)
}

type importStationsRequest struct {
	Data      *store.Export `json:"data"`      // Export document to merge.
	Overwrite bool          `json:"overwrite"` // Rewrite stations whose name already exists.
}

// Import merges an export document, matching stations by name.
func (h *StationHandler) Import(c *gin.Context) {
	var body importStationsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Data == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data is required"})
		return
	}
	imported, skipped, errImport := h.stations.Import(c.Request.Context(), body.Data, body.Overwrite)
	if errImport != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import stations failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}

// formatStationRow renders a station for API responses.
func formatStationRow(row *models.Station) gin.H {
	out := gin.H{
		"id":           row.ID,
		"name":         row.Name,
		"description":  row.Description,
		"api_url":      row.APIURL,
		"adapter":      row.Adapter,
		"auth_method":  row.AuthMethod,
		"system_token": row.SystemToken,
		"user_id":      row.UserID,
		"enabled":      row.Enabled,
		"created_at":   row.CreatedAt,
		"updated_at":   row.UpdatedAt,
	}
	if len(row.AdapterConfig) > 0 {
		out["adapter_config"] = json.RawMessage(row.AdapterConfig)
	}
	return out
}
