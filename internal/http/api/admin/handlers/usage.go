package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/RelayStationHub/internal/store"
	"github.com/router-for-me/RelayStationHub/internal/switcher"
)

// UsageHandler tracks which station configuration was last applied.
type UsageHandler struct {
	stations *store.StationStore // Backing station store.
	switcher *switcher.Switcher  // Settings coordinator, marks the live row.
}

// NewUsageHandler creates a UsageHandler.
func NewUsageHandler(stations *store.StationStore, sw *switcher.Switcher) *UsageHandler {
	return &UsageHandler{stations: stations, switcher: sw}
}

type recordUsageRequest struct {
	StationID string `json:"station_id"` // Station the configuration came from, required.
	BaseURL   string `json:"base_url"`   // Applied base URL.
	Token     string `json:"token"`      // Applied credential.
}

// List returns applied configurations newest first, joined with the owning
// station's current name. The row whose base URL and credential match the
// live settings document is flagged active.
func (h *UsageHandler) List(c *gin.Context) {
	statuses, errList := h.stations.UsageStatuses(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list usage failed"})
		return
	}
	env, errCurrent := h.switcher.Current()
	if errCurrent != nil {
		log.WithError(errCurrent).Warn("admin: read settings for usage statuses failed")
	} else {
		for i := range statuses {
			statuses[i].IsActive = env.Matches(statuses[i].BaseURL, statuses[i].Token)
		}
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// Record upserts the applied configuration for a station.
func (h *UsageHandler) Record(c *gin.Context) {
	var body recordUsageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.StationID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "station_id is required"})
		return
	}
	if errRecord := h.stations.RecordUsage(c.Request.Context(), body.StationID, body.BaseURL, body.Token); errRecord != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record usage failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}
