package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/router-for-me/RelayStationHub/internal/relay"
	"github.com/router-for-me/RelayStationHub/internal/service"
)

// StationOpsHandler proxies read and probe operations to a station's
// management API through its adapter.
type StationOpsHandler struct {
	service *service.StationService // Adapter dispatch over the station store.
}

// NewStationOpsHandler creates a StationOpsHandler.
func NewStationOpsHandler(service *service.StationService) *StationOpsHandler {
	return &StationOpsHandler{service: service}
}

// Info returns the station's status endpoint data.
func (h *StationOpsHandler) Info(c *gin.Context) {
	info, errInfo := h.service.StationInfo(c.Request.Context(), c.Param("id"))
	if errInfo != nil {
		respondRelayError(c, errInfo, "get station info failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"info": info})
}

// User returns the upstream account behind the station credential. The
// user_id query parameter overrides the station's configured account.
func (h *StationOpsHandler) User(c *gin.Context) {
	user, errUser := h.service.UserInfo(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("user_id")))
	if errUser != nil {
		respondRelayError(c, errUser, "get user info failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logs returns one page of the station's usage logs. Time bounds use the
// "2006-01-02T15:04" layout.
func (h *StationOpsHandler) Logs(c *gin.Context) {
	filters := &relay.LogFilters{
		StartTime: strings.TrimSpace(c.Query("start_time")),
		EndTime:   strings.TrimSpace(c.Query("end_time")),
		ModelName: strings.TrimSpace(c.Query("model_name")),
		Group:     strings.TrimSpace(c.Query("group")),
	}
	page := positiveIntQuery(c, "page", 1)
	pageSize := positiveIntQuery(c, "page_size", 10)

	logs, errLogs := h.service.Logs(c.Request.Context(), c.Param("id"), page, pageSize, filters)
	if errLogs != nil {
		respondRelayError(c, errLogs, "get station logs failed")
		return
	}
	c.JSON(http.StatusOK, logs)
}

// Test probes the station's connectivity. The probe outcome is reported
// in the body; only transport level failures use an error status.
func (h *StationOpsHandler) Test(c *gin.Context) {
	result, errTest := h.service.TestConnection(c.Request.Context(), c.Param("id"))
	if errTest != nil {
		respondRelayError(c, errTest, "connection test failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Endpoints returns the API endpoints the station advertises, falling back
// to a single entry built from the configured URL.
func (h *StationOpsHandler) Endpoints(c *gin.Context) {
	endpoints, errEndpoints := h.service.StationEndpoints(c.Request.Context(), c.Param("id"))
	if errEndpoints != nil {
		respondRelayError(c, errEndpoints, "get station endpoints failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints})
}

// Groups returns the token groups the station offers.
func (h *StationOpsHandler) Groups(c *gin.Context) {
	groups, errGroups := h.service.UserGroups(c.Request.Context(), c.Param("id"))
	if errGroups != nil {
		respondRelayError(c, errGroups, "get user groups failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
