package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/router-for-me/RelayStationHub/internal/relay"
	"github.com/router-for-me/RelayStationHub/internal/store"
)

// respondRelayError maps an adapter call failure onto its HTTP status:
// unknown stations 404, rejected input 400, operations a custom station
// cannot serve 501, upstream failures 502 with the upstream status in the
// body. Anything untyped becomes a 500 with the fallback message.
func respondRelayError(c *gin.Context, err error, fallback string) {
	var upstream *relay.UpstreamError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
	case errors.Is(err, relay.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, relay.ErrUnsupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.As(err, &upstream):
		payload := gin.H{"error": upstream.Error()}
		if upstream.StatusCode > 0 {
			payload["upstream_status"] = upstream.StatusCode
		}
		c.JSON(http.StatusBadGateway, payload)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// positiveIntQuery parses a positive integer query parameter, falling back
// when the parameter is absent or malformed.
func positiveIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, errParse := strconv.Atoi(raw)
	if errParse != nil || value <= 0 {
		return fallback
	}
	return value
}
