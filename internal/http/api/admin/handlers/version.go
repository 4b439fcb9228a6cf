package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is the build version, overridden at link time via
// -ldflags "-X .../handlers.Version=v1.2.3".
var Version = "dev"

// VersionHandler reports the build version.
type VersionHandler struct{}

// NewVersionHandler creates a VersionHandler.
func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// GetVersion returns the build version.
func (h *VersionHandler) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": Version})
}
