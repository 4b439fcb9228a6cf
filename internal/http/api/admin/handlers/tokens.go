package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/router-for-me/RelayStationHub/internal/relay"
	"github.com/router-for-me/RelayStationHub/internal/service"
)

// TokenHandler manages API tokens on a station through its adapter.
type TokenHandler struct {
	service *service.StationService // Adapter dispatch over the station store.
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(service *service.StationService) *TokenHandler {
	return &TokenHandler{service: service}
}

// List returns one page of the station's tokens.
func (h *TokenHandler) List(c *gin.Context) {
	page := positiveIntQuery(c, "page", 1)
	size := positiveIntQuery(c, "size", 10)

	tokens, errList := h.service.ListTokens(c.Request.Context(), c.Param("id"), page, size)
	if errList != nil {
		respondRelayError(c, errList, "list tokens failed")
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// Create provisions a token on the station. Unset optionals fall back to
// the station defaults.
func (h *TokenHandler) Create(c *gin.Context) {
	var body relay.CreateTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	token, errCreate := h.service.CreateToken(c.Request.Context(), c.Param("id"), &body)
	if errCreate != nil {
		respondRelayError(c, errCreate, "create token failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// Update forwards the set fields of a partial token update to the station.
func (h *TokenHandler) Update(c *gin.Context) {
	var body relay.UpdateTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	token, errUpdate := h.service.UpdateToken(c.Request.Context(), c.Param("id"), c.Param("token_id"), &body)
	if errUpdate != nil {
		respondRelayError(c, errUpdate, "update token failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Delete removes a token from the station.
func (h *TokenHandler) Delete(c *gin.Context) {
	if errDelete := h.service.DeleteToken(c.Request.Context(), c.Param("id"), c.Param("token_id")); errDelete != nil {
		respondRelayError(c, errDelete, "delete token failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Enable turns a token on.
func (h *TokenHandler) Enable(c *gin.Context) {
	h.toggle(c, true)
}

// Disable turns a token off.
func (h *TokenHandler) Disable(c *gin.Context) {
	h.toggle(c, false)
}

func (h *TokenHandler) toggle(c *gin.Context, enabled bool) {
	token, errToggle := h.service.ToggleToken(c.Request.Context(), c.Param("id"), c.Param("token_id"), enabled)
	if errToggle != nil {
		respondRelayError(c, errToggle, "toggle token failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
