package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/router-for-me/RelayStationHub/internal/switcher"
)

// SwitchHandler rewrites the managed provider keys of the Claude Code
// settings file.
type SwitchHandler struct {
	switcher *switcher.Switcher // Settings rewriter and session supervisor.
}

// NewSwitchHandler creates a SwitchHandler.
func NewSwitchHandler(switcher *switcher.Switcher) *SwitchHandler {
	return &SwitchHandler{switcher: switcher}
}

type switchRequest struct {
	ID             string `json:"id"`               // Optional preset ID, reported by detection.
	Name           string `json:"name"`             // Display name, required.
	BaseURL        string `json:"base_url"`         // Provider base URL, required.
	AuthToken      string `json:"auth_token"`       // Optional auth token credential.
	APIKey         string `json:"api_key"`          // Optional API key credential, wins over auth_token.
	Model          string `json:"model"`            // Optional model pin.
	SmallFastModel string `json:"small_fast_model"` // Optional small model pin.
}

// Switch points the settings file at the given provider and restarts live
// sessions.
func (h *SwitchHandler) Switch(c *gin.Context) {
	var body switchRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if strings.TrimSpace(body.BaseURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base_url is required"})
		return
	}

	profile := &switcher.Profile{
		ID:             strings.TrimSpace(body.ID),
		Name:           body.Name,
		BaseURL:        body.BaseURL,
		AuthToken:      blankToEmpty(body.AuthToken),
		APIKey:         blankToEmpty(body.APIKey),
		Model:          blankToEmpty(body.Model),
		SmallFastModel: blankToEmpty(body.SmallFastModel),
	}
	if errApply := h.switcher.Apply(c.Request.Context(), profile); errApply != nil {
		respondSwitchError(c, errApply, "switch provider failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"switched": true})
}

// Clear removes every managed key and restarts live sessions.
func (h *SwitchHandler) Clear(c *gin.Context) {
	if errClear := h.switcher.Clear(c.Request.Context()); errClear != nil {
		respondSwitchError(c, errClear, "clear provider failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// Current reports the managed keys as they stand plus the preset they
// match: a preset ID, "custom", or empty when nothing is managed.
func (h *SwitchHandler) Current(c *gin.Context) {
	env, errCurrent := h.switcher.Current()
	if errCurrent != nil {
		respondSwitchError(c, errCurrent, "read settings failed")
		return
	}
	profileID, errDetect := h.switcher.Detect()
	if errDetect != nil {
		respondSwitchError(c, errDetect, "detect provider failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"env": env, "profile_id": profileID})
}

// respondSwitchError maps a settings rewrite failure onto its HTTP status.
// A corrupt settings file keeps its path in the message so the user can
// repair it by hand.
func respondSwitchError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, switcher.ErrCorruptSettings) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// blankToEmpty folds whitespace-only optionals to absent, keeping the
// original bytes otherwise.
func blankToEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return value
}
