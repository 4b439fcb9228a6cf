package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/router-for-me/RelayStationHub/internal/switcher"
)

// ProfileHandler manages stored provider presets.
type ProfileHandler struct {
	switcher *switcher.Switcher // Owns the preset store and the settings file.
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(switcher *switcher.Switcher) *ProfileHandler {
	return &ProfileHandler{switcher: switcher}
}

// List returns every preset in file order.
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, errList := h.switcher.Profiles().List()
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list profiles failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// Create validates and stores a preset.
func (h *ProfileHandler) Create(c *gin.Context) {
	var body switcher.Profile
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errValidate := validateProfile(&body); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}
	foldProfileOptionals(&body)
	if errAdd := h.switcher.Profiles().Add(&body); errAdd != nil {
		if errors.Is(errAdd, switcher.ErrProfileExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "profile already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create profile failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": body})
}

// Get returns one preset by id.
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, errGet := h.switcher.Profiles().Get(c.Param("id"))
	if errGet != nil {
		if errors.Is(errGet, switcher.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get profile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Update replaces a preset. The path id wins over any id in the body.
func (h *ProfileHandler) Update(c *gin.Context) {
	var body switcher.Profile
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	body.ID = strings.TrimSpace(c.Param("id"))
	if errValidate := validateProfile(&body); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}
	foldProfileOptionals(&body)
	if errUpdate := h.switcher.Profiles().Update(&body); errUpdate != nil {
		if errors.Is(errUpdate, switcher.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": body})
}

// Delete removes a preset.
func (h *ProfileHandler) Delete(c *gin.Context) {
	if errDelete := h.switcher.Profiles().Delete(c.Param("id")); errDelete != nil {
		if errors.Is(errDelete, switcher.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete profile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Apply switches the settings file to a stored preset.
func (h *ProfileHandler) Apply(c *gin.Context) {
	profile, errApply := h.switcher.ApplyID(c.Request.Context(), c.Param("id"))
	if errApply != nil {
		if errors.Is(errApply, switcher.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		respondSwitchError(c, errApply, "apply profile failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"switched": true, "profile": profile})
}

func validateProfile(profile *switcher.Profile) error {
	if strings.TrimSpace(profile.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(profile.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(profile.BaseURL) == "" {
		return errors.New("base_url is required")
	}
	return nil
}

// foldProfileOptionals mirrors the store's normalization so the response
// body matches what was persisted.
func foldProfileOptionals(profile *switcher.Profile) {
	profile.AuthToken = blankToEmpty(profile.AuthToken)
	profile.APIKey = blankToEmpty(profile.APIKey)
	profile.Model = blankToEmpty(profile.Model)
	profile.SmallFastModel = blankToEmpty(profile.SmallFastModel)
}
