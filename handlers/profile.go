package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/multimart/multimart/backend/go-services/internal/guard"
	"github.com/multimart/multimart/backend/go-services/internal/models"
	"github.com/multimart/multimart/backend/go-services/internal/storage"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
)

const maxAvatarBytes = 5 << 20

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	stores  guard.StoreFunc
	avatars storage.Avatars
	// URLTTL is the lifetime of presigned avatar URLs.
	URLTTL time.Duration
}

// NewProfileHandler creates a handler. avatars may be nil, which disables
// the avatar endpoints.
func NewProfileHandler(stores guard.StoreFunc, avatars storage.Avatars) *ProfileHandler {
	return &ProfileHandler{stores: stores, avatars: avatars, URLTTL: 15 * time.Minute}
}

// Register routes under /api/v1. Avatar routes require a complete profile.
func (h *ProfileHandler) Register(rg *gin.RouterGroup) {
	signedIn := rg.Group("", guard.Middleware(h.stores, false))
	signedIn.GET("/me", h.Me)
	signedIn.GET("/profile", h.Get)
	signedIn.PATCH("/profile", h.Patch)

	complete := rg.Group("", guard.Middleware(h.stores, true))
	complete.PUT("/profile/avatar", h.PutAvatar)
	complete.GET("/profile/avatar", h.GetAvatar)
}

func (h *ProfileHandler) Me(c *gin.Context) {
	snap, _ := guard.SessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"identity":            snap.Identity,
		"profile":             snap.Profile,
		"is_profile_complete": snap.IsProfileComplete(),
	})
}

func (h *ProfileHandler) Get(c *gin.Context) {
	snap, _ := guard.SessionFrom(c)
	if snap.Profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, snap.Profile)
}

// Patch changes only the provided fields.
func (h *ProfileHandler) Patch(c *gin.Context) {
	var f models.ProfileFields
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// the avatar is only set through the upload endpoint
	f.AvatarURL = nil
	if f.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}
	st := h.stores(c)
	if err := st.UpdateProfile(c.Request.Context(), f); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	snap := st.Current()
	c.JSON(http.StatusOK, gin.H{"profile": snap.Profile, "is_profile_complete": snap.IsProfileComplete()})
}

// PutAvatar accepts a multipart "avatar" image and stores it as uploaded.
func (h *ProfileHandler) PutAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage not configured"})
		return
	}
	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file required"})
		return
	}
	if fh.Size > maxAvatarBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar too large"})
		return
	}
	ct := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "avatar must be an image"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	snap, _ := guard.SessionFrom(c)
	key, err := h.avatars.Put(c.Request.Context(), snap.Identity.ID, f, fh.Size, ct)
	if err != nil {
		logger.Errorf("avatar upload for %s: %v", snap.Identity.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "avatar upload failed"})
		return
	}
	st := h.stores(c)
	if err := st.UpdateProfile(c.Request.Context(), models.ProfileFields{AvatarURL: &key}); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": key})
}

// GetAvatar returns a short-lived URL for the stored avatar.
func (h *ProfileHandler) GetAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage not configured"})
		return
	}
	snap, _ := guard.SessionFrom(c)
	if snap.Profile.AvatarURL == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no avatar"})
		return
	}
	u, err := h.avatars.URL(c.Request.Context(), snap.Profile.AvatarURL, h.URLTTL)
	if err != nil {
		if errors.Is(err, storage.ErrNoObject) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no avatar"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to sign avatar url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u, "expires_in": int(h.URLTTL.Seconds())})
}
