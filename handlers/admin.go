package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/multimart/multimart/backend/go-services/internal/models"
	"github.com/multimart/multimart/backend/go-services/internal/profiles"
	"github.com/multimart/multimart/backend/go-services/internal/tokens"
	"github.com/multimart/multimart/backend/go-services/pkg/logger"
)

// Revoker blacklists bearer tokens.
type Revoker interface {
	Enabled() bool
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

// AdminHandler exposes the administrative profile flags.
type AdminHandler struct {
	profiles *profiles.Service
	revoker  Revoker
	guards   []gin.HandlerFunc
}

// NewAdminHandler takes the middleware chain that authenticates admins.
func NewAdminHandler(p *profiles.Service, r Revoker, guards ...gin.HandlerFunc) *AdminHandler {
	return &AdminHandler{profiles: p, revoker: r, guards: guards}
}

// Register routes under /admin
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/admin", h.guards...)
	a.GET("/profiles/:identity_id", h.GetProfile)
	a.PATCH("/profiles/:identity_id", h.SetFlags)
	a.POST("/tokens/revoke", h.Revoke)
}

func (h *AdminHandler) GetProfile(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), c.Param("identity_id"))
	if err != nil {
		logger.Errorf("admin get profile: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) SetFlags(c *gin.Context) {
	var flags models.ProfileFlags
	if err := c.ShouldBindJSON(&flags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if flags.SellerVerified == nil && flags.IsActive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no flags to update"})
		return
	}
	p, err := h.profiles.SetFlags(c.Request.Context(), c.Param("identity_id"), flags)
	if err != nil {
		logger.Errorf("admin set flags: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	logger.Infof("admin %s set flags on profile of %s", claimSub(c), p.UserID)
	c.JSON(http.StatusOK, p)
}

// Revoke blacklists a bearer token until it expires. Without a token in the
// body the caller's own token is revoked.
func (h *AdminHandler) Revoke(c *gin.Context) {
	if h.revoker == nil || !h.revoker.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "revocation store not configured"})
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		req.Token = c.GetString("bearer")
	}
	if req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	exp, err := tokens.ExpiresAt(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token", "details": err.Error()})
		return
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		c.JSON(http.StatusOK, gin.H{"revoked": false, "reason": "token already expired"})
		return
	}
	if err := h.revoker.Revoke(c.Request.Context(), req.Token, ttl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true, "expires_in": int(ttl.Seconds())})
}

func claimSub(c *gin.Context) string {
	v, _ := c.Get("claims")
	if cm, ok := v.(map[string]interface{}); ok {
		if sub, ok := cm["sub"].(string); ok {
			return sub
		}
	}
	return "unknown"
}
