package allegrosync

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fakturo/invoices_backend/config"
	"github.com/fakturo/invoices_backend/models"
	"github.com/fakturo/invoices_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

// RegisterRoutes mounts the integration endpoints under the given group.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/integrations", s.handleListIntegrations)
	rg.GET("/integrations/connect", s.handleConnect)
	rg.GET("/integrations/callback", s.handleOAuthCallback)
	rg.POST("/integrations/:id/disconnect", s.handleDisconnect)
	rg.POST("/integrations/:id/reactivate", s.handleReactivate)
	rg.PUT("/integrations/:id/settings", s.handleUpdateSettings)
	rg.POST("/integrations/:id/sync", s.handleTriggerSync)
}

// resolveIdentity maps the session username to the tenant and user id. Returns
// false after writing the error response.
func resolveIdentity(c *gin.Context) (string, int, bool) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", 0, false
	}
	user, err := models.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", 0, false
	}
	return user.BusinessId, user.ID, true
}

func (s *Service) handleListIntegrations(c *gin.Context) {
	businessId, userId, ok := resolveIdentity(c)
	if !ok {
		return
	}
	ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
	items, err := models.ListIntegrationsForUser(ctx, userId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list integrations"})
		return
	}
	resp := make([]IntegrationResponse, 0, len(items))
	for _, integ := range items {
		resp = append(resp, ToIntegrationResponse(integ))
	}
	c.JSON(http.StatusOK, gin.H{"integrations": resp})
}

func (s *Service) handleConnect(c *gin.Context) {
	businessId, userId, ok := resolveIdentity(c)
	if !ok {
		return
	}
	authorizeURL, err := s.AuthorizeURL(businessId, userId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build authorize url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorizeUrl": authorizeURL})
}

func (s *Service) handleOAuthCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}
	businessId, userId, err := s.decodeOAuthState(state)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
	integ, err := s.CompleteOAuth(ctx, businessId, userId, code)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"module":   "allegrosync",
			"funcName": "handleOAuthCallback",
			"userId":   userId,
		}).Errorf("oauth completion failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to link allegro account"})
		return
	}
	c.JSON(http.StatusOK, ToIntegrationResponse(integ))
}

func (s *Service) handleDisconnect(c *gin.Context) {
	integ, ctx, ok := s.ownedIntegration(c)
	if !ok {
		return
	}
	if err := s.Disconnect(ctx, integ.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (s *Service) handleReactivate(c *gin.Context) {
	integ, ctx, ok := s.ownedIntegration(c)
	if !ok {
		return
	}
	if err := s.Reactivate(ctx, integ.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reactivate"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

func (s *Service) handleUpdateSettings(c *gin.Context) {
	integ, ctx, ok := s.ownedIntegration(c)
	if !ok {
		return
	}
	var settings Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}
	if err := validate.Struct(settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	updated, err := s.UpdateSettings(ctx, integ.ID, settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}
	c.JSON(http.StatusOK, ToIntegrationResponse(updated))
}

// handleTriggerSync kicks off a retrying sync in the background and returns
// immediately. The per-integration lock keeps concurrent triggers from
// overlapping with the scheduler.
func (s *Service) handleTriggerSync(c *gin.Context) {
	integ, _, ok := s.ownedIntegration(c)
	if !ok {
		return
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())

	go func() {
		ctx := context.Background()
		if correlationId != "" {
			ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		}
		ctx, cancel := context.WithTimeout(ctx, 12*time.Hour)
		defer cancel()
		s.runLocked(ctx, integ.ID)
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "sync started"})
}

// ownedIntegration loads the path integration and checks it belongs to the
// caller. Returns the tenant-scoped request context alongside.
func (s *Service) ownedIntegration(c *gin.Context) (*models.Integration, context.Context, bool) {
	businessId, userId, ok := resolveIdentity(c)
	if !ok {
		return nil, nil, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid integration id"})
		return nil, nil, false
	}
	ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
	integ, err := s.store.Get(ctx, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "integration not found"})
		return nil, nil, false
	}
	if integ.BusinessId != businessId || integ.UserId != userId {
		config.GetLogger().WithFields(logrus.Fields{
			"module":        "allegrosync",
			"funcName":      "ownedIntegration",
			"integrationId": integ.ID,
			"userId":        userId,
		}).Warn("integration access denied")
		c.JSON(http.StatusNotFound, gin.H{"error": "integration not found"})
		return nil, nil, false
	}
	return integ, ctx, true
}
