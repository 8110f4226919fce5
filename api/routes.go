package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/superwave/maildesk/api/handlers"
	"github.com/superwave/maildesk/api/middleware"
	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, cfg *config.Config, log logger.Logger, s *services.Services) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(cfg, log, s)

	// Health check endpoint (no auth)
	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-API-KEY",
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	// API group with version, auth, and user scoping
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.UserIDMiddleware())
	{
		// Inbound mailbox endpoints
		mailbox := api.Group("/mailbox")
		{
			mailbox.POST("/test-connection", apiHandlers.Mailbox.TestConnection())
			mailbox.GET("/folders", apiHandlers.Mailbox.ListFolders())
			mailbox.GET("/messages", apiHandlers.Mailbox.FetchMessages())
		}

		// Response template endpoints
		templates := api.Group("/templates")
		{
			templates.POST("", apiHandlers.Responses.CreateTemplate())
			templates.GET("", apiHandlers.Responses.ListTemplates())
			templates.GET("/:id", apiHandlers.Responses.GetTemplate())
			templates.PUT("/:id", apiHandlers.Responses.UpdateTemplate())
			templates.DELETE("/:id", apiHandlers.Responses.DeleteTemplate())
		}

		// Template-to-email attachment endpoints
		attachments := api.Group("/attachments")
		{
			attachments.POST("", apiHandlers.Responses.AttachResponse())
			attachments.GET("", apiHandlers.Responses.ListAttachments())
			attachments.DELETE("/:id", apiHandlers.Responses.DeleteAttachment())
		}

		// Outbound audit trail endpoints
		sent := api.Group("/sent")
		{
			sent.GET("", apiHandlers.Sent.History())
			sent.GET("/stats", apiHandlers.Sent.Stats())
			sent.GET("/:id", apiHandlers.Sent.GetRecord())
			sent.POST("/test-connection", apiHandlers.Sent.TestConnection())
		}
	}
}
