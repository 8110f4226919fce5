package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/superwave/maildesk/interfaces"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/internal/utils"
	"github.com/superwave/maildesk/services/responder"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SentHandler serves the send-record audit trail and the SMTP probes.
type SentHandler struct {
	log        logger.Logger
	responder  *responder.ResponderService
	dispatcher interfaces.TransferDispatcher
}

func NewSentHandler(log logger.Logger, responderService *responder.ResponderService, dispatcher interfaces.TransferDispatcher) *SentHandler {
	return &SentHandler{
		log:        log,
		responder:  responderService,
		dispatcher: dispatcher,
	}
}

func (h *SentHandler) History() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SentHandler.History", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		limit := defaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > maxHistoryLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
				return
			}
			limit = parsed
		}

		offset := 0
		if raw := c.Query("offset"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
				return
			}
			offset = parsed
		}

		successOnly := c.Query("successOnly") == "true"

		records, err := h.responder.SendHistory(ctx, utils.GetUserIDFromContext(ctx), limit, offset, successOnly)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if records == nil {
			records = []*models.SendRecord{}
		}

		c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
	}
}

func (h *SentHandler) GetRecord() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SentHandler.GetRecord", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		record, err := h.responder.GetSendRecord(ctx, utils.GetUserIDFromContext(ctx), c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, record)
	}
}

func (h *SentHandler) Stats() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SentHandler.Stats", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		stats, err := h.responder.SendStats(ctx, utils.GetUserIDFromContext(ctx))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// TestConnection probes the outbound SMTP relay without sending anything.
func (h *SentHandler) TestConnection() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SentHandler.TestConnection", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		ok, message := h.dispatcher.TestConnection(ctx)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "message": message})
	}
}
