package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	appErrors "github.com/superwave/maildesk/internal/errors"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/internal/utils"
	"github.com/superwave/maildesk/services/responder"
)

// ResponsesHandler covers response templates and their attachments to
// inbound messages.
type ResponsesHandler struct {
	log       logger.Logger
	responder *responder.ResponderService
}

func NewResponsesHandler(log logger.Logger, responderService *responder.ResponderService) *ResponsesHandler {
	return &ResponsesHandler{
		log:       log,
		responder: responderService,
	}
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErrors.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
	case errors.Is(err, appErrors.ErrAttachmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
	case errors.Is(err, appErrors.ErrSendRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "send record not found"})
	case errors.Is(err, appErrors.ErrAttachmentExists):
		c.JSON(http.StatusConflict, gin.H{"error": "template already attached to this email"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *ResponsesHandler) CreateTemplate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.CreateTemplate", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var input responder.TemplateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		template, err := h.responder.CreateTemplate(ctx, utils.GetUserIDFromContext(ctx), input)
		if err != nil {
			tracing.TraceErr(span, err)
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, template)
	}
}

func (h *ResponsesHandler) ListTemplates() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.ListTemplates", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		templates, err := h.responder.ListTemplates(ctx, utils.GetUserIDFromContext(ctx))
		if err != nil {
			tracing.TraceErr(span, err)
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"templates": templates, "count": len(templates)})
	}
}

func (h *ResponsesHandler) GetTemplate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.GetTemplate", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		template, err := h.responder.GetTemplate(ctx, utils.GetUserIDFromContext(ctx), c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, template)
	}
}

func (h *ResponsesHandler) UpdateTemplate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.UpdateTemplate", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var input responder.TemplateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		template, err := h.responder.UpdateTemplate(ctx, utils.GetUserIDFromContext(ctx), c.Param("id"), input)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, template)
	}
}

func (h *ResponsesHandler) DeleteTemplate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.DeleteTemplate", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		if err := h.responder.DeleteTemplate(ctx, utils.GetUserIDFromContext(ctx), c.Param("id")); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "template deleted", "id": c.Param("id")})
	}
}

// AttachResponse links a template to an email and, for auto-send
// templates, dispatches the reply. The attach result is reported even when
// the dispatch fails; the send outcome lives in the send history.
func (h *ResponsesHandler) AttachResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.AttachResponse", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req responder.AttachRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		attachment, err := h.responder.AttachResponse(ctx, utils.GetUserIDFromContext(ctx), req)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, attachment)
	}
}

// ListAttachments filters by emailUid or templateId when given; without
// either it returns everything the user attached.
func (h *ResponsesHandler) ListAttachments() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.ListAttachments", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		userID := utils.GetUserIDFromContext(ctx)

		var (
			attachments interface{}
			err         error
		)
		switch {
		case c.Query("emailUid") != "":
			attachments, err = h.responder.ListAttachmentsForEmail(ctx, userID, c.Query("emailUid"))
		case c.Query("templateId") != "":
			attachments, err = h.responder.ListAttachmentsForTemplate(ctx, userID, c.Query("templateId"))
		default:
			attachments, err = h.responder.ListAttachments(ctx, userID)
		}
		if err != nil {
			tracing.TraceErr(span, err)
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"attachments": attachments})
	}
}

func (h *ResponsesHandler) DeleteAttachment() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ResponsesHandler.DeleteAttachment", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		if err := h.responder.DeleteAttachment(ctx, utils.GetUserIDFromContext(ctx), c.Param("id")); err != nil {
			respondServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "attachment removed", "id": c.Param("id")})
	}
}
