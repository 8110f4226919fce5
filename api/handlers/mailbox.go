package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/internal/crypto"
	appErrors "github.com/superwave/maildesk/internal/errors"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/internal/models"
	"github.com/superwave/maildesk/internal/tracing"
	"github.com/superwave/maildesk/services/imap"
	"github.com/superwave/maildesk/services/parser"
)

const (
	defaultFetchLimit = 20
	maxFetchLimit     = 100
)

// MailboxHandler exposes the configured IMAP mailbox over REST. Every
// request opens its own short-lived session.
type MailboxHandler struct {
	log       logger.Logger
	cfg       *config.IMAPConfig
	encryptor *crypto.Encryptor
	parser    *parser.ParserService
}

func NewMailboxHandler(log logger.Logger, cfg *config.IMAPConfig, encryptor *crypto.Encryptor, parserService *parser.ParserService) *MailboxHandler {
	return &MailboxHandler{
		log:       log,
		cfg:       cfg,
		encryptor: encryptor,
		parser:    parserService,
	}
}

// testConnectionRequest optionally overrides the configured mailbox. All
// fields must be supplied together; an empty body tests the configured one.
type testConnectionRequest struct {
	Server   string `json:"server"`
	Port     int    `json:"port"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *MailboxHandler) session() (*imap.MailboxSession, error) {
	creds, err := imap.ResolveCredentials(h.cfg, h.encryptor)
	if err != nil {
		return nil, err
	}
	return imap.NewMailboxSession(h.log, creds, h.parser), nil
}

func (h *MailboxHandler) credentialsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErrors.ErrMailboxNotConfigured):
		c.JSON(http.StatusConflict, gin.H{"error": "mailbox is not configured"})
	case errors.Is(err, appErrors.ErrSecretUndecryptable):
		c.JSON(http.StatusConflict, gin.H{"error": "mailbox password cannot be decrypted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// TestConnection checks that the mailbox accepts a login. An optional body
// with explicit credentials tests those instead of the configured mailbox.
func (h *MailboxHandler) TestConnection() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "MailboxHandler.TestConnection", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var session *imap.MailboxSession
		email := h.cfg.Email

		var req testConnectionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if req.Email != "" {
			creds := models.MailboxCredentials{
				Server:   req.Server,
				Port:     req.Port,
				Email:    req.Email,
				Password: req.Password,
			}
			email = req.Email
			session = imap.NewMailboxSession(h.log, creds, h.parser)
		} else {
			var err error
			session, err = h.session()
			if err != nil {
				tracing.TraceErr(span, err)
				h.credentialsError(c, err)
				return
			}
		}

		ok, message, detail := session.TestConnection(ctx)
		c.JSON(http.StatusOK, gin.H{
			"success": ok,
			"message": message,
			"email":   email,
			"detail":  detail,
		})
	}
}

// ListFolders returns the folder hierarchy of the configured mailbox.
func (h *MailboxHandler) ListFolders() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "MailboxHandler.ListFolders", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		session, err := h.session()
		if err != nil {
			tracing.TraceErr(span, err)
			h.credentialsError(c, err)
			return
		}

		ok, message := session.Connect(ctx)
		if !ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": message})
			return
		}
		defer session.Disconnect()

		folders := session.ListFolders(ctx)
		c.JSON(http.StatusOK, gin.H{"folders": folders, "count": len(folders)})
	}
}

// FetchMessages returns decoded messages from one folder, newest first.
// Query params: folder (default INBOX), limit, criteria (IMAP SEARCH
// syntax), includeBody.
func (h *MailboxHandler) FetchMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "MailboxHandler.FetchMessages", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		folder := c.DefaultQuery("folder", "INBOX")
		criteria := c.Query("criteria")
		includeBody := c.DefaultQuery("includeBody", "true") == "true"

		limit := defaultFetchLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > maxFetchLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
				return
			}
			limit = parsed
		}

		session, err := h.session()
		if err != nil {
			tracing.TraceErr(span, err)
			h.credentialsError(c, err)
			return
		}

		ok, message := session.Connect(ctx)
		if !ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": message})
			return
		}
		defer session.Disconnect()

		messages := session.FetchMessages(ctx, folder, limit, criteria, includeBody)
		if messages == nil {
			messages = []*models.DecodedMessage{}
		}

		c.JSON(http.StatusOK, gin.H{
			"folder":   folder,
			"count":    len(messages),
			"messages": messages,
		})
	}
}
