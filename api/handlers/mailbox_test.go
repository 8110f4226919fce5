package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superwave/maildesk/config"
	"github.com/superwave/maildesk/internal/logger"
	"github.com/superwave/maildesk/services/parser"
)

func newTestMailboxHandler(cfg *config.IMAPConfig) *MailboxHandler {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", DevMode: true})
	log.InitLogger()
	return NewMailboxHandler(log, cfg, nil, parser.NewParserService(log))
}

func performRequest(handler gin.HandlerFunc, method, target string, body io.Reader) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, body)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	handler(c)
	return w
}

func TestFetchMessagesRejectsLimitOutOfBounds(t *testing.T) {
	h := newTestMailboxHandler(&config.IMAPConfig{})

	for _, limit := range []string{"0", "-3", "101", "5000", "abc"} {
		w := performRequest(h.FetchMessages(), "GET", "/v1/mailbox/messages?limit="+limit, nil)

		assert.Equal(t, 400, w.Code, "limit=%s", limit)
		assert.Contains(t, w.Body.String(), "limit must be between 1 and 100", "limit=%s", limit)
	}
}

func TestFetchMessagesAcceptsBoundaryLimit(t *testing.T) {
	// limit 100 passes validation; the unconfigured mailbox is reported
	// afterwards, proving the request got past the limit check
	h := newTestMailboxHandler(&config.IMAPConfig{})

	w := performRequest(h.FetchMessages(), "GET", "/v1/mailbox/messages?limit=100", nil)

	assert.Equal(t, 409, w.Code)
	assert.Contains(t, w.Body.String(), "mailbox is not configured")
}

func TestConnectionResponseEchoesTestedAddress(t *testing.T) {
	h := newTestMailboxHandler(&config.IMAPConfig{})

	body := `{"server":"127.0.0.1","port":1,"email":"probe@example.com","password":"secret"}`
	w := performRequest(h.TestConnection(), "POST", "/v1/mailbox/test-connection", strings.NewReader(body))

	require.Equal(t, 200, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "probe@example.com", resp["email"])
	assert.NotEmpty(t, resp["message"])
	assert.Contains(t, resp, "detail")
}
