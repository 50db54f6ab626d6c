package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	jwtpkg "mailroute/backend/internal/auth/jwt"
	"mailroute/backend/internal/config"
	"mailroute/backend/internal/dnscheck"
	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/health"
	"mailroute/backend/internal/mailer"
	"mailroute/backend/internal/monitoring"
	"mailroute/backend/internal/service"
	"mailroute/backend/internal/storage/memory"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

var (
	testMetrics     *monitoring.Metrics
	testMetricsOnce bool
)

// sharedMetrics 复用同一指标实例，避免重复注册到默认 registry。
func sharedMetrics() *monitoring.Metrics {
	if !testMetricsOnce {
		testMetrics = monitoring.NewMetrics()
		testMetricsOnce = true
	}
	return testMetrics
}

func testRouterConfig() *config.Config {
	return &config.Config{
		Mailbox: config.MailboxConfig{
			SystemDomains: []string{"route.mail"},
			DefaultTTL:    time.Hour,
			PremiumTTL:    24 * 365 * time.Hour,
		},
		Ingest:  config.IngestConfig{MaxMessageBytes: 1024 * 1024},
		Forward: config.ForwardConfig{Provider: "stdout", Timeout: time.Second},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
		JWT: config.JWTConfig{
			Secret:        testJWTSecret,
			Issuer:        "mailroute-test",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
		},
	}
}

type routerHarness struct {
	router *gin.Engine
	store  domain.Store
	jwt    *jwtpkg.Manager
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testRouterConfig()
	log := zap.NewNop()
	store := memory.NewStore()

	resolver := service.NewResolverService(store, cfg)
	mailboxes := service.NewMailboxService(store, cfg)
	messages := service.NewMessageService(store)
	forwarder := service.NewForwardService(mailer.NewStdoutProvider(log), &cfg.Forward, log)
	ingest := service.NewIngestService(store, resolver, mailboxes, forwarder, cfg, log)

	verifier := dnscheck.New(dnscheck.Config{
		MXHosts:         []string{"mx.route.mail"},
		SPFInclude:      "route.mail",
		MailCNAMETarget: "mail.route.mail",
		LookupTimeout:   time.Second,
	}, log)
	domains := service.NewCustomDomainService(store, verifier, cfg, log)

	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	router := NewRouter(RouterDependencies{
		Config:         cfg,
		IngestService:  ingest,
		MailboxService: mailboxes,
		MessageService: messages,
		DomainService:  domains,
		JWTManager:     jwtManager,
		Metrics:        sharedMetrics(),
		Health:         health.NewChecker(store, log),
		Logger:         log,
	})

	return &routerHarness{router: router, store: store, jwt: jwtManager}
}

func (h *routerHarness) saveMailbox(t *testing.T, address string, userID *string) *domain.Mailbox {
	t.Helper()
	expires := time.Now().UTC().Add(time.Hour)
	mailbox := &domain.Mailbox{
		ID:        uuid.NewString(),
		Address:   address,
		Domain:    domain.AddressDomain(address),
		Type:      domain.MailboxTypeTemporary,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: &expires,
	}
	require.NoError(t, h.store.SaveMailbox(mailbox))
	return mailbox
}

func (h *routerHarness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func rawEmail(from, to, subject, body string) string {
	return strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
}

func TestInboundFormEncoded(t *testing.T) {
	h := newRouterHarness(t)
	h.saveMailbox(t, "box@route.mail", nil)

	form := url.Values{}
	form.Set("recipient", "box@route.mail")
	form.Set("sender", "alice@example.com")
	form.Set("body", rawEmail("alice@example.com", "box@route.mail", "hello", "hi there"))

	req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)

	// 邮件已入库
	mailbox, err := h.store.GetMailboxByAddress("box@route.mail")
	require.NoError(t, err)
	stored, err := h.store.ListMessages(mailbox.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Subject)
}

func TestInboundJSON(t *testing.T) {
	h := newRouterHarness(t)
	h.saveMailbox(t, "box@route.mail", nil)

	payload := map[string]string{
		"to":   "box@route.mail",
		"from": "alice@example.com",
		"body": rawEmail("alice@example.com", "box@route.mail", "json path", "hi"),
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")

	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestInboundUnsupportedContentType(t *testing.T) {
	h := newRouterHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "application/xml")

	w := h.do(req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestInboundMissingRecipient(t *testing.T) {
	h := newRouterHarness(t)

	form := url.Values{}
	form.Set("sender", "alice@example.com")
	form.Set("body", "raw")

	req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := h.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInboundUnknownRecipient(t *testing.T) {
	h := newRouterHarness(t)

	form := url.Values{}
	form.Set("recipient", "nobody@route.mail")
	form.Set("sender", "alice@example.com")
	form.Set("body", rawEmail("alice@example.com", "nobody@route.mail", "hi", "hi"))

	req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := h.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInboundDuplicateDelivery(t *testing.T) {
	h := newRouterHarness(t)
	h.saveMailbox(t, "box@route.mail", nil)

	send := func() *httptest.ResponseRecorder {
		form := url.Values{}
		form.Set("recipient", "box@route.mail")
		form.Set("sender", "alice@example.com")
		form.Set("body", rawEmail("alice@example.com", "box@route.mail", "once", "hi"))
		form.Set("message_id", "upstream-1")

		req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return h.do(req)
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)

	second := send()
	require.Equal(t, http.StatusOK, second.Code)

	// 重复投递不产生第二封邮件
	mailbox, err := h.store.GetMailboxByAddress("box@route.mail")
	require.NoError(t, err)
	stored, err := h.store.ListMessages(mailbox.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestInboundRawMessageBody(t *testing.T) {
	h := newRouterHarness(t)
	h.saveMailbox(t, "box@route.mail", nil)

	raw := rawEmail("alice@example.com", "box@route.mail", "raw rfc822", "hi")
	req := httptest.NewRequest(http.MethodPost, "/v1/inbound?recipient=box@route.mail", strings.NewReader(raw))
	req.Header.Set("Content-Type", "message/rfc822")

	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
