package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailroute/backend/internal/domain"
)

func TestCreateMailboxAnonymous(t *testing.T) {
	h := newRouterHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/mailboxes", strings.NewReader(`{"prefix":"hello"}`))
	req.Header.Set("Content-Type", "application/json")

	w := h.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var mailbox domain.Mailbox
	require.NoError(t, json.Unmarshal(data, &mailbox))
	assert.Equal(t, "hello@route.mail", mailbox.Address)
	assert.Nil(t, mailbox.UserID)
}

func TestCreateMailboxRejectsForeignDomain(t *testing.T) {
	h := newRouterHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/mailboxes", strings.NewReader(`{"prefix":"x","domain":"evil.example"}`))
	req.Header.Set("Content-Type", "application/json")

	w := h.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMailboxOwnershipEnforced(t *testing.T) {
	h := newRouterHarness(t)
	owner := "user-1"
	mailbox := h.saveMailbox(t, "owned@route.mail", &owner)

	// 匿名访问有属主的邮箱
	req := httptest.NewRequest(http.MethodGet, "/v1/mailboxes/"+mailbox.ID, nil)
	w := h.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 属主本人可以访问
	w = h.do(h.authedRequest(t, http.MethodGet, "/v1/mailboxes/"+mailbox.ID, "", "user-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	// 其他用户被拒绝
	w = h.do(h.authedRequest(t, http.MethodGet, "/v1/mailboxes/"+mailbox.ID, "", "user-2"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListMessagesAndDownloadAttachment(t *testing.T) {
	h := newRouterHarness(t)
	mailbox := h.saveMailbox(t, "box@route.mail", nil)

	// 通过入站管线投递一封带附件的邮件
	raw := strings.Join([]string{
		"From: alice@example.com",
		"To: box@route.mail",
		"Subject: with attachment",
		`Content-Type: multipart/mixed; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"see attached",
		"--b1",
		"Content-Type: application/octet-stream",
		`Content-Disposition: attachment; filename="data.bin"`,
		"Content-Transfer-Encoding: base64",
		"",
		"aGVsbG8gYnl0ZXM=",
		"--b1--",
	}, "\r\n")

	form := url.Values{}
	form.Set("recipient", "box@route.mail")
	form.Set("sender", "alice@example.com")
	form.Set("body", raw)

	req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, h.do(req).Code)

	// 列表可见
	w := h.do(httptest.NewRequest(http.MethodGet, "/v1/mailboxes/"+mailbox.ID+"/messages", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var messages []*domain.Message
	require.NoError(t, json.Unmarshal(data, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "with attachment", messages[0].Subject)

	// 详情带附件元数据
	w = h.do(httptest.NewRequest(http.MethodGet, "/v1/mailboxes/"+mailbox.ID+"/messages/"+messages[0].ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp = decodeResponse(t, w)
	data, err = json.Marshal(resp.Data)
	require.NoError(t, err)
	var detail domain.Message
	require.NoError(t, json.Unmarshal(data, &detail))
	require.Len(t, detail.Attachments, 1)

	// 附件按原始字节返回
	path := "/v1/mailboxes/" + mailbox.ID + "/messages/" + messages[0].ID + "/attachments/" + detail.Attachments[0].ID
	w = h.do(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "data.bin")
}

func TestDeleteMailboxCascades(t *testing.T) {
	h := newRouterHarness(t)
	mailbox := h.saveMailbox(t, "gone@route.mail", nil)

	w := h.do(httptest.NewRequest(http.MethodDelete, "/v1/mailboxes/"+mailbox.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/v1/mailboxes/"+mailbox.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
