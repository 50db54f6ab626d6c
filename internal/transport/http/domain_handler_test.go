package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *routerHarness) authToken(t *testing.T, userID string, isAdmin bool) string {
	t.Helper()
	pair, err := h.jwt.GenerateTokenPair(userID, isAdmin)
	require.NoError(t, err)
	return pair.AccessToken
}

func (h *routerHarness) authedRequest(t *testing.T, method, path, body, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.authToken(t, userID, false))
	return req
}

func TestAddDomainRequiresAuth(t *testing.T) {
	h := newRouterHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/domains", strings.NewReader(`{"domain":"corp.example"}`))
	req.Header.Set("Content-Type", "application/json")

	w := h.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddAndListDomains(t *testing.T) {
	h := newRouterHarness(t)

	w := h.do(h.authedRequest(t, http.MethodPost, "/v1/domains", `{"domain":"corp.example"}`, "user-1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeResponse(t, w)
	assert.Equal(t, CodeCreated, resp.Code)

	// 返回待配置的验证记录
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var created domainResponse
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "corp.example", created.Domain.Domain)
	assert.NotEmpty(t, created.Records)

	w = h.do(h.authedRequest(t, http.MethodGet, "/v1/domains", "", "user-1"))
	require.Equal(t, http.StatusOK, w.Code)

	// 其他用户看不到
	w = h.do(h.authedRequest(t, http.MethodGet, "/v1/domains/"+created.Domain.ID, "", "user-2"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddDomainRejectsInvalid(t *testing.T) {
	h := newRouterHarness(t)

	t.Run("域名格式无效", func(t *testing.T) {
		w := h.do(h.authedRequest(t, http.MethodPost, "/v1/domains", `{"domain":"not a domain"}`, "user-1"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("域名重复", func(t *testing.T) {
		w := h.do(h.authedRequest(t, http.MethodPost, "/v1/domains", `{"domain":"dup.example"}`, "user-1"))
		require.Equal(t, http.StatusCreated, w.Code)

		w = h.do(h.authedRequest(t, http.MethodPost, "/v1/domains", `{"domain":"dup.example"}`, "user-2"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestDeleteDomainOwnership(t *testing.T) {
	h := newRouterHarness(t)

	w := h.do(h.authedRequest(t, http.MethodPost, "/v1/domains", `{"domain":"corp.example"}`, "user-1"))
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var created domainResponse
	require.NoError(t, json.Unmarshal(data, &created))

	w = h.do(h.authedRequest(t, http.MethodDelete, "/v1/domains/"+created.Domain.ID, "", "user-2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(h.authedRequest(t, http.MethodDelete, "/v1/domains/"+created.Domain.ID, "", "user-1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(h.authedRequest(t, http.MethodGet, "/v1/domains/"+created.Domain.ID, "", "user-1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
