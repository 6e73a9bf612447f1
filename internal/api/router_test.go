package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/api/admin"
	"helpdesk/internal/api/apis"
	"helpdesk/internal/api/handler"
	"helpdesk/internal/constants"
	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/types"
	"helpdesk/pkg/logger"
	"helpdesk/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = types.RegisterValidators()
}

type roleAuth struct {
	role string
}

func (a roleAuth) Authenticate(ctx context.Context, bearer string) (model.Actor, *token.Claims, error) {
	if bearer != "valid" {
		return model.Actor{}, nil, constants.NewBizError(401, constants.ErrInvalidToken)
	}
	cid := int64(3)
	return model.Actor{UserID: 9, Role: a.role, CompanyID: &cid}, &token.Claims{UserID: 9}, nil
}

// 处理器不持有服务，测试只覆盖在调用服务之前就结束的路径
func newTestEngine(role string, limiter *middleware.RateLimiter) *gin.Engine {
	log := logger.NewNop()
	handlers := apis.Handlers{
		User:         handler.NewUserHandler(nil, log),
		Password:     handler.NewPasswordResetHandler(nil, log),
		Company:      handler.NewCompanyHandler(nil, log),
		Announcement: handler.NewAnnouncementHandler(nil, log),
		Article:      handler.NewArticleHandler(nil, log),
		Ticket:       handler.NewTicketHandler(nil, log),
	}
	return NewEngine(log, roleAuth{role: role}, limiter, handlers, admin.NewCompanyAdminHandler(nil, log))
}

func do(r *gin.Engine, method, path, bearer, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthAndMetrics(t *testing.T) {
	limiter := middleware.NewRateLimiter(10, 10)
	defer limiter.Stop()
	r := newTestEngine(model.RoleUser, limiter)

	body := envelope(t, do(r, http.MethodGet, "/health", "", ""))
	assert.Equal(t, "ok", body["status"])

	w := do(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "helpdesk_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	limiter := middleware.NewRateLimiter(10, 10)
	defer limiter.Stop()
	r := newTestEngine(model.RoleUser, limiter)

	for _, path := range []string{"/api/v1/tickets", "/api/v1/auth/me", "/api/v1/articles", "/api/v1/admin/company-requests"} {
		body := envelope(t, do(r, http.MethodGet, path, "", ""))
		assert.Equal(t, float64(401), body["code"], path)
	}

	body := envelope(t, do(r, http.MethodGet, "/api/v1/tickets", "expired", ""))
	assert.Equal(t, float64(401), body["code"])
	assert.Equal(t, constants.ErrInvalidToken, body["msg"])
}

func TestRoleGuards(t *testing.T) {
	limiter := middleware.NewRateLimiter(10, 10)
	defer limiter.Stop()

	agent := newTestEngine(model.RoleAgent, limiter)
	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/admin/company-requests"},
		{http.MethodPost, "/api/v1/announcements"},
		{http.MethodPost, "/api/v1/articles/1/publish"},
		{http.MethodPost, "/api/v1/ticket-categories"},
		{http.MethodPost, "/api/v1/agents"},
	}
	for _, tc := range cases {
		body := envelope(t, do(agent, tc.method, tc.path, "valid", "{}"))
		assert.Equal(t, float64(403), body["code"], tc.path)
	}

	// 通过角色校验后由参数绑定拦截
	companyAdmin := newTestEngine(model.RoleCompanyAdmin, limiter)
	body := envelope(t, do(companyAdmin, http.MethodPost, "/api/v1/announcements", "valid", "{}"))
	assert.Equal(t, float64(422), body["code"])
	errs := body["data"].(map[string]interface{})["errors"].(map[string]interface{})
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "type")
}

func TestBadPathParameter(t *testing.T) {
	limiter := middleware.NewRateLimiter(10, 10)
	defer limiter.Stop()
	r := newTestEngine(model.RoleUser, limiter)

	body := envelope(t, do(r, http.MethodGet, "/api/v1/articles/abc", "valid", ""))
	assert.Equal(t, float64(400), body["code"])
}

func TestLoginIsRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 3)
	defer limiter.Stop()
	r := newTestEngine(model.RoleUser, limiter)

	for i := 0; i < 3; i++ {
		body := envelope(t, do(r, http.MethodPost, "/api/v1/auth/login", "", `{"email":"bad"}`))
		assert.Equal(t, float64(422), body["code"])
	}
	body := envelope(t, do(r, http.MethodPost, "/api/v1/auth/login", "", `{"email":"bad"}`))
	assert.Equal(t, float64(429), body["code"])

	// 同一个客户端的入驻申请共享令牌桶
	body = envelope(t, do(r, http.MethodPost, "/api/v1/company-requests", "", `{}`))
	assert.Equal(t, float64(429), body["code"])

	// 找回密码同样限流
	body = envelope(t, do(r, http.MethodPost, "/api/v1/auth/password/reset", "", `{}`))
	assert.Equal(t, float64(429), body["code"])

	// 注册不限流
	body = envelope(t, do(r, http.MethodPost, "/api/v1/auth/register", "", `{}`))
	assert.Equal(t, float64(422), body["code"])
}

func TestPasswordResetValidation(t *testing.T) {
	limiter := middleware.NewRateLimiter(10, 10)
	defer limiter.Stop()
	r := newTestEngine(model.RoleUser, limiter)

	body := envelope(t, do(r, http.MethodPost, "/api/v1/auth/password/forgot", "", `{"email":"not-an-email"}`))
	assert.Equal(t, float64(422), body["code"])

	body = envelope(t, do(r, http.MethodPost, "/api/v1/auth/password/reset", "",
		`{"email":"ann@example.test","code":"12ab","password":"short"}`))
	assert.Equal(t, float64(422), body["code"])
	errs, ok := body["data"].(map[string]interface{})["errors"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, errs, "code")
	assert.Contains(t, errs, "password")
}

func TestMalformedJSON(t *testing.T) {
	limiter := middleware.NewRateLimiter(10, 10)
	defer limiter.Stop()
	r := newTestEngine(model.RoleUser, limiter)

	body := envelope(t, do(r, http.MethodPost, "/api/v1/auth/register", "", `{"email":`))
	assert.Equal(t, float64(400), body["code"])

	body = envelope(t, do(r, http.MethodPost, "/api/v1/auth/register", "", `{"email":42}`))
	assert.Equal(t, float64(422), body["code"])
}
