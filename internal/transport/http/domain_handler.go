package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/middleware"
	"mailroute/backend/internal/service"
)

// DomainHandler 自定义域名处理器
type DomainHandler struct {
	domains *service.CustomDomainService
}

// NewDomainHandler 创建自定义域名处理器
func NewDomainHandler(domains *service.CustomDomainService) *DomainHandler {
	return &DomainHandler{domains: domains}
}

// AddDomainRequest 添加域名请求
type AddDomainRequest struct {
	Domain    string `json:"domain" binding:"required"`
	ForwardTo string `json:"forwardTo"`
}

// domainResponse 域名详情响应
type domainResponse struct {
	Domain  *domain.CustomDomain         `json:"domain"`
	Records []*domain.VerificationRecord `json:"records,omitempty"`
}

// AddDomain godoc
// @Summary 添加自定义域名
// @Description 注册一个待验证的自定义域名，返回需要配置的 DNS 记录
// @Tags Domains
// @Accept json
// @Produce json
// @Param request body AddDomainRequest true "域名信息"
// @Success 201 {object} Response{data=domainResponse}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Security BearerAuth
// @Router /v1/domains [post]
func (h *DomainHandler) AddDomain(c *gin.Context) {
	userID := middleware.UserID(c)

	var req AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	custom, records, err := h.domains.AddDomain(userID, req.Domain, req.ForwardTo)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDomainInvalid):
			BadRequest(c, GetErrorMessage(service.ErrDomainInvalid))
		case errors.Is(err, service.ErrForwardTargetInvalid):
			BadRequest(c, GetErrorMessage(service.ErrForwardTargetInvalid))
		case errors.Is(err, service.ErrDomainExists):
			Conflict(c, GetErrorMessage(service.ErrDomainExists))
		default:
			InternalError(c, MsgDomainAddFailed)
		}
		return
	}

	Created(c, domainResponse{Domain: custom, Records: records})
}

// ListDomains godoc
// @Summary 获取域名列表
// @Description 获取当前用户的所有自定义域名
// @Tags Domains
// @Produce json
// @Success 200 {object} Response{data=[]domain.CustomDomain}
// @Security BearerAuth
// @Router /v1/domains [get]
func (h *DomainHandler) ListDomains(c *gin.Context) {
	domains, err := h.domains.List(middleware.UserID(c))
	if err != nil {
		InternalError(c, MsgDomainListFailed)
		return
	}
	Success(c, domains)
}

// GetDomain godoc
// @Summary 获取域名详情
// @Description 获取域名及其验证记录
// @Tags Domains
// @Produce json
// @Param id path string true "域名ID"
// @Success 200 {object} Response{data=domainResponse}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Security BearerAuth
// @Router /v1/domains/{id} [get]
func (h *DomainHandler) GetDomain(c *gin.Context) {
	custom, records, err := h.domains.Get(c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.writeOwnershipError(c, err, MsgDomainGetFailed)
		return
	}
	Success(c, domainResponse{Domain: custom, Records: records})
}

// VerifyDomain godoc
// @Summary 验证域名
// @Description 立即执行 DNS 验证并更新域名状态
// @Tags Domains
// @Produce json
// @Param id path string true "域名ID"
// @Success 200 {object} Response{data=domainResponse}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Security BearerAuth
// @Router /v1/domains/{id}/verify [post]
func (h *DomainHandler) VerifyDomain(c *gin.Context) {
	custom, records, err := h.domains.Verify(
		c.Request.Context(),
		c.Param("id"),
		middleware.UserID(c),
		middleware.IsAdmin(c),
	)
	if err != nil {
		h.writeOwnershipError(c, err, MsgDomainVerifyFailed)
		return
	}
	Success(c, domainResponse{Domain: custom, Records: records})
}

// UpdateForwardRequest 更新域名转发地址请求
type UpdateForwardRequest struct {
	ForwardTo string `json:"forwardTo"`
}

// UpdateForward godoc
// @Summary 更新域名转发地址
// @Description 设置或清空域名级转发地址
// @Tags Domains
// @Accept json
// @Produce json
// @Param id path string true "域名ID"
// @Param request body UpdateForwardRequest true "转发地址"
// @Success 200 {object} Response{data=domain.CustomDomain}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Security BearerAuth
// @Router /v1/domains/{id}/forward [patch]
func (h *DomainHandler) UpdateForward(c *gin.Context) {
	var req UpdateForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	custom, err := h.domains.SetForwardTo(
		c.Param("id"),
		middleware.UserID(c),
		middleware.IsAdmin(c),
		req.ForwardTo,
	)
	if err != nil {
		if errors.Is(err, service.ErrForwardTargetInvalid) {
			BadRequest(c, GetErrorMessage(service.ErrForwardTargetInvalid))
			return
		}
		h.writeOwnershipError(c, err, MsgDomainUpdateFailed)
		return
	}
	Success(c, custom)
}

// DeleteDomain godoc
// @Summary 删除域名
// @Description 删除域名及其验证记录
// @Tags Domains
// @Produce json
// @Param id path string true "域名ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Security BearerAuth
// @Router /v1/domains/{id} [delete]
func (h *DomainHandler) DeleteDomain(c *gin.Context) {
	err := h.domains.Delete(c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.writeOwnershipError(c, err, MsgDomainDeleteFailed)
		return
	}
	Success(c, nil)
}

// ListIssues godoc
// @Summary 获取域名问题记录
// @Description 获取巡检降级产生的问题记录，按时间倒序
// @Tags Domains
// @Produce json
// @Param id path string true "域名ID"
// @Param limit query int false "返回条数上限，默认 20"
// @Success 200 {object} Response{data=[]domain.DomainIssue}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Security BearerAuth
// @Router /v1/domains/{id}/issues [get]
func (h *DomainHandler) ListIssues(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	issues, err := h.domains.ListIssues(c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c), limit)
	if err != nil {
		h.writeOwnershipError(c, err, MsgIssueListFailed)
		return
	}
	Success(c, issues)
}

// writeOwnershipError 统一映射域名查询的常见错误。
func (h *DomainHandler) writeOwnershipError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrDomainNotFound):
		NotFound(c, GetErrorMessage(domain.ErrDomainNotFound))
	case errors.Is(err, service.ErrNotDomainOwner):
		Forbidden(c, GetErrorMessage(service.ErrNotDomainOwner))
	default:
		InternalError(c, fallback)
	}
}
