package httptransport

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"mailroute/backend/internal/domain"
	"mailroute/backend/internal/middleware"
	"mailroute/backend/internal/monitoring"
	"mailroute/backend/internal/service"
)

// Handler 邮箱与邮件读取处理器
type Handler struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	metrics   *monitoring.Metrics
}

// NewHandler 创建邮箱处理器
func NewHandler(mailboxes *service.MailboxService, messages *service.MessageService, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		mailboxes: mailboxes,
		messages:  messages,
		metrics:   metrics,
	}
}

// CreateMailboxRequest 创建邮箱请求
type CreateMailboxRequest struct {
	Prefix    string `json:"prefix"`
	Domain    string `json:"domain"`
	Type      string `json:"type" binding:"omitempty,oneof=temporary premium"`
	ForwardTo string `json:"forwardTo"`
}

// createMailbox godoc
// @Summary 创建邮箱
// @Description 创建临时或高级邮箱，匿名请求只能创建临时邮箱
// @Tags Mailboxes
// @Accept json
// @Produce json
// @Param request body CreateMailboxRequest true "邮箱信息"
// @Success 201 {object} Response{data=domain.Mailbox}
// @Failure 400 {object} Response
// @Router /v1/mailboxes [post]
func (h *Handler) createMailbox(c *gin.Context) {
	var req CreateMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	input := service.CreateMailboxInput{
		Prefix:    req.Prefix,
		Domain:    req.Domain,
		Type:      domain.MailboxType(req.Type),
		ForwardTo: req.ForwardTo,
	}
	if userID := middleware.UserID(c); userID != "" {
		input.UserID = &userID
	}

	mailbox, err := h.mailboxes.Create(input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDomainNotAllowed),
			errors.Is(err, service.ErrPrefixInvalid),
			errors.Is(err, service.ErrForwardTargetInvalid):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgMailboxCreateFailed)
		}
		return
	}

	h.metrics.RecordMailboxCreated()
	Created(c, mailbox)
}

// getMailbox godoc
// @Summary 获取邮箱详情
// @Tags Mailboxes
// @Produce json
// @Param id path string true "邮箱ID"
// @Success 200 {object} Response{data=domain.Mailbox}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/mailboxes/{id} [get]
func (h *Handler) getMailbox(c *gin.Context) {
	mailbox, ok := h.ownedMailbox(c)
	if !ok {
		return
	}
	Success(c, mailbox)
}

// deleteMailbox godoc
// @Summary 删除邮箱
// @Description 删除邮箱及其全部邮件与附件
// @Tags Mailboxes
// @Produce json
// @Param id path string true "邮箱ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/mailboxes/{id} [delete]
func (h *Handler) deleteMailbox(c *gin.Context) {
	mailbox, ok := h.ownedMailbox(c)
	if !ok {
		return
	}

	if err := h.mailboxes.Delete(mailbox.ID); err != nil {
		InternalError(c, MsgMailboxDeleteFailed)
		return
	}
	Success(c, nil)
}

// listMessages godoc
// @Summary 获取邮件列表
// @Tags Messages
// @Produce json
// @Param id path string true "邮箱ID"
// @Success 200 {object} Response{data=[]domain.Message}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/mailboxes/{id}/messages [get]
func (h *Handler) listMessages(c *gin.Context) {
	mailbox, ok := h.ownedMailbox(c)
	if !ok {
		return
	}

	messages, err := h.messages.List(mailbox.ID)
	if err != nil {
		InternalError(c, MsgMessageListFailed)
		return
	}
	Success(c, messages)
}

// getMessage godoc
// @Summary 获取邮件详情
// @Tags Messages
// @Produce json
// @Param id path string true "邮箱ID"
// @Param messageId path string true "邮件ID"
// @Success 200 {object} Response{data=domain.Message}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/mailboxes/{id}/messages/{messageId} [get]
func (h *Handler) getMessage(c *gin.Context) {
	mailbox, ok := h.ownedMailbox(c)
	if !ok {
		return
	}

	message, err := h.messages.Get(mailbox.ID, c.Param("messageId"))
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			NotFound(c, GetErrorMessage(domain.ErrMessageNotFound))
			return
		}
		InternalError(c, MsgMessageGetFailed)
		return
	}
	Success(c, message)
}

// downloadAttachment godoc
// @Summary 下载附件
// @Description 以原始字节返回附件内容
// @Tags Messages
// @Produce octet-stream
// @Param id path string true "邮箱ID"
// @Param messageId path string true "邮件ID"
// @Param attachmentId path string true "附件ID"
// @Success 200 {file} binary
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/mailboxes/{id}/messages/{messageId}/attachments/{attachmentId} [get]
func (h *Handler) downloadAttachment(c *gin.Context) {
	mailbox, ok := h.ownedMailbox(c)
	if !ok {
		return
	}

	attachment, err := h.messages.GetAttachment(mailbox.ID, c.Param("messageId"), c.Param("attachmentId"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			NotFound(c, GetErrorMessage(domain.ErrMessageNotFound))
		case errors.Is(err, domain.ErrAttachmentNotFound):
			NotFound(c, GetErrorMessage(domain.ErrAttachmentNotFound))
		default:
			InternalError(c, MsgMessageGetFailed)
		}
		return
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	c.Data(200, contentType, attachment.Content)
}

// ownedMailbox 取路径中的邮箱并校验访问权限。
// 有属主的邮箱只允许属主或管理员访问，匿名邮箱不校验。
func (h *Handler) ownedMailbox(c *gin.Context) (*domain.Mailbox, bool) {
	mailbox, err := h.mailboxes.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrMailboxNotFound) {
			NotFound(c, GetErrorMessage(domain.ErrMailboxNotFound))
		} else {
			InternalError(c, MsgInternalError)
		}
		return nil, false
	}

	if mailbox.UserID != nil && !middleware.IsAdmin(c) {
		if middleware.UserID(c) != *mailbox.UserID {
			Forbidden(c, "无权访问该邮箱")
			return nil, false
		}
	}
	return mailbox, true
}
