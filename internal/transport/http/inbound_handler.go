package httptransport

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailroute/backend/internal/monitoring"
	"mailroute/backend/internal/service"
)

// InboundHandler 处理上游中继的入站邮件通知。
type InboundHandler struct {
	ingest  *service.IngestService
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewInboundHandler 创建入站处理器
func NewInboundHandler(ingest *service.IngestService, metrics *monitoring.Metrics, log *zap.Logger) *InboundHandler {
	return &InboundHandler{
		ingest:  ingest,
		metrics: metrics,
		log:     log,
	}
}

// inboundJSON 结构化入站通知。上游字段命名不统一，
// 同义字段做别名兼容。
type inboundJSON struct {
	Recipient  string `json:"recipient"`
	To         string `json:"to"`
	Sender     string `json:"sender"`
	From       string `json:"from"`
	Body       string `json:"body"`
	UpstreamID string `json:"message_id"`
}

// Receive godoc
// @Summary 接收入站邮件
// @Description 接收上游邮件中继的投递通知，支持表单与 JSON 两种编码
// @Tags Inbound
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce json
// @Success 200 {object} Response{data=service.IngestResult}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 415 {object} Response
// @Failure 500 {object} Response
// @Router /v1/inbound [post]
func (h *InboundHandler) Receive(c *gin.Context) {
	start := time.Now()

	in, ok := h.decode(c)
	if !ok {
		h.metrics.RecordInbound("rejected", 0, time.Since(start))
		return
	}
	if in.Recipient == "" {
		h.metrics.RecordInbound("rejected", len(in.RawBody), time.Since(start))
		BadRequest(c, MsgRecipientRequired)
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecipientNotFound):
			h.metrics.RecordInbound("no_route", len(in.RawBody), time.Since(start))
			NotFound(c, GetErrorMessage(service.ErrRecipientNotFound))
		case errors.Is(err, service.ErrMessageTooLarge):
			h.metrics.RecordInbound("too_large", len(in.RawBody), time.Since(start))
			PayloadTooLarge(c, GetErrorMessage(service.ErrMessageTooLarge))
		default:
			h.metrics.RecordInbound("error", len(in.RawBody), time.Since(start))
			h.log.Error("inbound ingestion failed",
				zap.String("recipient", in.Recipient),
				zap.Error(err),
			)
			InternalError(c, MsgIngestFailed)
		}
		return
	}

	outcome := "stored"
	if result.Duplicate {
		outcome = "duplicate"
	}
	h.metrics.RecordInbound(outcome, len(in.RawBody), time.Since(start))

	Success(c, result)
}

// decode 按内容编码规整为统一的入站通知。
// 不认识的编码返回 415，两种编码收敛到同一下游接口。
func (h *InboundHandler) decode(c *gin.Context) (*service.InboundEmail, bool) {
	contentType := c.ContentType()

	switch {
	case contentType == "application/x-www-form-urlencoded" ||
		strings.HasPrefix(contentType, "multipart/form-data"):
		return &service.InboundEmail{
			Recipient:  firstNonEmpty(c.PostForm("recipient"), c.PostForm("to")),
			Sender:     firstNonEmpty(c.PostForm("sender"), c.PostForm("from")),
			RawBody:    []byte(c.PostForm("body")),
			UpstreamID: c.PostForm("message_id"),
		}, true

	case contentType == "application/json":
		var payload inboundJSON
		if err := c.ShouldBindJSON(&payload); err != nil {
			BadRequest(c, MsgInvalidRequest)
			return nil, false
		}
		return &service.InboundEmail{
			Recipient:  firstNonEmpty(payload.Recipient, payload.To),
			Sender:     firstNonEmpty(payload.Sender, payload.From),
			RawBody:    []byte(payload.Body),
			UpstreamID: payload.UpstreamID,
		}, true

	case contentType == "message/rfc822":
		// 整封原始邮件作为请求体，收件人从查询参数取
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			BadRequest(c, MsgInvalidRequest)
			return nil, false
		}
		return &service.InboundEmail{
			Recipient:  c.Query("recipient"),
			Sender:     c.Query("sender"),
			RawBody:    raw,
			UpstreamID: c.Query("message_id"),
		}, true

	default:
		UnsupportedMediaType(c, MsgUnsupportedContent)
		return nil, false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
