package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 入站邮件指标
	InboundTotal    *prometheus.CounterVec
	InboundDuration prometheus.Histogram
	InboundBytes    prometheus.Histogram
	ParseDegraded   prometheus.Counter

	// 转发指标
	ForwardTotal    *prometheus.CounterVec
	ForwardDuration prometheus.Histogram

	// 域名巡检指标
	DomainChecksTotal  *prometheus.CounterVec
	DomainsDeactivated prometheus.Counter
	DomainsReactivated prometheus.Counter

	// 邮箱指标
	MailboxesCreated prometheus.Counter
	MailboxesExpired prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailroute_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailroute_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		// 入站邮件指标
		InboundTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailroute_inbound_total",
				Help: "Total number of inbound deliveries by outcome",
			},
			[]string{"outcome"},
		),

		InboundDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailroute_inbound_duration_seconds",
				Help:    "Inbound delivery processing duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		InboundBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailroute_inbound_bytes",
				Help:    "Raw inbound message size in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),

		ParseDegraded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailroute_parse_degraded_total",
				Help: "Total number of messages stored via the degraded parse path",
			},
		),

		// 转发指标
		ForwardTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailroute_forward_total",
				Help: "Total number of forward attempts by outcome",
			},
			[]string{"outcome"},
		),

		ForwardDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailroute_forward_duration_seconds",
				Help:    "Forward delivery duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		// 域名巡检指标
		DomainChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailroute_domain_checks_total",
				Help: "Total number of DNS verification checks by result",
			},
			[]string{"result"},
		),

		DomainsDeactivated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailroute_domains_deactivated_total",
				Help: "Total number of domains deactivated by the monitor",
			},
		),

		DomainsReactivated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailroute_domains_reactivated_total",
				Help: "Total number of domains reactivated by the monitor",
			},
		),

		// 邮箱指标
		MailboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailroute_mailboxes_created_total",
				Help: "Total number of mailboxes created",
			},
		),

		MailboxesExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailroute_mailboxes_expired_total",
				Help: "Total number of expired mailboxes removed",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordInbound 记录一次入站投递的结果与耗时
func (m *Metrics) RecordInbound(outcome string, size int, duration time.Duration) {
	m.InboundTotal.WithLabelValues(outcome).Inc()
	m.InboundBytes.Observe(float64(size))
	m.InboundDuration.Observe(duration.Seconds())
}

// RecordParseDegraded 记录降级解析
func (m *Metrics) RecordParseDegraded() {
	m.ParseDegraded.Inc()
}

// RecordForward 记录一次转发尝试
func (m *Metrics) RecordForward(outcome string, duration time.Duration) {
	m.ForwardTotal.WithLabelValues(outcome).Inc()
	m.ForwardDuration.Observe(duration.Seconds())
}

// RecordDomainCheck 记录一次域名 DNS 复核结果
func (m *Metrics) RecordDomainCheck(result string) {
	m.DomainChecksTotal.WithLabelValues(result).Inc()
}

// RecordDomainDeactivated 记录域名降级
func (m *Metrics) RecordDomainDeactivated() {
	m.DomainsDeactivated.Inc()
}

// RecordDomainReactivated 记录域名恢复
func (m *Metrics) RecordDomainReactivated() {
	m.DomainsReactivated.Inc()
}

// RecordMailboxCreated 记录邮箱创建
func (m *Metrics) RecordMailboxCreated() {
	m.MailboxesCreated.Inc()
}

// RecordMailboxExpired 记录邮箱过期清理
func (m *Metrics) RecordMailboxExpired(count int) {
	m.MailboxesExpired.Add(float64(count))
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
