package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// MailboxConfig 定义邮箱服务的核心业务配置
type MailboxConfig struct {
	SystemDomains []string      // 系统自有域名列表（可直接路由）
	DefaultTTL    time.Duration // 临时邮箱默认生存时间
	PremiumTTL    time.Duration // 高级邮箱租期
}

// IngestConfig 定义入站邮件摄取管线的配置
type IngestConfig struct {
	MaxMessageBytes int64 // 单封邮件原始内容大小上限
}

// DNSConfig 定义域名验证所需的部署级 DNS 常量
//
// 这些值描述本部署的邮件基础设施，属于部署配置而非协议硬编码。
type DNSConfig struct {
	MXHosts         []string      // 指定的邮件交换主机名列表
	SPFInclude      string        // SPF include 指向的发信域
	MailCNAMETarget string        // mail. 子域应指向的主机名
	DKIMSelector    string        // DKIM 选择器（可为空，空则跳过 DKIM 检查）
	LookupTimeout   time.Duration // 单次 DNS 查询超时
}

// MonitorConfig 定义域名巡检任务的配置
type MonitorConfig struct {
	Interval      time.Duration // 巡检间隔
	LookupsPerSec float64       // 巡检期间 DNS 查询速率上限
}

// ForwardConfig 定义出站转发服务配置
type ForwardConfig struct {
	Provider string        // 转发通道: "smtp"、"ses" 或 "stdout"
	Timeout  time.Duration // 单次外发超时
	SMTP     ForwardSMTPConfig
	SES      ForwardSESConfig
}

// ForwardSMTPConfig SMTP 中继通道配置
type ForwardSMTPConfig struct {
	Addr     string // 中继地址，格式 "host:port"
	Username string // 认证用户名，留空表示匿名
	Password string // 认证密码
	From     string // 转发信封发件人地址
}

// ForwardSESConfig AWS SES 通道配置
type ForwardSESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Sender          string // 转发发件人地址（需在 SES 验证）
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "memory"、"mysql" 或 "postgres"
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，留空表示不启用缓存
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret        string        // JWT 签名密钥，必须至少 32 字符
	Issuer        string        // JWT 签发者标识
	AccessExpiry  time.Duration // 访问令牌有效期
	RefreshExpiry time.Duration // 刷新令牌有效期
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig
	Mailbox  MailboxConfig
	Ingest   IngestConfig
	DNS      DNSConfig
	Monitor  MonitorConfig
	Forward  ForwardConfig
	CORS     CORSConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILROUTE_
// 例如: MAILROUTE_SERVER_HOST, MAILROUTE_DNS_MX_HOSTS
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("mailroute")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mailbox.system_domains", "route.mail")
	viper.SetDefault("mailbox.default_ttl", "1h")
	viper.SetDefault("mailbox.premium_ttl", "8760h") // 一年
	viper.SetDefault("ingest.max_message_bytes", 10*1024*1024)
	viper.SetDefault("dns.mx_hosts", "mx1.route.mail,mx2.route.mail")
	viper.SetDefault("dns.spf_include", "spf.route.mail")
	viper.SetDefault("dns.mail_cname_target", "mail.route.mail")
	viper.SetDefault("dns.dkim_selector", "")
	viper.SetDefault("dns.lookup_timeout", "5s")
	viper.SetDefault("monitor.interval", "30m")
	viper.SetDefault("monitor.lookups_per_sec", 5.0)
	viper.SetDefault("forward.provider", "stdout")
	viper.SetDefault("forward.timeout", "15s")
	viper.SetDefault("forward.smtp.addr", "")
	viper.SetDefault("forward.smtp.username", "")
	viper.SetDefault("forward.smtp.password", "")
	viper.SetDefault("forward.smtp.from", "")
	viper.SetDefault("forward.ses.region", "")
	viper.SetDefault("forward.ses.access_key_id", "")
	viper.SetDefault("forward.ses.secret_access_key", "")
	viper.SetDefault("forward.ses.sender", "")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "mailroute")
	viper.SetDefault("jwt.access_expiry", "15m")
	viper.SetDefault("jwt.refresh_expiry", "168h")

	defaultTTL, err := time.ParseDuration(viper.GetString("mailbox.default_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox.default_ttl: %w", err)
	}

	premiumTTL, err := time.ParseDuration(viper.GetString("mailbox.premium_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox.premium_ttl: %w", err)
	}

	systemDomains := parseDomains(viper.GetString("mailbox.system_domains"))
	if len(systemDomains) == 0 {
		return nil, fmt.Errorf("mailbox.system_domains must not be empty")
	}

	mxHosts := parseDomains(viper.GetString("dns.mx_hosts"))
	if len(mxHosts) == 0 {
		return nil, fmt.Errorf("dns.mx_hosts must not be empty")
	}

	lookupTimeout, err := time.ParseDuration(viper.GetString("dns.lookup_timeout"))
	if err != nil || lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}

	monitorInterval, err := time.ParseDuration(viper.GetString("monitor.interval"))
	if err != nil || monitorInterval <= 0 {
		monitorInterval = 30 * time.Minute
	}

	forwardTimeout, err := time.ParseDuration(viper.GetString("forward.timeout"))
	if err != nil || forwardTimeout <= 0 {
		forwardTimeout = 15 * time.Second
	}

	forwardProvider := strings.ToLower(viper.GetString("forward.provider"))
	switch forwardProvider {
	case "smtp", "ses", "stdout":
	default:
		return nil, fmt.Errorf("invalid forward.provider: %q (supported: smtp, ses, stdout)", forwardProvider)
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("jwt.access_expiry"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("jwt.refresh_expiry"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 安全检查：禁止使用默认的 JWT secret
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set MAILROUTE_JWT_SECRET environment variable")
	}

	// JWT secret 必须至少 32 字符
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mailbox: MailboxConfig{
			SystemDomains: systemDomains,
			DefaultTTL:    defaultTTL,
			PremiumTTL:    premiumTTL,
		},
		Ingest: IngestConfig{
			MaxMessageBytes: viper.GetInt64("ingest.max_message_bytes"),
		},
		DNS: DNSConfig{
			MXHosts:         mxHosts,
			SPFInclude:      strings.ToLower(viper.GetString("dns.spf_include")),
			MailCNAMETarget: strings.ToLower(viper.GetString("dns.mail_cname_target")),
			DKIMSelector:    viper.GetString("dns.dkim_selector"),
			LookupTimeout:   lookupTimeout,
		},
		Monitor: MonitorConfig{
			Interval:      monitorInterval,
			LookupsPerSec: viper.GetFloat64("monitor.lookups_per_sec"),
		},
		Forward: ForwardConfig{
			Provider: forwardProvider,
			Timeout:  forwardTimeout,
			SMTP: ForwardSMTPConfig{
				Addr:     viper.GetString("forward.smtp.addr"),
				Username: viper.GetString("forward.smtp.username"),
				Password: viper.GetString("forward.smtp.password"),
				From:     viper.GetString("forward.smtp.from"),
			},
			SES: ForwardSESConfig{
				Region:          viper.GetString("forward.ses.region"),
				AccessKeyID:     viper.GetString("forward.ses.access_key_id"),
				SecretAccessKey: viper.GetString("forward.ses.secret_access_key"),
				Sender:          viper.GetString("forward.ses.sender"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:        jwtSecret,
			Issuer:        viper.GetString("jwt.issuer"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
	}

	return cfg, nil
}

// IsSystemDomain 判断域名是否属于系统自有域名（不区分大小写）。
func (c *Config) IsSystemDomain(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range c.Mailbox.SystemDomains {
		if d == name {
			return true
		}
	}
	return false
}

// parseDomains 将逗号分隔的域名字符串解析为小写域名数组
func parseDomains(value string) []string {
	out := parseList(value)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从子目录运行的情况）
//
// 如果文件不存在则静默跳过；已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
