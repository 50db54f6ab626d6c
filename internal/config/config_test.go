package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"MAILROUTE_JWT_SECRET",
		"MAILROUTE_SERVER_HOST",
		"MAILROUTE_SERVER_PORT",
		"MAILROUTE_MAILBOX_SYSTEM_DOMAINS",
		"MAILROUTE_MAILBOX_DEFAULT_TTL",
		"MAILROUTE_DNS_MX_HOSTS",
		"MAILROUTE_DNS_SPF_INCLUDE",
		"MAILROUTE_DNS_LOOKUP_TIMEOUT",
		"MAILROUTE_FORWARD_PROVIDER",
		"MAILROUTE_LOG_LEVEL",
		"MAILROUTE_LOG_DEVELOPMENT",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	clear := func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
		os.Setenv("MAILROUTE_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")
	}

	t.Run("加载默认配置成功", func(t *testing.T) {
		clear()

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, []string{"route.mail"}, cfg.Mailbox.SystemDomains)
		assert.Equal(t, time.Hour, cfg.Mailbox.DefaultTTL)
		assert.Equal(t, []string{"mx1.route.mail", "mx2.route.mail"}, cfg.DNS.MXHosts)
		assert.Equal(t, "spf.route.mail", cfg.DNS.SPFInclude)
		assert.Equal(t, 5*time.Second, cfg.DNS.LookupTimeout)
		assert.Equal(t, "stdout", cfg.Forward.Provider)
		assert.Equal(t, 30*time.Minute, cfg.Monitor.Interval)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		clear()
		os.Setenv("MAILROUTE_SERVER_HOST", "127.0.0.1")
		os.Setenv("MAILROUTE_MAILBOX_SYSTEM_DOMAINS", "Inbox.Test, other.test")
		os.Setenv("MAILROUTE_DNS_MX_HOSTS", "mx.inbox.test")
		os.Setenv("MAILROUTE_FORWARD_PROVIDER", "smtp")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, []string{"inbox.test", "other.test"}, cfg.Mailbox.SystemDomains)
		assert.Equal(t, []string{"mx.inbox.test"}, cfg.DNS.MXHosts)
		assert.Equal(t, "smtp", cfg.Forward.Provider)
	})

	t.Run("拒绝默认JWT密钥", func(t *testing.T) {
		clear()
		os.Unsetenv("MAILROUTE_JWT_SECRET")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("拒绝过短的JWT密钥", func(t *testing.T) {
		clear()
		os.Setenv("MAILROUTE_JWT_SECRET", "too-short")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("拒绝未知的转发通道", func(t *testing.T) {
		clear()
		os.Setenv("MAILROUTE_FORWARD_PROVIDER", "pigeon")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestIsSystemDomain(t *testing.T) {
	cfg := &Config{
		Mailbox: MailboxConfig{SystemDomains: []string{"route.mail", "inbox.test"}},
	}

	assert.True(t, cfg.IsSystemDomain("route.mail"))
	assert.True(t, cfg.IsSystemDomain("Inbox.TEST"))
	assert.True(t, cfg.IsSystemDomain(" route.mail "))
	assert.False(t, cfg.IsSystemDomain("other.test"))
}
