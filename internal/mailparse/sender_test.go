package mailparse

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSenderAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"尖括号地址优先", `"Alice Smith" <Alice@Example.com>`, "alice@example.com"},
		{"尖括号内空白容忍", "Bob < bob@example.com >", "bob@example.com"},
		{"裸地址提取", "carol@example.com via relay", "carol@example.com"},
		{"退信带裸地址时仍取裸地址", "MAILER-DAEMON@mx.example.com (Mail Delivery System)", "mailer-daemon@mx.example.com"},
		{"退信提取原始发件人", "Mail Delivery System original-sender: bob@localhost", "bob@localhost"},
		{"退信无可提取地址返回占位", "Mail Delivery Subsystem", BouncedSender},
		{"postmaster标记返回占位", "Postmaster Notice", BouncedSender},
		{"无法识别时原样透传", "just some text", "just some text"},
		{"空串原样返回", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSenderAddress(tt.raw))
		})
	}
}

func TestExtractSenderName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"带引号显示名", `"Alice Smith" <alice@example.com>`, "Alice Smith"},
		{"不带引号显示名", "Bob Jones <bob@example.com>", "Bob Jones"},
		{"退信返回系统通知", "Mail Delivery Subsystem", BouncedName},
		{"无显示名取本地部分", "carol@example.com", "carol"},
		{"无地址无标记返回占位", "just some text", UnknownName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := ExtractSenderAddress(tt.raw)
			assert.Equal(t, tt.want, ExtractSenderName(tt.raw, addr))
		})
	}
}

// 任何包含尖括号地址的发件人串，提取结果都应是括号内地址本身。
func TestExtractSenderAddressAngleBracketWins(t *testing.T) {
	surroundings := []string{
		`"Name" <%s>`,
		`Name Name <%s>`,
		`<%s>`,
		`some leading text <%s> trailing`,
	}
	for _, tpl := range surroundings {
		raw := fmt.Sprintf(tpl, "Target@Example.com")
		assert.Equal(t, "target@example.com", ExtractSenderAddress(raw), "raw=%q", raw)
	}
}
