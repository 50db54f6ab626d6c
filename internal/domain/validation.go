package domain

import (
	"net/mail"
	"regexp"
	"strings"
)

// RFC 5322 地址长度限制
const (
	MaxEmailLength     = 254 // 整个邮箱地址最大长度
	MaxLocalPartLength = 64  // 本地部分最大长度(@前面)
	MaxDomainLength    = 253 // 域名最大长度
)

var domainLabelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateEmail 校验邮箱地址格式。
func ValidateEmail(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	localPart := parts[0]
	if localPart == "" || len(localPart) > MaxLocalPartLength {
		return false
	}

	// 本地部分只允许常见安全字符
	for _, r := range localPart {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-' || r == '+') {
			return false
		}
	}

	if !ValidateDomain(parts[1]) {
		return false
	}

	// 使用标准库兜底验证
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}

	return true
}

// ValidateDomain 校验域名格式（支持子域名）。
func ValidateDomain(domain string) bool {
	if domain == "" || len(domain) > MaxDomainLength {
		return false
	}

	// 至少要有一个点，且不能出现空标签
	labels := strings.Split(strings.ToLower(domain), ".")
	if len(labels) < 2 {
		return false
	}

	for _, label := range labels {
		if !domainLabelRegex.MatchString(label) {
			return false
		}
	}

	return true
}

// NormalizeAddress 规整邮件地址：去除空白与尖括号并统一小写。
//
// 系统策略（创建与查找保持一致）：地址整体按小写比较，
// 域名部分天然不区分大小写，本地部分也按小写处理。
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}

// AddressDomain 返回地址的域名部分（小写），无法切分时返回空串。
func AddressDomain(addr string) string {
	parts := strings.Split(NormalizeAddress(addr), "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
