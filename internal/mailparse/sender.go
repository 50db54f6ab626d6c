package mailparse

import (
	"regexp"
	"strings"

	"mailroute/backend/internal/domain"
)

// 发件人无法确定时使用的占位身份。
const (
	BouncedSender = "system@bounced.mail"
	BouncedName   = "System Notification"
	UnknownName   = "Unknown Sender"
)

var (
	angleAddrRe   = regexp.MustCompile(`<\s*([^<>\s]+@[^<>\s]+)\s*>`)
	bareAddrRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	bounceRe      = regexp.MustCompile(`(?i)mailer-daemon|postmaster|mail delivery|bounce`)
	origSenderRe  = regexp.MustCompile(`(?i)original-sender:\s*<?([^\s<>]+@[^\s<>]+?)>?(\s|$)`)
	displayNameRe = regexp.MustCompile(`^\s*"?([^"<>]+?)"?\s*<`)
)

// ExtractSenderAddress 从原始 From 字段中提取发件人地址。
//
// 优先级：尖括号内地址 > 裸地址 > 退信标记（尝试 original-sender，
// 否则返回占位地址）> 原样透传。结果统一转小写。
func ExtractSenderAddress(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	if m := angleAddrRe.FindStringSubmatch(s); m != nil {
		return strings.ToLower(m[1])
	}

	if m := bareAddrRe.FindString(s); m != "" {
		return strings.ToLower(m)
	}

	if bounceRe.MatchString(s) {
		if m := origSenderRe.FindStringSubmatch(s); m != nil {
			return strings.ToLower(m[1])
		}
		return BouncedSender
	}

	return s
}

// ExtractSenderName 从原始 From 字段中提取显示名。
//
// addr 是 ExtractSenderAddress 对同一字段的提取结果。
// 优先级：尖括号前的显示名 > 退信占位名 > 地址本地部分 > 占位名。
func ExtractSenderName(raw string, addr string) string {
	s := strings.TrimSpace(raw)

	if m := displayNameRe.FindStringSubmatch(s); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" {
			return name
		}
	}

	if bounceRe.MatchString(s) {
		return BouncedName
	}

	if local, _, ok := splitAddress(addr); ok && local != "" {
		return local
	}

	return UnknownName
}

// splitAddress 拆分地址的本地部分和域名部分
func splitAddress(addr string) (local, dom string, ok bool) {
	dom = domain.AddressDomain(addr)
	if dom == "" {
		return "", "", false
	}
	at := strings.LastIndex(addr, "@")
	return addr[:at], dom, true
}
