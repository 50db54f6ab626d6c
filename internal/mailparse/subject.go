package mailparse

import (
	"html"
	"regexp"
	"strings"
)

// EmptySubject 是清洗后为空的主题占位符。
const EmptySubject = "No Subject"

// 主题最大保留长度（按 rune 计），超出部分截断并追加省略号。
const maxSubjectRunes = 100

// 常见回复/转发/系统前缀。
var subjectPrefixRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(re|回复)\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^\s*(fwd?|转发)\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^\s*\[(spam|junk)\]\s*`),
	regexp.MustCompile(`(?i)^\s*(spam|junk)\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^\s*(auto(matic)?[ \-]?reply|auto)\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^\s*(undeliver(able|ed)|mail delivery failed|returned mail)\s*[:：]\s*`),
	regexp.MustCompile(`(?i)^\s*out of office\s*[:：]\s*`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanSubject 清洗邮件主题用于展示。
//
// 交替还原 HTML 实体并剥离常见前缀直到不动点（实体解码可能
// 暴露出新的前缀），折叠空白，空结果替换为占位符，超长截断。
// 对已清洗的输入再次调用返回相同结果。
func CleanSubject(subject string) string {
	s := subject
	for {
		before := s
		s = html.UnescapeString(s)
		for _, re := range subjectPrefixRes {
			s = re.ReplaceAllString(s, "")
		}
		if s == before {
			break
		}
	}

	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))

	if s == "" {
		return EmptySubject
	}

	runes := []rune(s)
	if len(runes) > maxSubjectRunes {
		return string(runes[:maxSubjectRunes]) + "..."
	}
	return s
}
