package mailparse

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{"剥离回复前缀", "Re: Weekly report", "Weekly report"},
		{"剥离嵌套前缀", "Re: Fwd: RE: Weekly report", "Weekly report"},
		{"剥离垃圾邮件标记", "[SPAM] Buy now", "Buy now"},
		{"剥离自动回复前缀", "Automatic reply: Out of town", "Out of town"},
		{"剥离退信前缀", "Undeliverable: hello", "hello"},
		{"还原HTML实体", "Tom &amp; Jerry &#8212; new episode", "Tom & Jerry — new episode"},
		{"实体编码的前缀同样剥离", "&#82;e: weekly report", "weekly report"},
		{"折叠空白", "  hello\t\nworld  ", "hello world"},
		{"空主题占位", "", EmptySubject},
		{"清洗后为空占位", "Re:   ", EmptySubject},
		{"普通主题原样保留", "Quarterly numbers", "Quarterly numbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanSubject(tt.subject))
		})
	}
}

func TestCleanSubjectTruncation(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := CleanSubject(long)
	assert.Equal(t, 103, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	// 多字节字符按 rune 截断，不能截出非法 UTF-8
	wide := strings.Repeat("邮", 150)
	got = CleanSubject(wide)
	assert.Equal(t, 103, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

// 清洗已清洗过的主题必须得到相同结果。
func TestCleanSubjectIdempotent(t *testing.T) {
	inputs := []string{
		"Re: Fwd: Weekly report",
		"[SPAM] Buy now",
		"Tom &amp; Jerry",
		"&#82;e: weekly report",
		"&#38;#82;e: double encoded",
		"  hello\t\nworld  ",
		"",
		strings.Repeat("a", 150),
		strings.Repeat("邮件", 80),
	}
	for _, in := range inputs {
		once := CleanSubject(in)
		assert.Equal(t, once, CleanSubject(once), "input=%q", in)
	}
}

func TestCleanSubjectNeverEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "Re:", "Fwd: Re:", "&nbsp;"} {
		got := CleanSubject(in)
		assert.NotEmpty(t, got, "input=%q", in)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 103)
	}
}
