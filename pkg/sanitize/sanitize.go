package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer 富文本HTML清洗
type Sanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// New 创建清洗器，正文允许UGC常用标签，链接强制nofollow
func New() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{
		policy: p,
		strict: bluemonday.StrictPolicy(),
	}
}

// HTML 清洗正文并去掉首尾空白
func (s *Sanitizer) HTML(html string) string {
	return strings.TrimSpace(s.policy.Sanitize(html))
}

// Text 去掉所有标签，用于标题、摘要等纯文本字段
func (s *Sanitizer) Text(text string) string {
	return strings.TrimSpace(s.strict.Sanitize(text))
}
