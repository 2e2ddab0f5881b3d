package console

import (
	"regexp"
	"strings"
)

// ExtractFixed 从 start 行起跳过 lead 行，并去掉末尾 trail 行
// 越界时返回空切片
func ExtractFixed(lines []string, start, lead, trail int) []string {
	from := start + lead
	to := len(lines) - trail
	if from < 0 {
		from = 0
	}
	if from >= to {
		return []string{}
	}
	out := make([]string, to-from)
	copy(out, lines[from:to])
	return out
}

// ExtractDelimited 取回显行之后、提示符行之前的内容
// 再从首部剔除匹配 headers 的行、从尾部剔除匹配 trailers 的行，以及首尾空行
func ExtractDelimited(lines []string, echo, prompt int, headers, trailers []*regexp.Regexp) []string {
	from := echo + 1
	to := prompt
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	for from < to && (blank(lines[from]) || matchAny(headers, lines[from])) {
		from++
	}
	for to > from && (blank(lines[to-1]) || matchAny(trailers, lines[to-1])) {
		to--
	}
	if from >= to {
		return []string{}
	}
	out := make([]string, to-from)
	copy(out, lines[from:to])
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
