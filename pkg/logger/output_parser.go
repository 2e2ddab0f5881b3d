package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputLines 输出内容的头部和尾部行
type OutputLines struct {
	Total     int      `json:"total"`
	HeadLines []string `json:"head_lines"`
	TailLines []string `json:"tail_lines"`
}

// HeadTail 提取头部和尾部各至多 maxLines 行
// 总行数不超过 maxLines 时 TailLines 为空
func HeadTail(lines []string, maxLines int) OutputLines {
	if maxLines <= 0 {
		maxLines = 5
	}
	out := OutputLines{Total: len(lines)}
	if len(lines) == 0 {
		return out
	}

	head := maxLines
	if head > len(lines) {
		head = len(lines)
	}
	out.HeadLines = append([]string(nil), lines[:head]...)

	if len(lines) > maxLines {
		tail := maxLines
		if len(lines)-tail < head {
			tail = len(lines) - head
		}
		out.TailLines = append([]string(nil), lines[len(lines)-tail:]...)
	}
	return out
}

// Format 格式化为单行日志文本
func (o OutputLines) Format() string {
	var parts []string
	if len(o.HeadLines) > 0 {
		parts = append(parts, "head-lines: ["+strings.Join(o.HeadLines, " ⟩ ")+"]")
	}
	if len(o.TailLines) > 0 {
		parts = append(parts, "tail-lines: ["+strings.Join(o.TailLines, " ⟩ ")+"]")
	}
	return strings.Join(parts, ", ")
}

// DebugLines 在 debug 级别记录一段输出的首尾行
func DebugLines(label string, lines []string, maxLines int) {
	if GetLogger().Level < logrus.DebugLevel {
		return
	}
	o := HeadTail(lines, maxLines)
	if o.Total == 0 {
		Debugf("Output [%s]: empty", label)
		return
	}
	WithField("lines", o.Total).Debugf("Output [%s]: %s", label, o.Format())
}
