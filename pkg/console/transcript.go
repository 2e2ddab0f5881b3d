package console

import (
	"github.com/sshcollectorpro/consolepilot/internal/util"
)

// Transcript 会话字节记录
// 只追加；行视图在每次追加后由完整缓冲区重新计算，因此始终是缓冲区的纯函数
// 非并发安全，由所属会话串行使用
type Transcript struct {
	raw     []byte
	lines   []string
	charset string
}

// NewTranscript 创建记录器，charset 为空表示 UTF-8
func NewTranscript(charset string) *Transcript {
	return &Transcript{charset: charset}
}

// Append 追加收到的字节
func (t *Transcript) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	t.raw = collapseCR(append(t.raw, b...))
	t.lines = splitLines(util.DecodeLenient(t.raw, t.charset))
}

// Bytes 返回规范化后的完整字节副本
func (t *Transcript) Bytes() []byte {
	out := make([]byte, len(t.raw))
	copy(out, t.raw)
	return out
}

// Lines 返回行视图副本
func (t *Transcript) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// LineCount 当前行数
func (t *Transcript) LineCount() int {
	return len(t.lines)
}

// OpenLineIndex 下一个到达的字节将落在哪一行
// 缓冲区以换行结尾（或为空）时为新行，否则为最后一行（通常是提示符，回显会接在其后）
func (t *Transcript) OpenLineIndex() int {
	n := len(t.raw)
	if n == 0 {
		return 0
	}
	switch t.raw[n-1] {
	case '\n', '\r', '\v', '\f':
		return len(t.lines)
	}
	return len(t.lines) - 1
}

// String 解码后的完整文本
func (t *Transcript) String() string {
	return util.DecodeLenient(t.raw, t.charset)
}

// LinesOf 对任意字节做与 Transcript 相同的规范化和分行
func LinesOf(b []byte, charset string) []string {
	return splitLines(util.DecodeLenient(collapseCR(append([]byte(nil), b...)), charset))
}

// collapseCR 将连续的 CR 折叠为一个，原地改写 b
// 折叠是幂等的，所以逐块追加和一次性处理结果一致
func collapseCR(b []byte) []byte {
	out := b[:0]
	for _, c := range b {
		if c == '\r' && len(out) > 0 && out[len(out)-1] == '\r' {
			continue
		}
		out = append(out, c)
	}
	return out
}

// splitLines 按 \r\n、\r、\n、\v、\f 分行，末尾的换行不产生空行
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		case '\n', '\v', '\f':
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
