package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptCollapsesCarriageReturns(t *testing.T) {
	tr := NewTranscript("")
	tr.Append([]byte("line one\r\r\nline two\r\r\r\nvyos@vyos:~$ "))

	assert.Equal(t, "line one\r\nline two\r\nvyos@vyos:~$ ", string(tr.Bytes()))
	assert.Equal(t, []string{"line one", "line two", "vyos@vyos:~$ "}, tr.Lines())
}

func TestTranscriptIncrementalMatchesBatch(t *testing.T) {
	chunks := [][]byte{
		[]byte("Welcome\r"),
		[]byte("\r\nvyos login: "),
		[]byte("admin\r"),
		[]byte("\r"),
		[]byte("\nPassword: \r\n"),
		{0xE8, 0xAE},
		{0xBE, '\r', '\n'},
		[]byte("vyos@vyos:~$ "),
	}

	tr := NewTranscript("")
	var all []byte
	for _, c := range chunks {
		tr.Append(c)
		all = append(all, c...)
		assert.Equal(t, LinesOf(all, ""), tr.Lines(), "逐块追加必须与一次性处理结果一致")
	}
	assert.Equal(t, "vyos@vyos:~$ ", tr.Lines()[tr.LineCount()-1])
	assert.Contains(t, tr.Lines(), "设")
}

func TestTranscriptLinesArePureFunctionOfBuffer(t *testing.T) {
	a := NewTranscript("")
	b := NewTranscript("")
	a.Append([]byte("x\r\ny"))
	a.Append([]byte("z\n"))
	b.Append([]byte("x\r\nyz\n"))
	assert.Equal(t, a.Lines(), b.Lines())
	assert.Equal(t, []string{"x", "yz"}, a.Lines())
}

func TestTranscriptOpenLineIndex(t *testing.T) {
	tr := NewTranscript("")
	assert.Equal(t, 0, tr.OpenLineIndex())

	tr.Append([]byte("banner\r\n"))
	assert.Equal(t, 1, tr.OpenLineIndex())

	tr.Append([]byte("switch# "))
	assert.Equal(t, 1, tr.OpenLineIndex(), "提示符行尚未结束，回显会接在其后")

	tr.Append([]byte("show running-config\r\n"))
	assert.Equal(t, 2, tr.OpenLineIndex())
	assert.Equal(t, "switch# show running-config", tr.Lines()[1])
}

func TestTranscriptInvalidBytesNeverFail(t *testing.T) {
	tr := NewTranscript("")
	tr.Append([]byte{0xFF, 0xFE, '\n', 'o', 'k'})
	assert.Equal(t, 2, tr.LineCount())
	assert.Equal(t, "ok", tr.Lines()[1])
}

func TestTranscriptLegacyCharset(t *testing.T) {
	tr := NewTranscript("gbk")
	tr.Append([]byte{0xC9, 0xE8, 0xB1, 0xB8, '\r', '\n'})
	assert.Equal(t, []string{"设备"}, tr.Lines())
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a"}, splitLines("a\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
	assert.Equal(t, []string{"a", "b", "c"}, splitLines("a\rb\r\nc"))
}
