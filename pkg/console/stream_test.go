package console

import (
	"io"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPipeStream(t *testing.T) (*Stream, net.Conn) {
	t.Helper()
	client, device := net.Pipe()
	s := NewStream(client, "\n", "")
	t.Cleanup(func() {
		s.Close()
		device.Close()
	})
	return s, device
}

func TestStreamExpectMatchKeepsRemainder(t *testing.T) {
	s, device := newPipeStream(t)
	go device.Write([]byte("Password: extra"))

	res, err := s.Expect([]*regexp.Regexp{regexp.MustCompile(`Password:`)}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, "Password:", string(res.Match))
	assert.Equal(t, "Password:", string(res.Data))
	assert.Equal(t, "Password:", string(s.Transcript().Bytes()))

	// 匹配之后的字节留给下一次调用
	res, err = s.Expect([]*regexp.Regexp{regexp.MustCompile(`never`)}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Timeout())
	assert.Equal(t, " extra", string(res.Data))
	assert.Equal(t, "Password: extra", string(s.Transcript().Bytes()))
}

func TestStreamExpectHonorsListOrder(t *testing.T) {
	s, device := newPipeStream(t)
	go device.Write([]byte("switch(config)# "))

	patterns := []*regexp.Regexp{
		regexp.MustCompile(`\w+\(.*\)\# $`),
		regexp.MustCompile(`\# $`),
	}
	res, err := s.Expect(patterns, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Index, "两个模式都匹配时取列表中靠前的")
}

func TestStreamExpectTimeoutLogsEverything(t *testing.T) {
	s, device := newPipeStream(t)
	go device.Write([]byte("booting kernel...\r\n"))

	// 等待数据进入缓冲
	time.Sleep(20 * time.Millisecond)
	res, err := s.Expect([]*regexp.Regexp{regexp.MustCompile(`login: $`)}, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Timeout())
	assert.Equal(t, "booting kernel...\r\n", string(res.Data))
	assert.Equal(t, []string{"booting kernel..."}, s.Transcript().Lines())
}

func TestStreamExpectSilentTimeout(t *testing.T) {
	s, _ := newPipeStream(t)
	start := time.Now()
	res, err := s.Expect([]*regexp.Regexp{regexp.MustCompile(`x`)}, 30*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Timeout())
	assert.Empty(t, res.Data)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestStreamExpectEOF(t *testing.T) {
	s, device := newPipeStream(t)
	go func() {
		device.Write([]byte("bye\r\n"))
		device.Close()
	}()

	res, err := s.Expect([]*regexp.Regexp{regexp.MustCompile(`login: $`)}, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, res.Timeout())
	assert.Equal(t, []string{"bye"}, s.Transcript().Lines())
}

func TestStreamWriteLine(t *testing.T) {
	s, device := newPipeStream(t)
	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := device.Read(buf)
		got <- string(buf[:n])
	}()

	require.NoError(t, s.WriteLine("show"))
	assert.Equal(t, "show\n", <-got)

	assert.ErrorIs(t, s.WriteLine("配置"), ErrNonASCII)
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	s, _ := newPipeStream(t)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write([]byte{Interrupt}), ErrClosed)

	_, err := s.Expect([]*regexp.Regexp{regexp.MustCompile(`x`)}, time.Second)
	assert.Error(t, err)
}

func TestStreamTimeoutConsumesPartialPrompt(t *testing.T) {
	s, device := newPipeStream(t)
	password := []*regexp.Regexp{regexp.MustCompile(`Password:`)}

	go device.Write([]byte("Pass"))
	res, err := s.Expect(password, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Timeout())
	assert.Equal(t, "Pass", string(res.Data))

	go device.Write([]byte("word: "))
	res, err = s.Expect(password, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Timeout(), "前半段已随超时交出，后半段单独无法匹配")
	assert.Equal(t, "word: ", string(res.Data))
	assert.Equal(t, "Password: ", s.Transcript().String())
}
