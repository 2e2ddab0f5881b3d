package console

import (
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"
)

// ExpectResult 一次 Expect 调用的结果
// Index 为 -1 表示超时，此时 Data 是本次调用期间收到的全部字节；
// 匹配成功时 Data 截止到匹配结尾，其后的字节留给下一次调用
type ExpectResult struct {
	Index int
	Match []byte
	Data  []byte
}

// Timeout 是否为超时结果
func (r ExpectResult) Timeout() bool {
	return r.Index < 0
}

// Transport 面向行的双向字节流
// 所有被消费的字节在调用返回前写入 Transcript
type Transport interface {
	Write(p []byte) error
	WriteLine(line string) error
	Expect(patterns []*regexp.Regexp, timeout time.Duration) (ExpectResult, error)
	Transcript() *Transcript
	Close() error
}

// Stream 基于 io.ReadWriteCloser 的 Transport 实现
// 后台读协程把收到的数据块送入通道，Expect 在调用方协程中消费
type Stream struct {
	conn       io.ReadWriteCloser
	transcript *Transcript
	lineEnding string

	chunks  chan []byte
	done    chan struct{}
	pending []byte
	readErr error

	closeOnce sync.Once
	closeErr  error
}

// NewStream 包装连接并启动读协程
func NewStream(conn io.ReadWriteCloser, lineEnding, charset string) *Stream {
	if lineEnding == "" {
		lineEnding = "\n"
	}
	s := &Stream{
		conn:       conn,
		transcript: NewTranscript(charset),
		lineEnding: lineEnding,
		chunks:     make(chan []byte, 64),
		done:       make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// Transcript 返回会话记录
func (s *Stream) Transcript() *Transcript {
	return s.transcript
}

// Write 原样写出字节（控制字符等）
func (s *Stream) Write(p []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if _, err := s.conn.Write(p); err != nil {
		return fmt.Errorf("write console: %w", err)
	}
	return nil
}

// WriteLine 写出一行文本并追加行结束符，只接受 7 位 ASCII
func (s *Stream) WriteLine(line string) error {
	for i := 0; i < len(line); i++ {
		if line[i] >= 0x80 {
			return fmt.Errorf("%w at offset %d", ErrNonASCII, i)
		}
	}
	return s.Write([]byte(line + s.lineEnding))
}

// Expect 等待任一模式匹配，按列表顺序决定优先级
// timeout 是整个调用的时限，超时不是错误；连接关闭或读失败才返回错误
func (s *Stream) Expect(patterns []*regexp.Regexp, timeout time.Duration) (ExpectResult, error) {
	if res, ok := s.match(patterns); ok {
		return res, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				err := s.readErr
				if err == nil {
					err = io.EOF
				}
				return ExpectResult{Index: -1, Data: s.drain()}, fmt.Errorf("read console: %w", err)
			}
			s.pending = append(s.pending, chunk...)
			if res, ok := s.match(patterns); ok {
				return res, nil
			}
		case <-timer.C:
			return ExpectResult{Index: -1, Data: s.drain()}, nil
		case <-s.done:
			return ExpectResult{Index: -1, Data: s.drain()}, ErrClosed
		}
	}
}

func (s *Stream) match(patterns []*regexp.Regexp) (ExpectResult, bool) {
	if len(s.pending) == 0 {
		return ExpectResult{}, false
	}
	for i, re := range patterns {
		loc := re.FindIndex(s.pending)
		if loc == nil {
			continue
		}
		data := make([]byte, loc[1])
		copy(data, s.pending[:loc[1]])
		rest := make([]byte, len(s.pending)-loc[1])
		copy(rest, s.pending[loc[1]:])
		s.pending = rest
		s.transcript.Append(data)
		return ExpectResult{Index: i, Match: data[loc[0]:], Data: data}, true
	}
	return ExpectResult{}, false
}

// drain 超时时交出全部未匹配字节；跨越超时边界的提示符前半段随之消费，不再参与下一次匹配
func (s *Stream) drain() []byte {
	data := s.pending
	s.pending = nil
	s.transcript.Append(data)
	return data
}

// Close 释放底层连接，可重复调用
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
