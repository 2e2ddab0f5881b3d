package console

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// Session 单台设备的控制台会话
// 同一时刻只允许一个调用方使用
type Session struct {
	transport Transport
	profile   Profile
	mode      Mode
	log       *logrus.Entry

	// 最近一次命令的回显行与其后提示符所在行
	lastEcho   int
	lastPrompt int

	closeOnce sync.Once
	closeErr  error
}

// Option 会话选项
type Option func(*Session)

// WithLogger 指定日志条目（通常带有设备字段）
func WithLogger(entry *logrus.Entry) Option {
	return func(s *Session) {
		if entry != nil {
			s.log = entry.WithField("profile", s.profile.Name)
		}
	}
}

// NewSession 在已建立的传输上创建会话，初始模式为 ModeUnknown
func NewSession(t Transport, p Profile, opts ...Option) *Session {
	s := &Session{
		transport: t,
		profile:   p.WithDefaults(),
		mode:      ModeUnknown,
	}
	s.log = logger.WithField("profile", s.profile.Name)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open 在原始连接上创建 Stream 与会话
func Open(conn io.ReadWriteCloser, p Profile, opts ...Option) *Session {
	p = p.WithDefaults()
	return NewSession(NewStream(conn, p.LineEnding, p.Charset), p, opts...)
}

// Mode 当前模式
func (s *Session) Mode() Mode {
	return s.mode
}

// Profile 会话使用的设备类型
func (s *Session) Profile() Profile {
	return s.profile
}

// Transcript 会话记录
func (s *Session) Transcript() *Transcript {
	return s.transport.Transcript()
}

// Close 释放连接，只执行一次
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		// 可能由期限协程调用，此时会话协程仍在读取记录，这里不访问 Transcript
		s.closeErr = s.transport.Close()
		s.log.Debug("console session closed")
	})
	return s.closeErr
}

func (s *Session) fail(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Mode: s.mode, Err: err}
}

func (s *Session) transportFail(op string, err error) error {
	kind := ErrTransport
	switch {
	case errors.Is(err, ErrClosed):
		kind = ErrClosed
	case errors.Is(err, ErrNonASCII):
		kind = ErrNonASCII
	}
	return s.fail(op, kind, err)
}

// resolveMode 模式未知时先等待提示符
func (s *Session) resolveMode(op string) error {
	if s.mode != ModeUnknown {
		return nil
	}
	return s.AwaitKnownMode(op)
}

// SendCommand 发送一行命令，expectPrompt 为 true 时等待提示符
// 只在操作模式或配置模式下可用，否则返回 ErrNotAuthenticated
func (s *Session) SendCommand(command string, expectPrompt bool) error {
	if err := s.resolveMode(command); err != nil {
		return err
	}
	if s.mode != ModeOperational && s.mode != ModeConfiguration {
		return s.fail(command, ErrNotAuthenticated, nil)
	}
	return s.sendLine(command, expectPrompt)
}

// sendLine 不检查模式，供登录、POAP 等内部流程使用
func (s *Session) sendLine(command string, expectPrompt bool) error {
	s.lastEcho = s.Transcript().OpenLineIndex()
	if err := s.transport.WriteLine(command); err != nil {
		return s.transportFail(command, err)
	}
	if !expectPrompt {
		return nil
	}
	if err := s.AwaitKnownMode(command); err != nil {
		return err
	}
	s.lastPrompt = s.Transcript().LineCount() - 1
	return nil
}

// SendControl 发送单个控制字符（不追加换行）
func (s *Session) SendControl(c byte, expectPrompt bool) error {
	label := controlLabel(c)
	if err := s.transport.Write([]byte{c}); err != nil {
		return s.transportFail(label, err)
	}
	if !expectPrompt {
		return nil
	}
	return s.AwaitKnownMode(label)
}

func controlLabel(c byte) string {
	if c < 0x20 {
		return "^" + string(rune(c+'@'))
	}
	return fmt.Sprintf("0x%02x", c)
}

// Login 登录到操作模式
// 已登录时先注销再登录；成功后关闭分页
func (s *Session) Login(username, password string) error {
	const op = "login"
	if err := s.resolveMode(op); err != nil {
		return err
	}
	if s.mode == ModeProvisioning {
		if err := s.SkipProvisioning(); err != nil {
			return err
		}
	}
	if s.mode == ModeConfiguration {
		if err := s.leaveConfiguration(op, false, false); err != nil {
			return err
		}
	}
	if s.mode == ModeOperational {
		if err := s.Logout(); err != nil {
			return err
		}
	}

	if s.mode == ModeLoggedOut {
		if err := s.transport.WriteLine(username); err != nil {
			return s.transportFail(op, err)
		}
		res, err := s.transport.Expect([]*regexp.Regexp{s.profile.PasswordPrompt}, s.profile.Timeout)
		if err != nil {
			s.mode = ModeUnknown
			return s.transportFail(op, err)
		}
		if res.Timeout() {
			s.mode = ModeUnknown
			return s.fail(op, ErrUnexpectedPattern, fmt.Errorf("password prompt %q not seen", s.profile.PasswordPrompt))
		}
		if err := s.transport.WriteLine(password); err != nil {
			return s.transportFail(op, err)
		}
		if err := s.AwaitKnownMode(op); err != nil {
			return err
		}
		if s.mode == ModeOperational && s.profile.DisablePaging != "" {
			if err := s.sendLine(s.profile.DisablePaging, true); err != nil {
				return err
			}
		}
	}

	if s.mode != ModeOperational {
		return s.fail(op, ErrLoginFailed, nil)
	}
	s.log.WithField("user", username).Info("console login succeeded")
	return nil
}

// Logout 注销到登录提示符，配置模式下先放弃未提交的修改
func (s *Session) Logout() error {
	const op = "logout"
	if err := s.resolveMode(op); err != nil {
		return err
	}
	if s.mode == ModeConfiguration {
		if err := s.leaveConfiguration(op, false, false); err != nil {
			return err
		}
	}
	if s.mode == ModeOperational {
		var err error
		if s.profile.LogoutControl != 0 {
			err = s.SendControl(s.profile.LogoutControl, true)
		} else {
			err = s.sendLine(s.profile.LogoutCommand, true)
		}
		if err != nil {
			return err
		}
	}
	if s.mode != ModeLoggedOut {
		return s.fail(op, ErrLogoutFailed, nil)
	}
	s.log.Info("console logout succeeded")
	return nil
}

// SkipProvisioning 在 POAP 询问处选择跳过
func (s *Session) SkipProvisioning() error {
	const op = "skip_provisioning"
	if err := s.resolveMode(op); err != nil {
		return err
	}
	if s.mode != ModeProvisioning || s.profile.ProvisioningSkip == "" {
		return s.fail(op, ErrProvisioning, nil)
	}
	return s.sendLine(s.profile.ProvisioningSkip, true)
}

// Configure 进入配置模式逐行下发命令
// commit 为 false 时放弃修改退出；commit 与 save 同时为 true 时保存到启动配置
func (s *Session) Configure(commands string, commit, save bool) error {
	const op = "configure"
	if err := s.enterConfiguration(op); err != nil {
		return err
	}
	for _, line := range splitLines(commands) {
		if err := s.sendLine(line, true); err != nil {
			return err
		}
	}
	return s.leaveConfiguration(op, commit, save)
}

func (s *Session) enterConfiguration(op string) error {
	if err := s.resolveMode(op); err != nil {
		return err
	}
	if s.mode != ModeOperational && s.mode != ModeConfiguration {
		return s.fail(op, ErrNotAuthenticated, nil)
	}
	if s.mode == ModeOperational {
		if err := s.sendLine(s.profile.EnterConfig, true); err != nil {
			return err
		}
	}
	if s.mode != ModeConfiguration {
		return s.fail(op, ErrConfigUnreachable, nil)
	}
	return nil
}

func (s *Session) leaveConfiguration(op string, commit, save bool) error {
	if s.mode == ModeConfiguration {
		var steps []string
		if commit {
			if s.profile.Commit != "" {
				steps = append(steps, s.profile.Commit)
			}
			if save && s.profile.SaveInConfig && s.profile.Save != "" {
				steps = append(steps, s.profile.Save)
			}
			steps = append(steps, s.profile.ExitConfig)
		} else {
			steps = append(steps, s.profile.ExitDiscard)
		}
		for _, cmd := range steps {
			if err := s.sendLine(cmd, true); err != nil {
				return err
			}
		}
	}
	if commit && save && !s.profile.SaveInConfig && s.profile.Save != "" && s.mode == ModeOperational {
		if err := s.sendLine(s.profile.Save, true); err != nil {
			return err
		}
	}
	if s.mode == ModeConfiguration {
		s.log.WithField("command", op).Warn("still in configuration mode after leaving")
	}
	return nil
}

// GetConfiguration 在配置模式下执行展示命令并返回配置文本（以 \n 连接）
func (s *Session) GetConfiguration(format Format) (string, error) {
	const op = "get_configuration"
	cmd, ok := s.profile.DisplayCommand(format)
	if !ok {
		return "", s.fail(op, ErrUnsupportedFormat, fmt.Errorf("format %q", format))
	}

	start := s.Transcript().LineCount()
	if err := s.enterConfiguration(op); err != nil {
		return "", err
	}
	if err := s.sendLine(cmd, true); err != nil {
		return "", err
	}
	echo, prompt := s.lastEcho, s.lastPrompt
	if err := s.leaveConfiguration(op, false, false); err != nil {
		return "", err
	}

	lines := s.Transcript().Lines()
	var out []string
	if s.profile.Extraction == ExtractionFixed {
		out = ExtractFixed(lines, start, s.profile.LeadingTrim, s.profile.TrailingTrim)
	} else {
		out = ExtractDelimited(lines, echo, prompt, s.profile.HeaderMarkers, s.profile.TrailerMarkers)
	}
	logger.DebugLines(cmd, out, 5)
	return strings.Join(out, "\n"), nil
}
