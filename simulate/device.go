package simulate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// DeviceConfig 单台模拟设备
type DeviceConfig struct {
	Platform string `mapstructure:"platform"`
	Hostname string `mapstructure:"hostname"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Config 初始配置行（VyOS 为 set 命令，NX-OS 为 running-config 行）
	Config []string `mapstructure:"config"`
	// Provisioning 为 true 时首次连接停在 POAP 询问（仅 NX-OS）
	Provisioning bool `mapstructure:"provisioning"`
	// Quiet 为 true 时连接后不主动输出，直到收到输入
	Quiet bool `mapstructure:"quiet"`
}

// Device 模拟设备，配置在多个连接之间共享
type Device struct {
	cfg DeviceConfig
	p   personality

	mu       sync.Mutex
	hostname string
	running  []string
	startup  []string
	poapDone bool
}

// NewDevice 创建模拟设备
func NewDevice(cfg DeviceConfig) (*Device, error) {
	d := &Device{cfg: cfg}
	switch cfg.Platform {
	case "vyos":
		d.p = vyos{}
		d.hostname = chooseNonEmpty(cfg.Hostname, "vyos")
	case "nxos":
		d.p = nxos{}
		d.hostname = chooseNonEmpty(cfg.Hostname, "switch")
	default:
		return nil, fmt.Errorf("unsupported simulated platform %q", cfg.Platform)
	}
	d.running = append([]string(nil), cfg.Config...)
	d.startup = append([]string(nil), cfg.Config...)
	d.poapDone = !cfg.Provisioning
	return d, nil
}

// Platform 设备平台
func (d *Device) Platform() string {
	return d.cfg.Platform
}

// Running 当前生效配置（VyOS 为已提交配置）
func (d *Device) Running() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.running...)
}

// Startup 已保存的启动配置
func (d *Device) Startup() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.startup...)
}

// Committed 不可被放弃的配置：VyOS 为已提交配置，NX-OS 为启动配置
func (d *Device) Committed() []string {
	if d.cfg.Platform == "nxos" {
		return d.Startup()
	}
	return d.Running()
}

// Hostname 当前主机名
func (d *Device) Hostname() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hostname
}

type state int

const (
	stateLogin state = iota
	statePassword
	stateOper
	stateConfig
	statePOAP
)

// personality 平台行为
type personality interface {
	greet(s *session)
	handle(s *session, line string)
	interrupt(s *session)
	endOfTransmission(s *session)
}

// session 一个控制台连接
type session struct {
	dev       *Device
	w         io.Writer
	state     state
	user      string
	candidate []string
	err       error
}

func (s *session) print(parts ...string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, strings.Join(parts, ""))
}

// Serve 在给定连接上运行控制台，直到对端关闭
func (d *Device) Serve(rw io.ReadWriter) error {
	s := &session{dev: d, w: rw, state: stateLogin}
	d.mu.Lock()
	if !d.poapDone {
		s.state = statePOAP
	}
	d.mu.Unlock()

	if !d.cfg.Quiet {
		d.p.greet(s)
	}

	r := bufio.NewReader(rw)
	var line []byte
	lastCR := false
	for s.err == nil {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
		switch b {
		case 0x03:
			line = line[:0]
			d.p.interrupt(s)
		case 0x04:
			if len(line) == 0 {
				d.p.endOfTransmission(s)
			}
		case '\r', '\n':
			if b == '\n' && lastCR {
				lastCR = false
				continue
			}
			text := string(line)
			line = line[:0]
			if s.state != statePassword {
				s.print(text, "\r\n")
			}
			logger.Debugf("Simulate: %s input %q", d.cfg.Platform, text)
			d.p.handle(s, strings.TrimSpace(text))
		default:
			line = append(line, b)
		}
		lastCR = b == '\r'
	}
	return s.err
}

// login 校验用户名密码
func (s *session) login(password string) bool {
	return s.user == s.dev.cfg.Username && password == s.dev.cfg.Password
}

func chooseNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func crlf(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
