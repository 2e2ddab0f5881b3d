package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
	"github.com/sshcollectorpro/consolepilot/pkg/ssh"
)

// Runner 为单台设备建立控制台会话
// 会话与设备期限绑定：ctx 结束时关闭传输，阻塞中的读取随之返回
type Runner struct {
	cfg *config.Config
}

// NewRunner 创建会话执行器
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg}
}

func (r *Runner) protocol(dev DeviceTarget) string {
	p := strings.ToLower(strings.TrimSpace(dev.Protocol))
	if p == "" {
		p = strings.ToLower(r.cfg.Console.DefaultProtocol)
	}
	if p == "" {
		p = "telnet"
	}
	return p
}

func (r *Runner) port(dev DeviceTarget) int {
	if dev.Port > 0 && dev.Port <= 65535 {
		return dev.Port
	}
	if r.protocol(dev) == "ssh" {
		return 22
	}
	return 23
}

// Profile 解析设备平台并套用配置覆盖
func (r *Runner) Profile(platform string) (console.Profile, error) {
	name := strings.ToLower(strings.TrimSpace(platform))
	return interact.Resolve(name, r.cfg.Console.OverridesFor(name))
}

func (r *Runner) dial(ctx context.Context, dev DeviceTarget) (io.ReadWriteCloser, error) {
	addr := net.JoinHostPort(dev.DeviceIP, strconv.Itoa(r.port(dev)))
	timeout := r.cfg.Console.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	switch r.protocol(dev) {
	case "telnet":
		return console.DialTelnet(ctx, addr, timeout)
	case "ssh":
		user := dev.SSHUser
		if user == "" {
			user = dev.UserName
		}
		password := dev.SSHPassword
		if password == "" {
			password = dev.Password
		}
		return ssh.Dial(ctx, &ssh.Config{Timeout: timeout}, &ssh.ConnectionInfo{
			Host:     dev.DeviceIP,
			Port:     r.port(dev),
			Username: user,
			Password: password,
			KeyFile:  dev.SSHKeyFile,
		})
	default:
		return nil, fmt.Errorf("unsupported protocol %q", dev.Protocol)
	}
}

// Open 连接设备并创建会话，调用方负责 Close
func (r *Runner) Open(ctx context.Context, dev DeviceTarget, taskID string) (*console.Session, error) {
	profile, err := r.Profile(dev.DevicePlatform)
	if err != nil {
		return nil, err
	}
	conn, err := r.dial(ctx, dev)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", console.ErrTransport, err)
	}
	entry := logger.WithFields(logrus.Fields{
		"task_id":     taskID,
		"device_ip":   dev.DeviceIP,
		"device_name": dev.DeviceName,
		"protocol":    r.protocol(dev),
	})
	return console.Open(conn, profile, console.WithLogger(entry)), nil
}

// Run 打开会话执行 fn，结束后关闭会话
// 只在连接阶段失败时重试，已开始交互的会话不重放
func (r *Runner) Run(ctx context.Context, dev DeviceTarget, taskID string, retries int, fn func(*console.Session) error) error {
	var sess *console.Session
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			logger.WithFields(logrus.Fields{"task_id": taskID, "device_ip": dev.DeviceIP, "attempt": attempt}).Warn("retrying console connection")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		sess, err = r.Open(ctx, dev, taskID)
		if err == nil || !errors.Is(err, console.ErrTransport) {
			break
		}
	}
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
	defer func() {
		stop()
		_ = sess.Close()
		logger.WithFields(logrus.Fields{"task_id": taskID, "device_ip": dev.DeviceIP, "lines": sess.Transcript().LineCount()}).Debug("console transcript closed")
	}()

	err = fn(sess)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// deviceSettings 单台设备的超时与重试：请求值优先，其次平台默认，最后全局配置
func (r *Runner) deviceSettings(platform string, reqTimeout, reqRetries *int) (time.Duration, int) {
	timeout := r.cfg.Console.TaskTimeout
	retries := r.cfg.Console.Retries
	if p, ok := interact.Get(strings.ToLower(strings.TrimSpace(platform))); ok {
		d := p.Defaults()
		if d.Timeout > 0 {
			timeout = time.Duration(d.Timeout) * time.Second
		}
		if d.Retries > 0 {
			retries = d.Retries
		}
	}
	if reqTimeout != nil && *reqTimeout > 0 {
		timeout = time.Duration(*reqTimeout) * time.Second
	}
	if reqRetries != nil && *reqRetries >= 0 {
		retries = *reqRetries
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return timeout, retries
}

// concurrency 批量任务的会话并发上限
func (r *Runner) concurrency() int {
	if n := r.cfg.Console.Concurrent; n > 0 {
		return n
	}
	return 1
}
