package simulate

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh"

	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// Config simulate.yaml 配置结构
type Config struct {
	// HostKey SSH 命名空间使用的主机密钥文件，为空时每次启动生成
	HostKey   string                     `mapstructure:"host_key"`
	Namespace map[string]NamespaceConfig `mapstructure:"namespace"`
	Device    map[string]DeviceConfig    `mapstructure:"device"`
}

// NamespaceConfig 每个命名空间监听一个端口，挂载一台设备的控制台
type NamespaceConfig struct {
	Port int `mapstructure:"port"`
	// Protocol telnet（原始 TCP 控制台）或 ssh
	Protocol    string `mapstructure:"protocol"`
	Device      string `mapstructure:"device"`
	IdleSeconds int    `mapstructure:"idle_seconds"`
	MaxConn     int    `mapstructure:"max_conn"`
}

// Manager 管理多个命名空间的控制台服务
type Manager struct {
	devices   map[string]*Device
	nsServers map[string]*namespaceServer
	mu        sync.Mutex
}

type namespaceServer struct {
	nsName   string
	cfg      NamespaceConfig
	device   *Device
	listener net.Listener
	hostKey  ssh.Signer
	active   int
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// LoadConfig 读取 simulate/simulate.yaml
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read simulate config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simulate config: %w", err)
	}
	return &cfg, nil
}

// Start 创建设备并启动所有命名空间；任一命名空间失败则全部停止
func Start(simCfg *Config) (*Manager, error) {
	m := &Manager{
		devices:   make(map[string]*Device),
		nsServers: make(map[string]*namespaceServer),
	}
	for name, dc := range simCfg.Device {
		d, err := NewDevice(dc)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", name, err)
		}
		m.devices[name] = d
	}

	var signer ssh.Signer
	for ns, nsCfg := range simCfg.Namespace {
		d, ok := m.devices[nsCfg.Device]
		if !ok {
			m.Stop()
			return nil, fmt.Errorf("namespace %s: unknown device %q", ns, nsCfg.Device)
		}
		srv := &namespaceServer{nsName: ns, cfg: nsCfg, device: d}
		if nsCfg.Protocol == "ssh" {
			if signer == nil {
				var err error
				if signer, err = loadOrCreateHostKey(simCfg.HostKey); err != nil {
					m.Stop()
					return nil, err
				}
			}
			srv.hostKey = signer
		}
		if err := srv.start(); err != nil {
			m.Stop()
			return nil, fmt.Errorf("namespace %s: %w", ns, err)
		}
		m.nsServers[ns] = srv
		logger.Infof("Simulate: namespace %s (%s, %s) listening on %s", ns, nsCfg.Device, chooseNonEmpty(nsCfg.Protocol, "telnet"), srv.listener.Addr())
	}
	return m, nil
}

// Device 按名称取模拟设备
func (m *Manager) Device(name string) (*Device, bool) {
	d, ok := m.devices[name]
	return d, ok
}

// Addr 命名空间的监听地址
func (m *Manager) Addr(ns string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	srv, ok := m.nsServers[ns]
	if !ok || srv.listener == nil {
		return "", false
	}
	return srv.listener.Addr().String(), true
}

// Namespaces 已启动的命名空间名称
func (m *Manager) Namespaces() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.nsServers))
	for ns := range m.nsServers {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Stop 停止所有模拟服务
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ns, srv := range m.nsServers {
		srv.stop()
		logger.Infof("Simulate: namespace %s stopped", ns)
	}
	m.nsServers = make(map[string]*namespaceServer)
}

// loadOrCreateHostKey 加载或生成 RSA 主机密钥；path 为空时只在内存中生成
func loadOrCreateHostKey(path string) (ssh.Signer, error) {
	if path != "" {
		if bs, err := os.ReadFile(path); err == nil {
			signer, err := ssh.ParsePrivateKey(bs)
			if err == nil {
				return signer, nil
			}
			logger.Warnf("Simulate: host key %s unreadable, regenerating: %v", path, err)
		}
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write host key: %w", err)
		}
	}
	return ssh.ParsePrivateKey(pemBytes)
}

func (s *namespaceServer) start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logger.Warnf("Simulate: accept error on %s: %v", s.nsName, err)
				time.Sleep(200 * time.Millisecond)
				continue
			}
			s.mu.Lock()
			if s.cfg.MaxConn > 0 && s.active >= s.cfg.MaxConn {
				s.mu.Unlock()
				_ = conn.Close()
				logger.Warnf("Simulate: reject connection on %s, max_conn exceeded", s.nsName)
				continue
			}
			s.active++
			s.mu.Unlock()

			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handleConn(c)
				s.mu.Lock()
				s.active--
				s.mu.Unlock()
			}(conn)
		}
	}()
	return nil
}

func (s *namespaceServer) stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *namespaceServer) handleConn(nc net.Conn) {
	defer nc.Close()
	var c net.Conn = nc
	if s.cfg.IdleSeconds > 0 {
		c = &idleConn{Conn: nc, idle: time.Duration(s.cfg.IdleSeconds) * time.Second}
	}
	if s.cfg.Protocol == "ssh" {
		s.serveSSH(c)
		return
	}
	if err := s.device.Serve(c); err != nil {
		logger.Debugf("Simulate: console %s ended: %v", s.nsName, err)
	}
}

// serveSSH 完成 SSH 握手后在 shell 通道上运行控制台
// SSH 认证使用设备的控制台口令，登录提示符仍由控制台给出
func (s *namespaceServer) serveSSH(nc net.Conn) {
	want := s.device.cfg.Password
	srvCfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if string(password) == want {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied")
		},
		KeyboardInteractiveCallback: func(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(meta.User(), "Authentication", []string{"Password:"}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) > 0 && answers[0] == want {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied")
		},
	}
	srvCfg.AddHostKey(s.hostKey)

	conn, chans, reqs, err := ssh.NewServerConn(nc, srvCfg)
	if err != nil {
		logger.Debugf("Simulate: SSH handshake failed on %s: %v", s.nsName, err)
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for ch := range chans {
		if ch.ChannelType() != "session" {
			ch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := ch.Accept()
		if err != nil {
			logger.Warnf("Simulate: channel accept failed: %v", err)
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *namespaceServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req", "env", "window-change":
			req.Reply(true, nil)
		case "shell":
			req.Reply(true, nil)
			go ssh.DiscardRequests(requests)
			if err := s.device.Serve(channel); err != nil {
				logger.Debugf("Simulate: ssh console %s ended: %v", s.nsName, err)
			}
			return
		default:
			req.Reply(false, nil)
		}
	}
}

// idleConn 每次读之前刷新读超时
type idleConn struct {
	net.Conn
	idle time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}
