package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config SSH配置
type Config struct {
	Timeout   time.Duration `yaml:"timeout"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Client SSH客户端，只承载一个交互式 shell
type Client struct {
	config     *Config
	connection *ssh.Client
	mutex      sync.RWMutex
	info       *ConnectionInfo
	cancel     context.CancelFunc
}

// ConnectionInfo SSH连接信息
type ConnectionInfo struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	KeyFile  string `json:"key_file,omitempty"`
}

// NewClient 创建SSH客户端
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{Timeout: 10 * time.Second}
	}
	return &Client{config: config}
}

// 网络设备的 SSH 实现普遍较旧，协商列表保留 sha1/cbc 等算法
var (
	kexAlgos = []string{
		"curve25519-sha256", "ecdh-sha2-nistp256", "ecdh-sha2-nistp384", "ecdh-sha2-nistp521",
		"diffie-hellman-group14-sha256", "diffie-hellman-group14-sha1", "diffie-hellman-group1-sha1",
		"diffie-hellman-group-exchange-sha256", "diffie-hellman-group-exchange-sha1",
	}
	cipherAlgos = []string{
		"aes128-gcm@openssh.com", "aes256-gcm@openssh.com",
		"aes128-ctr", "aes192-ctr", "aes256-ctr",
		"aes128-cbc", "aes192-cbc", "aes256-cbc", "3des-cbc",
	}
	macAlgos     = []string{"hmac-sha2-256-etm@openssh.com", "hmac-sha2-256", "hmac-sha1", "hmac-sha1-96"}
	hostKeyAlgos = []string{
		"ssh-ed25519", "ecdsa-sha2-nistp256", "ecdsa-sha2-nistp384", "ecdsa-sha2-nistp521",
		"rsa-sha2-512", "rsa-sha2-256", "ssh-rsa",
	}
)

// authMethods 私钥优先；密码同时走 password 与 keyboard-interactive
func authMethods(info *ConnectionInfo) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if info.KeyFile != "" {
		signer, err := loadKey(info.KeyFile)
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if info.Password == "" {
		return methods, nil
	}
	answer := func(_, _ string, questions []string, _ []bool) ([]string, error) {
		out := make([]string, len(questions))
		for i := range out {
			out[i] = info.Password
		}
		return out, nil
	}
	return append(methods, ssh.Password(info.Password), ssh.KeyboardInteractive(answer)), nil
}

func (c *Client) clientConfig(info *ConnectionInfo) (*ssh.ClientConfig, error) {
	auth, err := authMethods(info)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:              info.Username,
		Auth:              auth,
		HostKeyCallback:   ssh.InsecureIgnoreHostKey(),
		HostKeyAlgorithms: hostKeyAlgos,
		Timeout:           c.config.Timeout,
		Config:            ssh.Config{KeyExchanges: kexAlgos, Ciphers: cipherAlgos, MACs: macAlgos},
	}, nil
}

// Connect 拨号并完成 SSH 握手，ctx 只约束拨号阶段
func (c *Client) Connect(ctx context.Context, info *ConnectionInfo) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cfg, err := c.clientConfig(info)
	if err != nil {
		return err
	}
	c.info = info

	addr := net.JoinHostPort(info.Host, strconv.Itoa(info.Port))
	raw, err := (&net.Dialer{Timeout: c.config.Timeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	conn, chans, reqs, err := ssh.NewClientConn(raw, addr, cfg)
	if err != nil {
		raw.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	c.connection = ssh.NewClient(conn, chans, reqs)

	kaCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.keepAlive(kaCtx)
	return nil
}

func loadKey(path string) (ssh.Signer, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(bs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	return signer, nil
}

// openSession 打开会话通道
// 部分设备刚认证完立即开通道会回 "administratively prohibited"，按退避重试
func (c *Client) openSession() (*ssh.Session, error) {
	c.mutex.RLock()
	conn := c.connection
	c.mutex.RUnlock()
	if conn == nil {
		return nil, errors.New("ssh connection not established")
	}

	var err error
	for _, wait := range []time.Duration{0, 200 * time.Millisecond, 500 * time.Millisecond, time.Second} {
		time.Sleep(wait)
		var sess *ssh.Session
		if sess, err = conn.NewSession(); err == nil {
			return sess, nil
		}
		if !channelRefused(err) {
			break
		}
	}
	return nil, err
}

func channelRefused(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "prohibited") || strings.Contains(msg, "open failed")
}

// Shell 交互式 shell 的字节流，关闭时同时断开 SSH 连接
type Shell struct {
	client  *Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	once    sync.Once
	err     error
}

// OpenShell 申请伪终端并启动 shell，终端类型依次回退
func (c *Client) OpenShell() (*Shell, error) {
	session, err := c.openSession()
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	shell, err := startShell(session)
	if err != nil {
		session.Close()
		return nil, err
	}
	shell.client = c
	return shell, nil
}

func startShell(session *ssh.Session) (*Shell, error) {
	modes := ssh.TerminalModes{ssh.ECHO: 1, ssh.TTY_OP_ISPEED: 14400, ssh.TTY_OP_OSPEED: 14400}
	var err error
	for _, term := range []string{"vt100", "xterm", "ansi", "dumb"} {
		if err = session.RequestPty(term, 200, 80, modes); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("request pty: %w", err)
	}
	sh := &Shell{session: session}
	if sh.stdin, err = session.StdinPipe(); err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	if sh.stdout, err = session.StdoutPipe(); err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err = session.Shell(); err != nil {
		return nil, fmt.Errorf("start shell: %w", err)
	}
	return sh, nil
}

func (s *Shell) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *Shell) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Close 关闭 shell 与连接，只执行一次
func (s *Shell) Close() error {
	s.once.Do(func() {
		_ = s.stdin.Close()
		_ = s.session.Close()
		s.err = s.client.Close()
	})
	return s.err
}

// Dial 连接并打开 shell；失败时释放已建立的连接
func Dial(ctx context.Context, config *Config, info *ConnectionInfo) (*Shell, error) {
	c := NewClient(config)
	if err := c.Connect(ctx, info); err != nil {
		return nil, err
	}
	shell, err := c.OpenShell()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return shell, nil
}

// Close 关闭SSH连接
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.connection != nil {
		err := c.connection.Close()
		c.connection = nil
		return err
	}
	return nil
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	conn := c.connection
	c.mutex.RUnlock()
	if conn == nil {
		return false
	}
	// 发送 keepalive 请求而不创建会话，避免触发设备的会话数量限制
	_, _, err := conn.SendRequest("keepalive@openssh.com", false, nil)
	return err == nil
}

// keepAlive 保持连接活跃
func (c *Client) keepAlive(ctx context.Context) {
	if c.config.KeepAlive <= 0 {
		return
	}

	ticker := time.NewTicker(c.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.IsConnected() {
				// 连接已断开，主动关闭，阻塞中的读取随之返回
				c.mutex.Lock()
				if c.connection != nil {
					_ = c.connection.Close()
					c.connection = nil
				}
				c.mutex.Unlock()
				return
			}
		}
	}
}
