package simulate

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// readUntil 读取直到输出以 suffix 结尾
func readUntil(t *testing.T, c net.Conn, suffix string) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var sb strings.Builder
	buf := make([]byte, 256)
	for !strings.HasSuffix(sb.String(), suffix) {
		n, err := c.Read(buf)
		sb.Write(buf[:n])
		require.NoError(t, err, "output so far: %q", sb.String())
	}
	return sb.String()
}

func pipe(t *testing.T, d *Device) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	go d.Serve(server)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client
}

func send(t *testing.T, c net.Conn, s string) {
	t.Helper()
	require.NoError(t, c.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := c.Write([]byte(s))
	require.NoError(t, err)
}

func TestNewDeviceDefaults(t *testing.T) {
	d, err := NewDevice(DeviceConfig{Platform: "vyos"})
	require.NoError(t, err)
	assert.Equal(t, "vyos", d.Hostname())

	d, err = NewDevice(DeviceConfig{Platform: "nxos", Config: []string{"feature ssh"}})
	require.NoError(t, err)
	assert.Equal(t, "switch", d.Hostname())
	assert.Equal(t, []string{"feature ssh"}, d.Running())
	assert.Equal(t, []string{"feature ssh"}, d.Committed())

	_, err = NewDevice(DeviceConfig{Platform: "junos"})
	assert.Error(t, err)
}

func TestVyOSTree(t *testing.T) {
	got := vyosTree([]string{
		"set interfaces ethernet eth0 address 10.0.0.1/24",
		"set interfaces ethernet eth0 description uplink",
		"set system host-name r1",
	})
	assert.Equal(t, []string{
		"interfaces {",
		"    ethernet {",
		"        eth0 {",
		"            address 10.0.0.1/24",
		"            description uplink",
		"        }",
		"    }",
		"}",
		"system {",
		"    host-name r1",
		"}",
	}, got)
}

func TestVyOSJSON(t *testing.T) {
	got := vyosJSON([]string{"set system host-name r1", "set service ssh"})
	assert.JSONEq(t, `{"system":{"host-name":{"r1":{}}},"service":{"ssh":{}}}`, got)
}

func TestVyOSConsoleSession(t *testing.T) {
	d, err := NewDevice(DeviceConfig{Platform: "vyos", Username: "vyos", Password: "vyos"})
	require.NoError(t, err)
	c := pipe(t, d)

	out := readUntil(t, c, "vyos login: ")
	assert.Contains(t, out, "Welcome to VyOS")

	send(t, c, "vyos\r\n")
	readUntil(t, c, "Password: ")
	send(t, c, "vyos\r\n")
	out = readUntil(t, c, "vyos@vyos:~$ ")
	assert.True(t, strings.HasPrefix(out, "\r\nWelcome to VyOS!"), "密码不回显")

	send(t, c, "configure\r\n")
	readUntil(t, c, "vyos@vyos# ")
	send(t, c, "set service ssh\r\n")
	readUntil(t, c, "vyos@vyos# ")

	send(t, c, "exit\r\n")
	out = readUntil(t, c, "vyos@vyos# ")
	assert.Contains(t, out, "Cannot exit")

	send(t, c, "commit\r\n")
	readUntil(t, c, "vyos@vyos# ")
	assert.Equal(t, []string{"set service ssh"}, d.Running())
	assert.Empty(t, d.Startup())

	send(t, c, "save\r\n")
	readUntil(t, c, "vyos@vyos# ")
	assert.Equal(t, []string{"set service ssh"}, d.Startup())

	send(t, c, "exit\r\n")
	readUntil(t, c, "vyos@vyos:~$ ")

	send(t, c, "\x04")
	readUntil(t, c, "vyos login: ")
}

func TestVyOSInterrupt(t *testing.T) {
	d, err := NewDevice(DeviceConfig{Platform: "vyos", Quiet: true})
	require.NoError(t, err)
	c := pipe(t, d)

	send(t, c, "\x03")
	readUntil(t, c, "vyos login: ")
}

func TestNXOSProvisioningPrompt(t *testing.T) {
	d, err := NewDevice(DeviceConfig{Platform: "nxos", Username: "admin", Provisioning: true})
	require.NoError(t, err)
	c := pipe(t, d)

	readUntil(t, c, "(yes/skip/no)[no]: ")
	send(t, c, "no\r\n")
	readUntil(t, c, "(yes/skip/no)[no]: ")
	send(t, c, "skip\r\n")
	out := readUntil(t, c, "switch login: ")
	assert.Contains(t, out, "Disabling POAP")

	send(t, c, "admin\r\n")
	readUntil(t, c, "Password: ")
	send(t, c, "\r\n")
	readUntil(t, c, "switch# ")

	send(t, c, "configure\r\n")
	readUntil(t, c, "switch(config)# ")
	send(t, c, "hostname leaf1\r\n")
	readUntil(t, c, "leaf1(config)# ")
	send(t, c, "end\r\n")
	readUntil(t, c, "leaf1# ")
	assert.Equal(t, []string{"hostname leaf1"}, d.Running())
	assert.Empty(t, d.Startup())

	send(t, c, "copy running-config startup-config\r\n")
	out = readUntil(t, c, "leaf1# ")
	assert.Contains(t, out, "Copy complete.")
	assert.Equal(t, []string{"hostname leaf1"}, d.Committed())

	// POAP 只在首次连接出现
	c2 := pipe(t, d)
	readUntil(t, c2, "leaf1 login: ")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simulate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// loopback 命名空间在 127.0.0.1 上的地址
func loopback(t *testing.T, m *Manager, ns string) string {
	t.Helper()
	addr, ok := m.Addr(ns)
	require.True(t, ok)
	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	return net.JoinHostPort("127.0.0.1", port)
}

func TestManagerTelnetNamespace(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
device:
  r1:
    platform: vyos
    hostname: r1
    username: vyos
    password: vyos
namespace:
  lab:
    port: 0
    protocol: telnet
    device: r1
`))
	require.NoError(t, err)

	m, err := Start(cfg)
	require.NoError(t, err)
	defer m.Stop()

	assert.Equal(t, []string{"lab"}, m.Namespaces())
	_, ok := m.Device("r1")
	assert.True(t, ok)

	c, err := net.Dial("tcp", loopback(t, m, "lab"))
	require.NoError(t, err)
	defer c.Close()
	readUntil(t, c, "r1 login: ")
}

func TestManagerUnknownDevice(t *testing.T) {
	_, err := Start(&Config{
		Namespace: map[string]NamespaceConfig{"lab": {Device: "missing"}},
	})
	assert.Error(t, err)
}

func TestManagerSSHNamespace(t *testing.T) {
	m, err := Start(&Config{
		Device: map[string]DeviceConfig{
			"sw1": {Platform: "nxos", Username: "admin", Password: "secret"},
		},
		Namespace: map[string]NamespaceConfig{
			"lab": {Port: 0, Protocol: "ssh", Device: "sw1"},
		},
	})
	require.NoError(t, err)
	defer m.Stop()

	client, err := ssh.Dial("tcp", loopback(t, m, "lab"), &ssh.ClientConfig{
		User:            "admin",
		Auth:            []ssh.AuthMethod{ssh.Password("secret")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         2 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	sess, err := client.NewSession()
	require.NoError(t, err)
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, sess.RequestPty("vt100", 40, 80, ssh.TerminalModes{}))
	require.NoError(t, sess.Shell())

	done := make(chan string, 1)
	go func() {
		var sb strings.Builder
		buf := make([]byte, 256)
		for !strings.HasSuffix(sb.String(), "switch login: ") {
			n, err := stdout.Read(buf)
			sb.Write(buf[:n])
			if err != nil {
				break
			}
		}
		done <- sb.String()
	}()

	select {
	case out := <-done:
		assert.True(t, strings.HasSuffix(out, "switch login: "), out)
	case <-time.After(3 * time.Second):
		t.Fatal("no login prompt over ssh")
	}
}
