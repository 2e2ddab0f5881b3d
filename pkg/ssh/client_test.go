package ssh

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/consolepilot/simulate"
)

func startSimulator(t *testing.T) *ConnectionInfo {
	t.Helper()
	m, err := simulate.Start(&simulate.Config{
		Device: map[string]simulate.DeviceConfig{
			"r1": {Platform: "vyos", Hostname: "r1", Username: "vyos", Password: "vyos"},
		},
		Namespace: map[string]simulate.NamespaceConfig{
			"lab": {Port: 0, Protocol: "ssh", Device: "r1"},
		},
	})
	require.NoError(t, err)
	t.Cleanup(m.Stop)

	addr, ok := m.Addr("lab")
	require.True(t, ok)
	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return &ConnectionInfo{Host: "127.0.0.1", Port: port, Username: "vyos", Password: "vyos"}
}

func readUntil(t *testing.T, s *Shell, suffix string) string {
	t.Helper()
	done := make(chan string, 1)
	go func() {
		var sb strings.Builder
		buf := make([]byte, 256)
		for !strings.HasSuffix(sb.String(), suffix) {
			n, err := s.Read(buf)
			sb.Write(buf[:n])
			if err != nil {
				break
			}
		}
		done <- sb.String()
	}()
	select {
	case out := <-done:
		require.True(t, strings.HasSuffix(out, suffix), "output: %q", out)
		return out
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %q", suffix)
		return ""
	}
}

func TestDialOpensInteractiveShell(t *testing.T) {
	info := startSimulator(t)

	shell, err := Dial(context.Background(), &Config{Timeout: 2 * time.Second}, info)
	require.NoError(t, err)

	readUntil(t, shell, "r1 login: ")
	_, err = shell.Write([]byte("vyos\r\n"))
	require.NoError(t, err)
	readUntil(t, shell, "Password: ")
	_, err = shell.Write([]byte("vyos\r\n"))
	require.NoError(t, err)
	readUntil(t, shell, "vyos@r1:~$ ")

	assert.True(t, shell.client.IsConnected())
	require.NoError(t, shell.Close())
	assert.False(t, shell.client.IsConnected())
	assert.NoError(t, shell.Close(), "重复关闭返回首次结果")
}

func TestDialRejectsWrongPassword(t *testing.T) {
	info := startSimulator(t)
	info.Password = "wrong"

	_, err := Dial(context.Background(), &Config{Timeout: 2 * time.Second}, info)
	assert.Error(t, err)
}

func TestOpenShellWithoutConnection(t *testing.T) {
	_, err := NewClient(nil).OpenShell()
	assert.Error(t, err)
}
