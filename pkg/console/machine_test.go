package console

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitKnownModeImmediatePrompt(t *testing.T) {
	ft := newFakeTransport(step{data: "vyos@vyos:~$ "})
	s := NewSession(ft, testProfile())

	require.NoError(t, s.AwaitKnownMode("probe"))
	assert.Equal(t, ModeOperational, s.Mode())
	assert.Len(t, ft.timeouts, 1, "一次读取即可识别")
	assert.Equal(t, time.Second, ft.timeouts[0])
	assert.Empty(t, ft.writes)
}

func TestAwaitKnownModeSilenceEscalates(t *testing.T) {
	p := testProfile()
	ft := newFakeTransport(silence(p.MaxTimeouts + 1)...)
	s := NewSession(ft, p)

	err := s.AwaitKnownMode("probe")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPromptUnreachable)
	assert.Equal(t, ModeUnknown, s.Mode())

	require.Len(t, ft.writes, p.MaxTimeouts)
	assert.Equal(t, "\x03", ft.writes[0], "第一次静默发送中断")
	for i, w := range ft.writes[1:] {
		assert.Equal(t, "\n", w, "escalation %d", i+2)
	}

	require.Len(t, ft.timeouts, p.MaxTimeouts+1)
	assert.Equal(t, p.Timeout, ft.timeouts[0])
	for i := 1; i < len(ft.timeouts); i++ {
		assert.Equal(t, p.Timeout*time.Duration(i), ft.timeouts[i])
	}
}

func TestAwaitKnownModeStreamingNeverEscalates(t *testing.T) {
	var steps []step
	for i := 0; i < 50; i++ {
		steps = append(steps, step{data: "Loading kernel module ...\r\n"})
	}
	steps = append(steps, step{data: "vyos login: "})
	ft := newFakeTransport(steps...)
	s := NewSession(ft, testProfile())

	require.NoError(t, s.AwaitKnownMode("boot"))
	assert.Equal(t, ModeLoggedOut, s.Mode())
	assert.Empty(t, ft.writes, "持续有输出时不得发送任何控制字符")
	for _, d := range ft.timeouts {
		assert.Equal(t, time.Second, d)
	}
}

func TestAwaitKnownModeOutputResetsCounter(t *testing.T) {
	ft := newFakeTransport(
		step{},
		step{},
		step{data: "still booting\r\n"},
		step{},
		step{data: "vyos@vyos# "},
	)
	s := NewSession(ft, testProfile())

	require.NoError(t, s.AwaitKnownMode("probe"))
	assert.Equal(t, ModeConfiguration, s.Mode())
	assert.Equal(t, []string{"\x03", "\n", "\x03"}, ft.writes)
	b := time.Second
	assert.Equal(t, []time.Duration{b, b, 2 * b, b, b}, ft.timeouts)
}

func TestAwaitKnownModeTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	ft := newFakeTransport(step{data: "vyos@vyos:~$ "}, step{err: boom})
	s := NewSession(ft, testProfile())

	require.NoError(t, s.AwaitKnownMode("probe"))
	err := s.AwaitKnownMode("probe")
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ModeUnknown, s.Mode())
	assert.Equal(t, "transport", KindName(err))
}

func TestAwaitKnownModePriorityFollowsRuleOrder(t *testing.T) {
	ft := newFakeTransport(step{data: "Abort Auto Provisioning and continue with normal setup ?(yes/skip/no)[no]: "})
	p := nxosTestProfile()
	s := NewSession(ft, p)

	require.NoError(t, s.AwaitKnownMode("boot"))
	assert.Equal(t, ModeProvisioning, s.Mode())
}
