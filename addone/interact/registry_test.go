package interact_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
	_ "github.com/sshcollectorpro/consolepilot/addone/interact/platforms/nxos"
	_ "github.com/sshcollectorpro/consolepilot/addone/interact/platforms/vyos"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

func TestBuiltinPlatformsRegistered(t *testing.T) {
	assert.Equal(t, []string{"nxos", "vyos"}, interact.Names())

	for _, name := range interact.Names() {
		p, ok := interact.Get(name)
		require.True(t, ok)
		assert.Equal(t, name, p.Name())
		assert.NoError(t, p.Profile().Validate(), "平台 %s 的 Profile 必须合法", name)
	}
}

func TestResolveAppliesOverrides(t *testing.T) {
	lead := 0
	p, err := interact.Resolve("vyos", console.Overrides{
		Timeout:     200 * time.Millisecond,
		MaxTimeouts: 3,
		Extraction:  "fixed",
		LeadingTrim: &lead,
	})
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, p.Timeout)
	assert.Equal(t, 3, p.MaxTimeouts)
	assert.Equal(t, console.ExtractionFixed, p.Extraction)
	assert.Equal(t, 0, p.LeadingTrim)
	assert.Equal(t, 4, p.TrailingTrim, "未覆盖的字段保持平台默认值")

	// 原平台数据不受影响
	orig, _ := interact.Get("vyos")
	assert.Equal(t, 3*time.Second, orig.Profile().Timeout)
}

func TestResolveRejectsBadOverrides(t *testing.T) {
	_, err := interact.Resolve("vyos", console.Overrides{Extraction: "regex"})
	assert.Error(t, err)

	_, err = interact.Resolve("junos", console.Overrides{})
	assert.Error(t, err)
}

func TestPromptPatterns(t *testing.T) {
	vy, _ := interact.Get("vyos")
	nx, _ := interact.Get("nxos")

	cases := []struct {
		profile console.Profile
		text    string
		mode    console.Mode
	}{
		{vy.Profile(), "vyos@vyos:~$ ", console.ModeOperational},
		{vy.Profile(), "vyos@vyos# ", console.ModeConfiguration},
		{vy.Profile(), "vyos login: ", console.ModeLoggedOut},
		{nx.Profile(), "switch# ", console.ModeOperational},
		{nx.Profile(), "switch(config-if)# ", console.ModeConfiguration},
		{nx.Profile(), "switch login: ", console.ModeLoggedOut},
		{nx.Profile(), "Abort Power On Auto Provisioning and continue with normal setup ?(yes/skip/no)[no]: ", console.ModeProvisioning},
	}
	for _, c := range cases {
		got := console.ModeUnknown
		for _, r := range c.profile.Prompts {
			if r.Pattern.MatchString(c.text) {
				got = r.Mode
				break
			}
		}
		assert.Equal(t, c.mode, got, c.text)
	}
}

func TestTransformCommands(t *testing.T) {
	vy, _ := interact.Get("vyos")
	out := vy.TransformCommands(interact.CommandTransformInput{Commands: []string{
		"# 主机名",
		"set system host-name r1",
		"",
		"  set service ssh  ",
	}})
	assert.Equal(t, []string{"set system host-name r1", "set service ssh"}, out.Commands)

	nx, _ := interact.Get("nxos")
	out = nx.TransformCommands(interact.CommandTransformInput{Commands: []string{"!", "hostname leaf1"}})
	assert.Equal(t, []string{"hostname leaf1"}, out.Commands)
}

func TestDescribe(t *testing.T) {
	info, err := interact.Describe("vyos", console.Overrides{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "vyos", info.Name)
	assert.Equal(t, []string{"plain", "commands", "json"}, info.Formats)
	assert.Equal(t, "show | json", info.Display["json"])
	assert.Equal(t, "1s", info.Timeout)
	assert.Equal(t, "delimited", info.Extraction)
	assert.Contains(t, info.Prompts, "configuration")
	assert.False(t, info.Provisioning)

	all, err := interact.DescribeAll(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "nxos", all[0].Name)
	assert.Equal(t, []string{"plain"}, all[0].Formats)
	assert.True(t, all[0].Provisioning)

	_, err = interact.Describe("junos", console.Overrides{})
	assert.Error(t, err)
}
