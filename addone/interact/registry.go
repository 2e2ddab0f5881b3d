package interact

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

// 注册中心，按平台名称获取控制台插件
var (
	registryMu sync.RWMutex
	registry   = map[string]InteractPlugin{}
)

// Register 注册一个平台插件，重复注册以后者为准
func Register(name string, plugin InteractPlugin) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = plugin
}

// Get 获取指定平台的插件
func Get(name string) (InteractPlugin, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// Names 已注册的平台名称（排序后）
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve 取平台 Profile 并套用配置覆盖，返回校验后的副本
func Resolve(name string, o console.Overrides) (console.Profile, error) {
	p, ok := Get(name)
	if !ok {
		return console.Profile{}, fmt.Errorf("unknown platform %q", name)
	}
	profile := p.Profile().Apply(o).WithDefaults()
	if err := profile.Validate(); err != nil {
		return console.Profile{}, err
	}
	return profile, nil
}
