package console

// Mode 设备当前所处的 CLI 模式
type Mode int

const (
	// ModeUnknown 初始状态，或等待提示符超时后的状态
	ModeUnknown Mode = iota
	// ModeLoggedOut 登录提示符
	ModeLoggedOut
	// ModeOperational 操作模式提示符
	ModeOperational
	// ModeConfiguration 配置模式提示符
	ModeConfiguration
	// ModeProvisioning 登录前的自动部署询问（NX-OS POAP）
	ModeProvisioning
)

var modeNames = map[Mode]string{
	ModeUnknown:       "unknown",
	ModeLoggedOut:     "logged_out",
	ModeOperational:   "operational",
	ModeConfiguration: "configuration",
	ModeProvisioning:  "provisioning",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "invalid"
}

// ParseMode 按名称解析模式，用于配置文件中的提示符规则
func ParseMode(s string) (Mode, bool) {
	for m, name := range modeNames {
		if name == s {
			return m, true
		}
	}
	return ModeUnknown, false
}
