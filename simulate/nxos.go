package simulate

import (
	"strings"
)

const poapQuestion = "Abort Power On Auto Provisioning [yes - continue with normal setup, skip - bypass password and basic configuration, no - continue with Power On Auto Provisioning] (yes/skip/no)[no]: "

// nxos 模拟 NX-OS 控制台
// 配置命令即时写入 running-config，copy running-config startup-config 后写入启动配置
type nxos struct{}

func (nxos) loginPrompt(s *session) string {
	return s.dev.Hostname() + " login: "
}

func (nxos) prompt(s *session) string {
	if s.state == stateConfig {
		return s.dev.Hostname() + "(config)# "
	}
	return s.dev.Hostname() + "# "
}

func (n nxos) greet(s *session) {
	if s.state == statePOAP {
		s.print("\r\n", poapQuestion)
		return
	}
	s.print("\r\nUser Access Verification\r\n", n.loginPrompt(s))
}

func (n nxos) interrupt(s *session) {
	switch s.state {
	case statePOAP:
		s.print("\r\n", poapQuestion)
	case stateLogin, statePassword:
		s.state = stateLogin
		s.print("\r\n", n.loginPrompt(s))
	default:
		s.print("\r\n", n.prompt(s))
	}
}

// endOfTransmission NX-OS 控制台忽略 Ctrl-D
func (nxos) endOfTransmission(*session) {}

func (n nxos) handle(s *session, line string) {
	switch s.state {
	case statePOAP:
		if line == "no" || line == "" {
			s.print(poapQuestion)
			return
		}
		s.dev.mu.Lock()
		s.dev.poapDone = true
		s.dev.mu.Unlock()
		s.state = stateLogin
		s.print("\r\nDisabling POAP\r\n")
		n.greet(s)
	case stateLogin:
		if line == "" {
			s.print(n.loginPrompt(s))
			return
		}
		s.user = line
		s.state = statePassword
		s.print("Password: ")
	case statePassword:
		if !s.login(line) {
			s.state = stateLogin
			s.print("\r\nLogin incorrect\r\n", n.loginPrompt(s))
			return
		}
		s.state = stateOper
		s.print("\r\nCisco Nexus Operating System (NX-OS) Software\r\n", n.prompt(s))
	case stateOper:
		n.operational(s, line)
	case stateConfig:
		n.configuration(s, line)
	}
}

func (n nxos) operational(s *session, line string) {
	d := s.dev
	switch {
	case line == "", line == "terminal length 0":
	case line == "configure", line == "configure terminal":
		s.state = stateConfig
		s.print("Enter configuration commands, one per line. End with CNTL/Z.\r\n")
	case line == "show running-config":
		n.showRunning(s)
	case line == "show startup-config":
		s.print(crlf(d.Startup()))
	case line == "copy running-config startup-config":
		d.mu.Lock()
		d.startup = append([]string(nil), d.running...)
		d.mu.Unlock()
		s.print("[########################################] 100%\r\nCopy complete.\r\n")
	case line == "exit":
		s.state = stateLogin
		s.user = ""
		n.greet(s)
		return
	default:
		s.print("                      ^\r\n% Invalid command at '^' marker.\r\n\r\n")
	}
	s.print(n.prompt(s))
}

func (n nxos) configuration(s *session, line string) {
	d := s.dev
	switch {
	case line == "":
	case line == "show running-config":
		n.showRunning(s)
	case line == "exit", line == "end":
		s.state = stateOper
	case strings.HasPrefix(line, "no "):
		target := strings.TrimPrefix(line, "no ")
		d.mu.Lock()
		kept := d.running[:0:0]
		for _, c := range d.running {
			if c != target {
				kept = append(kept, c)
			}
		}
		d.running = kept
		d.mu.Unlock()
	default:
		d.mu.Lock()
		if strings.HasPrefix(line, "hostname ") {
			d.hostname = strings.TrimSpace(strings.TrimPrefix(line, "hostname "))
			kept := d.running[:0:0]
			for _, c := range d.running {
				if !strings.HasPrefix(c, "hostname ") {
					kept = append(kept, c)
				}
			}
			d.running = kept
		}
		if !contains(d.running, line) {
			d.running = append(d.running, line)
		}
		d.mu.Unlock()
	}
	s.print(n.prompt(s))
}

func (nxos) showRunning(s *session) {
	s.print(
		"\r\n!Command: show running-config\r\n",
		"!Running configuration last done at: Mon Jan  1 00:00:00 2024\r\n",
		"!Time: Mon Jan  1 00:00:00 2024\r\n\r\n",
		crlf(s.dev.Running()),
		"\r\n",
	)
}
