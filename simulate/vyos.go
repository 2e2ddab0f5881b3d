package simulate

import (
	"encoding/json"
	"strings"
)

// vyos 模拟 VyOS 串口控制台
// 配置模式使用候选配置，commit 后生效，save 后写入启动配置
type vyos struct{}

func (vyos) loginPrompt(s *session) string {
	return s.dev.Hostname() + " login: "
}

func (vyos) prompt(s *session) string {
	if s.state == stateConfig {
		return s.user + "@" + s.dev.Hostname() + "# "
	}
	return s.user + "@" + s.dev.Hostname() + ":~$ "
}

func (v vyos) greet(s *session) {
	s.print("\r\nWelcome to VyOS - ", s.dev.Hostname(), " ttyS0\r\n\r\n", v.loginPrompt(s))
}

func (v vyos) interrupt(s *session) {
	switch s.state {
	case stateLogin, statePassword:
		s.state = stateLogin
		s.print("\r\n", v.loginPrompt(s))
	default:
		s.print("^C\r\n", v.prompt(s))
	}
}

func (v vyos) endOfTransmission(s *session) {
	if s.state != stateOper {
		return
	}
	s.print("logout\r\n")
	v.logout(s)
}

func (v vyos) logout(s *session) {
	s.state = stateLogin
	s.user = ""
	v.greet(s)
}

func (v vyos) handle(s *session, line string) {
	switch s.state {
	case stateLogin:
		if line == "" {
			s.print(v.loginPrompt(s))
			return
		}
		s.user = line
		s.state = statePassword
		s.print("Password: ")
	case statePassword:
		if !s.login(line) {
			s.state = stateLogin
			s.print("\r\nLogin incorrect\r\n", v.loginPrompt(s))
			return
		}
		s.state = stateOper
		s.print("\r\nWelcome to VyOS!\r\n", v.prompt(s))
	case stateOper:
		v.operational(s, line)
	case stateConfig:
		v.configuration(s, line)
	}
}

func (v vyos) operational(s *session, line string) {
	switch {
	case line == "", line == "set terminal length 0":
	case line == "configure":
		s.candidate = s.dev.Running()
		s.state = stateConfig
		s.print("\r\n[edit]\r\n")
	case line == "show configuration":
		s.print(crlf(vyosTree(s.dev.Running())))
	case line == "exit", line == "logout":
		s.print("logout\r\n")
		v.logout(s)
		return
	default:
		s.print("\r\n  Invalid command: [", line, "]\r\n\r\n")
	}
	s.print(v.prompt(s))
}

func (v vyos) configuration(s *session, line string) {
	d := s.dev
	switch {
	case line == "":
	case strings.HasPrefix(line, "set "):
		if !contains(s.candidate, line) {
			s.candidate = append(s.candidate, line)
		}
	case strings.HasPrefix(line, "delete "):
		path := "set " + strings.TrimPrefix(line, "delete ")
		kept := s.candidate[:0:0]
		for _, c := range s.candidate {
			if c != path && !strings.HasPrefix(c, path+" ") {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(s.candidate) {
			s.print("\r\n  Nothing to delete\r\n")
		}
		s.candidate = kept
	case line == "commit":
		d.mu.Lock()
		d.running = append([]string(nil), s.candidate...)
		d.mu.Unlock()
	case line == "save":
		d.mu.Lock()
		d.startup = append([]string(nil), d.running...)
		d.mu.Unlock()
		s.print("Saving configuration to '/config/config.boot'...\r\nDone\r\n")
	case line == "show":
		s.print(crlf(vyosTree(s.candidate)))
	case line == "show | commands":
		s.print(crlf(s.candidate))
	case line == "show | json":
		s.print(vyosJSON(s.candidate), "\r\n")
	case line == "exit":
		if !equalLines(s.candidate, d.Running()) {
			s.print("Cannot exit: configuration modified.\r\nUse 'exit discard' to discard the changes and exit.\r\n")
			break
		}
		s.state = stateOper
		s.print("exit\r\n", v.prompt(s))
		return
	case line == "exit discard":
		s.candidate = nil
		s.state = stateOper
		s.print("exit\r\n", v.prompt(s))
		return
	default:
		s.print("\r\n  Invalid command: [", line, "]\r\n\r\n")
	}
	s.print("[edit]\r\n", v.prompt(s))
}

type vyosNode struct {
	name     string
	children []*vyosNode
}

func (n *vyosNode) child(name string) *vyosNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	c := &vyosNode{name: name}
	n.children = append(n.children, c)
	return c
}

// vyosTree 把 set 命令渲染成花括号层级，末两个词作为叶子
func vyosTree(commands []string) []string {
	root := &vyosNode{}
	for _, c := range commands {
		words := strings.Fields(strings.TrimPrefix(c, "set "))
		if len(words) == 0 {
			continue
		}
		n := root
		leaf := words[len(words)-1]
		if len(words) >= 2 {
			for _, w := range words[:len(words)-2] {
				n = n.child(w)
			}
			leaf = words[len(words)-2] + " " + leaf
		}
		n.child(leaf)
	}
	var out []string
	var walk func(n *vyosNode, indent string)
	walk = func(n *vyosNode, indent string) {
		for _, c := range n.children {
			if len(c.children) == 0 {
				out = append(out, indent+c.name)
				continue
			}
			out = append(out, indent+c.name+" {")
			walk(c, indent+"    ")
			out = append(out, indent+"}")
		}
	}
	walk(root, "")
	return out
}

func vyosJSON(commands []string) string {
	root := map[string]interface{}{}
	for _, c := range commands {
		words := strings.Fields(strings.TrimPrefix(c, "set "))
		if len(words) == 0 {
			continue
		}
		m := root
		for _, w := range words[:len(words)-1] {
			next, ok := m[w].(map[string]interface{})
			if !ok {
				next = map[string]interface{}{}
				m[w] = next
			}
			m = next
		}
		if _, ok := m[words[len(words)-1]]; !ok {
			m[words[len(words)-1]] = map[string]interface{}{}
		}
	}
	b, _ := json.Marshal(root)
	return string(b)
}
