package console

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AwaitKnownMode 读取输出直到识别出提示符，并据此设置会话模式
//
// 有输出但无提示符时重置计数与超时，继续等待；
// 静默超时时计数加一、超时按计数倍增，第一次发送中断字符，之后发送空行，
// 超过 MaxTimeouts 返回 ErrPromptUnreachable。任何超时分支都把模式置为 ModeUnknown。
func (s *Session) AwaitKnownMode(label string) error {
	patterns := s.profile.Patterns()
	base := s.profile.Timeout
	timeout := base
	timeouts := 0
	before := s.mode

	for count := 1; ; count++ {
		res, err := s.transport.Expect(patterns, timeout)
		if err != nil {
			s.mode = ModeUnknown
			return s.transportFail(label, err)
		}

		if !res.Timeout() {
			s.mode = s.profile.Prompts[res.Index].Mode
			s.log.WithFields(logrus.Fields{
				"command":     label,
				"count":       count,
				"mode_before": before.String(),
				"mode_after":  s.mode.String(),
			}).Debug("prompt recognized")
			return nil
		}

		s.mode = ModeUnknown
		if len(res.Data) > 0 {
			// 设备仍在输出（启动信息、长配置），不升级
			timeouts = 0
			timeout = base
			s.log.WithFields(logrus.Fields{
				"command": label,
				"count":   count,
				"bytes":   len(res.Data),
			}).Debug("output without prompt, waiting")
			continue
		}

		timeouts++
		timeout = base * time.Duration(timeouts)
		fields := logrus.Fields{
			"command":  label,
			"count":    count,
			"timeouts": timeouts,
			"timeout":  timeout.String(),
		}

		switch {
		case timeouts == 1:
			s.log.WithFields(fields).Warn("no prompt, sending interrupt")
			if err := s.transport.Write([]byte{s.profile.Interrupt}); err != nil {
				return s.transportFail(label, err)
			}
		case timeouts <= s.profile.MaxTimeouts:
			s.log.WithFields(fields).Warn("no prompt, sending newline")
			if err := s.transport.WriteLine(""); err != nil {
				return s.transportFail(label, err)
			}
		default:
			s.log.WithFields(fields).Error("prompt unreachable")
			return s.fail(label, ErrPromptUnreachable, nil)
		}
	}
}
