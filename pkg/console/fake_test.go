package console

import (
	"fmt"
	"io"
	"regexp"
	"time"
)

// step 一次 Expect 的脚本化响应：data 为空表示静默超时
type step struct {
	data string
	err  error
}

// fakeTransport 按脚本响应 Expect，不真正等待
type fakeTransport struct {
	steps      []step
	writes     []string
	timeouts   []time.Duration
	transcript *Transcript
	closed     int
}

func newFakeTransport(steps ...step) *fakeTransport {
	return &fakeTransport{steps: steps, transcript: NewTranscript("")}
}

func (f *fakeTransport) Write(p []byte) error {
	f.writes = append(f.writes, string(p))
	return nil
}

func (f *fakeTransport) WriteLine(line string) error {
	return f.Write([]byte(line + "\n"))
}

func (f *fakeTransport) Expect(patterns []*regexp.Regexp, timeout time.Duration) (ExpectResult, error) {
	f.timeouts = append(f.timeouts, timeout)
	if len(f.steps) == 0 {
		return ExpectResult{Index: -1}, fmt.Errorf("script exhausted: %w", io.EOF)
	}
	st := f.steps[0]
	f.steps = f.steps[1:]
	if st.err != nil {
		return ExpectResult{Index: -1}, st.err
	}
	data := []byte(st.data)
	f.transcript.Append(data)
	for i, re := range patterns {
		if loc := re.FindIndex(data); loc != nil {
			return ExpectResult{Index: i, Match: data[loc[0]:loc[1]], Data: data}, nil
		}
	}
	return ExpectResult{Index: -1, Data: data}, nil
}

func (f *fakeTransport) Transcript() *Transcript {
	return f.transcript
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func silence(n int) []step {
	out := make([]step, n)
	return out
}

func testProfile() Profile {
	return Profile{
		Name: "test",
		Prompts: []PromptRule{
			{Pattern: regexp.MustCompile(`\w+@\w+:.+\$ $`), Mode: ModeOperational},
			{Pattern: regexp.MustCompile(`\w+@\w+\# $`), Mode: ModeConfiguration},
			{Pattern: regexp.MustCompile(`\w+ login: $`), Mode: ModeLoggedOut},
		},
		PasswordPrompt: regexp.MustCompile(`Password:`),
		DisablePaging:  "set terminal length 0",
		EnterConfig:    "configure",
		ExitConfig:     "exit",
		ExitDiscard:    "exit discard",
		Commit:         "commit",
		Save:           "save",
		SaveInConfig:   true,
		LogoutControl:  EndOfTransmission,
		Display:        map[Format]string{FormatPlain: "show"},
		Extraction:     ExtractionDelimited,
		TrailerMarkers: []*regexp.Regexp{regexp.MustCompile(`^\[edit\]$`)},
		Timeout:        time.Second,
		MaxTimeouts:    DefaultMaxTimeouts,
	}
}

func nxosTestProfile() Profile {
	return Profile{
		Name: "nxos-test",
		Prompts: []PromptRule{
			{Pattern: regexp.MustCompile(`\(yes/skip/no\)\[no\]: `), Mode: ModeProvisioning},
			{Pattern: regexp.MustCompile(`\w+\# $`), Mode: ModeOperational},
			{Pattern: regexp.MustCompile(`\w+\(.*\)\# $`), Mode: ModeConfiguration},
			{Pattern: regexp.MustCompile(` login: $`), Mode: ModeLoggedOut},
		},
		PasswordPrompt:   regexp.MustCompile(`Password:`),
		DisablePaging:    "terminal length 0",
		EnterConfig:      "configure",
		ExitConfig:       "exit",
		Save:             "copy running-config startup-config",
		LogoutCommand:    "exit",
		ProvisioningSkip: "skip",
		Display:          map[Format]string{FormatPlain: "show running-config"},
		Timeout:          time.Second,
	}
}
