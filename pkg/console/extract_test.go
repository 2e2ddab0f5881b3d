package console

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFixed(t *testing.T) {
	lines := []string{"old", "echo", "[edit]", "prompt show", "a", "b", "[edit]", "prompt exit", "x", "op"}

	assert.Equal(t, []string{"a", "b"}, ExtractFixed(lines, 1, 3, 4))
	assert.Equal(t, []string{}, ExtractFixed(lines, 1, 9, 4), "越界返回空")
	assert.Equal(t, []string{}, ExtractFixed(nil, 0, 3, 4))
}

func TestExtractDelimited(t *testing.T) {
	lines := []string{
		"switch(config)# show running-config",
		"",
		"!Command: show running-config",
		"!Time: Mon Jan  1 00:00:00 2024",
		"",
		"version 9.3(8)",
		"hostname switch",
		"",
		"switch(config)# exit",
	}
	headers := []*regexp.Regexp{regexp.MustCompile(`^!Command:`), regexp.MustCompile(`^!Time:`)}

	got := ExtractDelimited(lines, 0, 8, headers, nil)
	assert.Equal(t, []string{"version 9.3(8)", "hostname switch"}, got)
}

func TestExtractDelimitedKeepsInnerMarkers(t *testing.T) {
	trailers := []*regexp.Regexp{regexp.MustCompile(`^\[edit\]$`)}
	lines := []string{"p# show", "a {", "[edit]", "}", "[edit]", "p# "}

	assert.Equal(t, []string{"a {", "[edit]", "}"}, ExtractDelimited(lines, 0, 5, nil, trailers))
}

func TestExtractDelimitedEmpty(t *testing.T) {
	assert.Equal(t, []string{}, ExtractDelimited([]string{"p# show", "p# "}, 0, 1, nil, nil))
	assert.Equal(t, []string{}, ExtractDelimited(nil, 3, 1, nil, nil))
}
