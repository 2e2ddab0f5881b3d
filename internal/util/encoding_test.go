package util

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDecodeLenientUTF8(t *testing.T) {
	assert.Equal(t, "vyos@vyos:~$ ", DecodeLenient([]byte("vyos@vyos:~$ "), ""))
	assert.Equal(t, "", DecodeLenient(nil, "gbk"))
}

func TestDecodeLenientLegacyCharset(t *testing.T) {
	// "设备" GBK 编码
	raw := []byte{0xC9, 0xE8, 0xB1, 0xB8}
	assert.Equal(t, "设备", DecodeLenient(raw, "gbk"))
	assert.Equal(t, "设备", DecodeLenient(raw, "GB18030"))
}

func TestDecodeLenientReplacesInvalidBytes(t *testing.T) {
	raw := []byte{'o', 'k', 0xFF, 0xFE, '\n'}
	s := DecodeLenient(raw, "")
	assert.True(t, utf8.ValidString(s))
	assert.Contains(t, s, "�")
	assert.Equal(t, s, DecodeLenient(raw, ""), "相同输入必须得到相同输出")
}

func TestKnownCharset(t *testing.T) {
	assert.True(t, KnownCharset(""))
	assert.True(t, KnownCharset("UTF-8"))
	assert.True(t, KnownCharset("latin1"))
	assert.False(t, KnownCharset("ebcdic"))
}
