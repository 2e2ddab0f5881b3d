package util

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// charsets 控制台可声明的遗留字符集
var charsets = map[string]encoding.Encoding{
	"gb18030":      simplifiedchinese.GB18030,
	"gbk":          simplifiedchinese.GBK,
	"hz-gb-2312":   simplifiedchinese.HZGB2312,
	"big5":         traditionalchinese.Big5,
	"windows-1252": charmap.Windows1252,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"macintosh":    charmap.Macintosh,
}

// KnownCharset 判断字符集名称是否受支持（空字符串表示 UTF-8）
func KnownCharset(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return true
	}
	_, ok := charsets[name]
	return ok
}

// DecodeLenient 宽松解码控制台字节流，结果总是合法的 UTF-8
// 合法 UTF-8 原样返回；声明了遗留字符集时按该字符集解码；否则非法字节替换为 U+FFFD
// 同一输入总得到同一输出
func DecodeLenient(b []byte, charset string) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	if enc, ok := charsets[strings.ToLower(strings.TrimSpace(charset))]; ok {
		if s, ok := tryDecode(enc, b); ok {
			return s
		}
	}
	s, _ := tryDecode(unicode.UTF8, b)
	return s
}

func tryDecode(enc encoding.Encoding, b []byte) (string, bool) {
	reader := transform.NewReader(bytes.NewReader(b), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(decoded) {
		return strings.ToValidUTF8(string(decoded), "�"), true
	}
	return string(decoded), true
}
