package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// Config 日志配置
type Config struct {
	Level      string `mapstructure:"level" json:"level"`
	Format     string `mapstructure:"format" json:"format"`
	Output     string `mapstructure:"output" json:"output"`
	FilePath   string `mapstructure:"file_path" json:"file_path"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

const timestampFormat = "2006-01-02 15:04:05"

// Init 按配置重建全局日志实例
func Init(config Config) error {
	out, err := output(config)
	if err != nil {
		return err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(formatter(config.Format))
	if level, err := logrus.ParseLevel(config.Level); err == nil {
		l.SetLevel(level)
	}
	log = l
	return nil
}

func formatter(format string) logrus.Formatter {
	if format == "json" {
		// 控制台回显里常见 <>&，保持原样
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat, DisableHTMLEscape: true}
	}
	return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat}
}

// output console/stderr 直接输出；file 经 lumberjack 轮转；both 同时写文件与 stdout
func output(config Config) (io.Writer, error) {
	switch config.Output {
	case "", "console":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file", "both":
	default:
		return nil, fmt.Errorf("unknown log output %q", config.Output)
	}
	if config.FilePath == "" {
		return nil, fmt.Errorf("log output %q requires file_path", config.Output)
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, err
	}
	rotating := &lumberjack.Logger{
		Filename:   config.FilePath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}
	if config.Output == "both" {
		return io.MultiWriter(rotating, os.Stdout), nil
	}
	return rotating, nil
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	if log == nil {
		log = logrus.New()
	}
	return log
}

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Info 信息日志
func Info(args ...interface{}) {
	GetLogger().Info(args...)
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// Fatalf 格式化致命错误日志
func Fatalf(format string, args ...interface{}) {
	GetLogger().Fatalf(format, args...)
}

// WithField 添加字段
func WithField(key string, value interface{}) *logrus.Entry {
	return GetLogger().WithField(key, value)
}

// WithFields 添加多个字段
func WithFields(fields logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(fields)
}
