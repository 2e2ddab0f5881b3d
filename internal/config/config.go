package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Console  ConsoleConfig  `mapstructure:"console"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SimulateEnable 启动时同时拉起控制台模拟服务
	SimulateEnable bool   `mapstructure:"simulate_enable"`
	SimulateConfig string `mapstructure:"simulate_config"`
}

// ConsoleConfig 控制台会话配置
type ConsoleConfig struct {
	// Concurrent 批量任务同时打开的会话数
	Concurrent int `mapstructure:"concurrent"`
	// ConcurrencyProfile 并发档位：S/M/L/XL（优先级高于 concurrent 数值）
	ConcurrencyProfile  string         `mapstructure:"concurrency_profile"`
	ConcurrencyProfiles map[string]int `mapstructure:"concurrency_profiles"`
	// Retries 接口未指定时的默认重试次数
	Retries         int           `mapstructure:"retries"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	TaskTimeout     time.Duration `mapstructure:"task_timeout"`
	DefaultProtocol string        `mapstructure:"default_protocol"`
	// DeviceDefaults 按平台覆盖内置设备类型的时序与提取参数
	DeviceDefaults map[string]DeviceDefaultsConfig `mapstructure:"device_defaults"`
}

// DeviceDefaultsConfig 平台级覆盖项，零值表示沿用内置值
type DeviceDefaultsConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxTimeouts  int           `mapstructure:"max_timeouts"`
	LineEnding   string        `mapstructure:"line_ending"`
	Charset      string        `mapstructure:"charset"`
	Extraction   string        `mapstructure:"extraction"`
	LeadingTrim  *int          `mapstructure:"leading_trim"`
	TrailingTrim *int          `mapstructure:"trailing_trim"`
}

// Overrides 转换为设备类型覆盖项
func (d DeviceDefaultsConfig) Overrides() console.Overrides {
	return console.Overrides{
		Timeout:      d.Timeout,
		MaxTimeouts:  d.MaxTimeouts,
		LineEnding:   d.LineEnding,
		Charset:      d.Charset,
		Extraction:   d.Extraction,
		LeadingTrim:  d.LeadingTrim,
		TrailingTrim: d.TrailingTrim,
	}
}

// OverridesFor 取平台覆盖项，未配置时回退到 default 项
func (c ConsoleConfig) OverridesFor(platform string) console.Overrides {
	key := strings.ToLower(strings.TrimSpace(platform))
	if d, ok := c.DeviceDefaults[key]; ok {
		return d.Overrides()
	}
	if d, ok := c.DeviceDefaults["default"]; ok {
		return d.Overrides()
	}
	return console.Overrides{}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig 配置归档对象存储
type StorageConfig struct {
	Minio MinioConfig `mapstructure:"minio"`
}

// MinioConfig 对象存储配置
type MinioConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

// BackupConfig 备份服务配置
type BackupConfig struct {
	// StorageBackend 默认存储后端：local | minio
	StorageBackend string `mapstructure:"storage_backend"`
	// Prefix 顶层保存目录前缀（与请求中的 save_dir 组合）
	Prefix string            `mapstructure:"prefix"`
	Local  LocalBackupConfig `mapstructure:"local"`
	// KeepTranscript 同时归档完整的会话记录
	KeepTranscript bool `mapstructure:"keep_transcript"`
}

// LocalBackupConfig 本地存储配置
type LocalBackupConfig struct {
	BaseDir        string `mapstructure:"base_dir"`
	Prefix         string `mapstructure:"prefix"`
	MkdirIfMissing bool   `mapstructure:"mkdir_if_missing"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

var globalConfig *Config

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认配置文件路径
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	// 设置环境变量前缀
	v.SetEnvPrefix("CONSOLEPILOT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 兼容旧键名：backup.backup_backend -> backup.storage_backend
	if strings.TrimSpace(config.Backup.StorageBackend) == "" {
		if bb := strings.TrimSpace(v.GetString("backup.backup_backend")); bb != "" {
			config.Backup.StorageBackend = bb
		}
	}

	// 平台名统一小写
	if len(config.Console.DeviceDefaults) > 0 {
		dd := make(map[string]DeviceDefaultsConfig, len(config.Console.DeviceDefaults))
		for k, d := range config.Console.DeviceDefaults {
			dd[strings.ToLower(k)] = d
		}
		config.Console.DeviceDefaults = dd
	}

	config = replaceEnvVars(config)
	applyConcurrencyProfile(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &config
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 18000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	// 模拟服务开关默认关闭
	v.SetDefault("server.simulate_enable", false)
	v.SetDefault("server.simulate_config", "simulate/simulate.yaml")

	v.SetDefault("console.concurrent", 8)
	v.SetDefault("console.concurrency_profile", "")
	v.SetDefault("console.concurrency_profiles", map[string]int{
		"S":  8,
		"M":  16,
		"L":  32,
		"XL": 64,
	})
	v.SetDefault("console.retries", 1)
	v.SetDefault("console.connect_timeout", 10*time.Second)
	// 单台设备的整体期限（登录、取配置、注销）
	v.SetDefault("console.task_timeout", 5*time.Minute)
	v.SetDefault("console.default_protocol", "telnet")

	v.SetDefault("database.sqlite.path", "./data/consolepilot.db")
	v.SetDefault("database.sqlite.conn_max_lifetime", time.Hour)

	// 备份服务默认配置
	v.SetDefault("backup.storage_backend", "local")
	v.SetDefault("backup.prefix", "configs")
	v.SetDefault("backup.local.base_dir", "./data/backups")
	v.SetDefault("backup.local.prefix", "")
	v.SetDefault("backup.local.mkdir_if_missing", true)
	v.SetDefault("backup.keep_transcript", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "console")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
}

// Default 仅含默认值的配置，没有配置文件时使用
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	applyConcurrencyProfile(&config)
	return &config
}

// Get 获取全局配置
func Get() *Config {
	return globalConfig
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	if c.Console.Concurrent <= 0 {
		return fmt.Errorf("console.concurrent must be positive, got %d", c.Console.Concurrent)
	}
	switch strings.ToLower(c.Console.DefaultProtocol) {
	case "telnet", "ssh":
	default:
		return fmt.Errorf("console.default_protocol must be telnet or ssh, got %q", c.Console.DefaultProtocol)
	}
	switch strings.ToLower(c.Backup.StorageBackend) {
	case "local", "minio":
	default:
		return fmt.Errorf("backup.storage_backend must be local or minio, got %q", c.Backup.StorageBackend)
	}
	for name, d := range c.Console.DeviceDefaults {
		if d.Extraction != "" && d.Extraction != string(console.ExtractionDelimited) && d.Extraction != string(console.ExtractionFixed) {
			return fmt.Errorf("console.device_defaults.%s.extraction: unknown strategy %q", name, d.Extraction)
		}
		if d.MaxTimeouts < 0 {
			return fmt.Errorf("console.device_defaults.%s.max_timeouts must not be negative", name)
		}
	}
	return nil
}

// replaceEnvVars 替换形如 ${VAR} 的取值
func replaceEnvVars(config Config) Config {
	config.Storage.Minio.AccessKey = expandEnv(config.Storage.Minio.AccessKey)
	config.Storage.Minio.SecretKey = expandEnv(config.Storage.Minio.SecretKey)
	return config
}

func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
	}
	return s
}

// applyConcurrencyProfile 根据并发档位设置并发数（覆盖 Console.Concurrent）
func applyConcurrencyProfile(cfg *Config) {
	prof := strings.ToUpper(strings.TrimSpace(cfg.Console.ConcurrencyProfile))
	if prof == "" {
		return
	}
	// 兼容 "Concurrency-S" 写法
	if after, ok := strings.CutPrefix(prof, "CONCURRENCY-"); ok {
		prof = after
	}
	for k, n := range cfg.Console.ConcurrencyProfiles {
		if strings.ToUpper(k) == prof && n > 0 {
			cfg.Console.Concurrent = n
			return
		}
	}
}

// GetServerAddr 获取服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
