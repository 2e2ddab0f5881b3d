package service

import "time"

// DeviceTarget 一台设备的控制台连接参数
type DeviceTarget struct {
	DeviceIP       string `json:"device_ip"`
	Port           int    `json:"port,omitempty"`
	DeviceName     string `json:"device_name,omitempty"`
	DevicePlatform string `json:"device_platform"`
	// Protocol telnet | ssh，为空时使用 console.default_protocol
	Protocol string `json:"protocol,omitempty"`
	// UserName/Password 控制台登录凭据
	UserName string `json:"user_name"`
	Password string `json:"password"`
	// SSHUser/SSHPassword 经 SSH 接入终端服务器时的传输层凭据，为空时沿用控制台凭据
	SSHUser     string `json:"ssh_user,omitempty"`
	SSHPassword string `json:"ssh_password,omitempty"`
	SSHKeyFile  string `json:"ssh_key_file,omitempty"`
}

// BackupBatchRequest 批量备份请求
type BackupBatchRequest struct {
	TaskID         string `json:"task_id"`
	TaskName       string `json:"task_name,omitempty"`
	SaveDir        string `json:"save_dir,omitempty"`
	StorageBackend string `json:"storage_backend,omitempty"` // local | minio（默认读取配置）
	// Formats 取回的配置格式：plain | commands | json，默认 plain
	Formats   []string       `json:"formats,omitempty"`
	RetryFlag *int           `json:"retry_flag,omitempty"`
	Timeout   *int           `json:"timeout,omitempty"` // 单台设备超时（秒）
	Devices   []DeviceTarget `json:"devices"`
}

// StoredObject 存储的对象信息
type StoredObject struct {
	URI         string `json:"uri"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	ContentType string `json:"content_type"`
}

// FormatBackupResult 单个格式的取回结果
type FormatBackupResult struct {
	Format        string         `json:"format"`
	Content       string         `json:"content"`
	Lines         int            `json:"lines"`
	StoredObjects []StoredObject `json:"stored_objects"`
	Error         string         `json:"error,omitempty"`
}

// DeviceBackupResponse 设备备份响应
type DeviceBackupResponse struct {
	DeviceIP       string               `json:"device_ip"`
	Port           int                  `json:"port"`
	DeviceName     string               `json:"device_name,omitempty"`
	DevicePlatform string               `json:"device_platform,omitempty"`
	TaskID         string               `json:"task_id"`
	DeviceTaskID   string               `json:"device_task_id"`
	Success        bool                 `json:"success"`
	Results        []FormatBackupResult `json:"results"`
	Transcript     *StoredObject        `json:"transcript,omitempty"`
	Error          string               `json:"error,omitempty"`
	ErrorKind      string               `json:"error_kind,omitempty"`
	FinalMode      string               `json:"final_mode"`
	DurationMS     int64                `json:"duration_ms"`
	Timestamp      time.Time            `json:"timestamp"`
}

// BackupBatchResponse 批量备份响应
type BackupBatchResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Data    []DeviceBackupResponse `json:"data"`
	Total   int                    `json:"total"`
}
