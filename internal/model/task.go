package model

import (
	"time"
)

// Task 单台设备的控制台任务
type Task struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	BatchID    string    `json:"batch_id" gorm:"type:varchar(64);index"`
	Type       string    `json:"type" gorm:"type:varchar(32);not null"`
	Platform   string    `json:"platform" gorm:"type:varchar(32);not null"`
	DeviceName string    `json:"device_name" gorm:"type:varchar(128)"`
	DeviceIP   string    `json:"device_ip" gorm:"type:varchar(64);not null"`
	DevicePort int       `json:"device_port" gorm:"not null;default:23"`
	Protocol   string    `json:"protocol" gorm:"type:varchar(16);not null;default:'telnet'"`
	Username   string    `json:"username" gorm:"type:varchar(64);not null"`
	Commands   string    `json:"commands" gorm:"type:text"`
	Status     string    `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	Result     string    `json:"result" gorm:"type:text"`
	ErrorKind  string    `json:"error_kind" gorm:"type:varchar(32)"`
	ErrorMsg   string    `json:"error_msg" gorm:"type:text"`
	FinalMode  string    `json:"final_mode" gorm:"type:varchar(32)"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Duration   int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 表名
func (Task) TableName() string {
	return "tasks"
}

// TaskStatus 任务状态枚举
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusSuccess   = "success"
	TaskStatusFailed    = "failed"
	TaskStatusTimeout   = "timeout"
	TaskStatusCancelled = "cancelled"
)

// TaskType 任务类型枚举
const (
	TaskTypeBackup = "backup"
	TaskTypeDeploy = "deploy"
)

// TaskLog 任务日志
type TaskLog struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	TaskID    string    `json:"task_id" gorm:"type:varchar(64);not null;index"`
	Level     string    `json:"level" gorm:"type:varchar(16);not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (TaskLog) TableName() string {
	return "task_logs"
}
