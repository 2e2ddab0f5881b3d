package model

import "time"

// ConfigSnapshot 一次取回的设备配置
// 正文保存在归档存储中，这里只记录位置与校验和
type ConfigSnapshot struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TaskID     string    `json:"task_id" gorm:"type:varchar(64);not null;index"`
	DeviceName string    `json:"device_name" gorm:"type:varchar(128);index"`
	DeviceIP   string    `json:"device_ip" gorm:"type:varchar(64);not null"`
	Platform   string    `json:"platform" gorm:"type:varchar(32);not null"`
	Format     string    `json:"format" gorm:"type:varchar(16);not null"`
	Backend    string    `json:"backend" gorm:"type:varchar(16);not null"`
	Location   string    `json:"location" gorm:"type:text;not null"`
	Lines      int       `json:"lines"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256" gorm:"column:sha256;type:varchar(64)"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ConfigSnapshot) TableName() string { return "config_snapshots" }
