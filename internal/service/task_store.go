package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/consolepilot/internal/database"
	"github.com/sshcollectorpro/consolepilot/internal/model"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// TaskStore 任务与配置快照的持久化
// 数据库未初始化时所有写入都是空操作，读取返回 ErrNoDatabase
type TaskStore struct {
	db *gorm.DB
}

// ErrNoDatabase 数据库未初始化
var ErrNoDatabase = errors.New("database not initialized")

// NewTaskStore 使用已初始化的全局数据库
func NewTaskStore() *TaskStore {
	return &TaskStore{db: database.GetDB()}
}

func (s *TaskStore) enabled() bool {
	return s != nil && s.db != nil
}

func (s *TaskStore) write(fn func(tx *gorm.DB) error) {
	if !s.enabled() {
		return
	}
	if err := database.WithRetry(fn, 5, 50*time.Millisecond); err != nil {
		logger.Warnf("persist task record failed: %v", err)
	}
}

// Start 写入运行中的任务
func (s *TaskStore) Start(task *model.Task) {
	task.Status = model.TaskStatusRunning
	task.StartTime = time.Now()
	s.write(func(tx *gorm.DB) error { return tx.Create(task).Error })
}

// Finish 根据执行结果更新任务状态
func (s *TaskStore) Finish(task *model.Task, err error, mode console.Mode) {
	task.EndTime = time.Now()
	task.Duration = task.EndTime.Sub(task.StartTime).Milliseconds()
	task.FinalMode = mode.String()
	task.Status = statusOf(err)
	if err == nil {
		s.write(func(tx *gorm.DB) error { return tx.Save(task).Error })
		return
	}
	task.ErrorMsg = err.Error()
	task.ErrorKind = console.KindName(err)
	if !s.enabled() {
		return
	}
	// 终态与错误日志同一事务落库，查询时不会出现失败任务缺日志
	entry := &model.TaskLog{ID: uuid.NewString(), TaskID: task.ID, Level: "error", Message: task.ErrorKind + ": " + task.ErrorMsg}
	terr := database.TransactionWithRetry(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	}, 5, 50*time.Millisecond)
	if terr != nil {
		logger.Warnf("persist task record failed: %v", terr)
	}
}

// statusOf 设备期限到达记为 timeout，调用方取消记为 cancelled
func statusOf(err error) string {
	switch {
	case err == nil:
		return model.TaskStatusSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return model.TaskStatusTimeout
	case errors.Is(err, context.Canceled):
		return model.TaskStatusCancelled
	default:
		return model.TaskStatusFailed
	}
}

// Log 追加任务日志
func (s *TaskStore) Log(taskID, level, message string) {
	s.write(func(tx *gorm.DB) error {
		return tx.Create(&model.TaskLog{ID: uuid.NewString(), TaskID: taskID, Level: level, Message: message}).Error
	})
}

// AddSnapshot 记录一次配置归档
func (s *TaskStore) AddSnapshot(snap *model.ConfigSnapshot) {
	s.write(func(tx *gorm.DB) error { return tx.Create(snap).Error })
}

// Get 按 ID 查询任务
func (s *TaskStore) Get(id string) (*model.Task, error) {
	if !s.enabled() {
		return nil, ErrNoDatabase
	}
	var task model.Task
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Batch 查询同一批次的全部任务
func (s *TaskStore) Batch(batchID string) ([]model.Task, error) {
	if !s.enabled() {
		return nil, ErrNoDatabase
	}
	var tasks []model.Task
	err := s.db.Where("batch_id = ?", batchID).Order("created_at").Find(&tasks).Error
	return tasks, err
}

// Snapshots 查询任务的配置快照
func (s *TaskStore) Snapshots(taskID string) ([]model.ConfigSnapshot, error) {
	if !s.enabled() {
		return nil, ErrNoDatabase
	}
	var snaps []model.ConfigSnapshot
	err := s.db.Where("task_id = ?", taskID).Order("id").Find(&snaps).Error
	return snaps, err
}

// Logs 查询任务日志
func (s *TaskStore) Logs(taskID string) ([]model.TaskLog, error) {
	if !s.enabled() {
		return nil, ErrNoDatabase
	}
	var logs []model.TaskLog
	err := s.db.Where("task_id = ?", taskID).Order("created_at").Find(&logs).Error
	return logs, err
}
