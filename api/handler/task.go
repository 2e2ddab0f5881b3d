package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/consolepilot/internal/service"
)

// TaskHandler 任务记录查询
type TaskHandler struct {
	store *service.TaskStore
}

func NewTaskHandler(store *service.TaskStore) *TaskHandler { return &TaskHandler{store: store} }

// GetTask 查询单台设备任务及其配置快照与日志
func (h *TaskHandler) GetTask(c *gin.Context) {
	id := c.Param("task_id")
	task, err := h.store.Get(id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	snaps, err := h.store.Snapshots(id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	logs, err := h.store.Logs(id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	succeed(c, "获取任务成功", gin.H{"task": task, "snapshots": snaps, "logs": logs})
}

// GetBatch 查询一个批次下的全部设备任务
func (h *TaskHandler) GetBatch(c *gin.Context) {
	id := c.Param("batch_id")
	tasks, err := h.store.Batch(id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	if len(tasks) == 0 {
		fail(c, http.StatusNotFound, "TASK_NOT_FOUND", "batch not found: " + id)
		return
	}
	succeed(c, "获取批次成功", tasks)
}

func (h *TaskHandler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		fail(c, http.StatusNotFound, "TASK_NOT_FOUND", "task not found")
	case errors.Is(err, service.ErrNoDatabase):
		fail(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error())
	default:
		fail(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
	}
}
