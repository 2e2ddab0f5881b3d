package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/consolepilot/internal/service"
)

// BackupHandler 备份接口处理器
type BackupHandler struct {
	svc *service.BackupService
}

func NewBackupHandler(svc *service.BackupService) *BackupHandler { return &BackupHandler{svc: svc} }

// BatchBackup 批量取回设备配置，单台失败体现在结果中而不是 HTTP 状态
func (h *BackupHandler) BatchBackup(c *gin.Context) {
	var req service.BackupBatchRequest
	if !bindTargets(c, &req, func() []service.DeviceTarget { return req.Devices }) {
		return
	}
	resp, err := h.svc.ExecuteBatch(c.Request.Context(), &req)
	if err != nil {
		fail(c, http.StatusInternalServerError, "BACKUP_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}
