package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
	"github.com/sshcollectorpro/consolepilot/internal/database"
)

// HealthHandler 健康检查
type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler { return &HealthHandler{version: version} }

// Health 返回数据库状态与已注册平台
func (h *HealthHandler) Health(c *gin.Context) {
	data := gin.H{
		"version":   h.version,
		"platforms": interact.Names(),
	}
	if database.GetDB() == nil {
		data["database"] = "disabled"
	} else if err := database.Health(); err != nil {
		fail(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "数据库不可用: " + err.Error())
		return
	} else {
		data["database"] = database.GetStats()
	}
	succeed(c, "服务正常", data)
}
