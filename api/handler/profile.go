package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
)

// ProfileHandler 平台描述查询
type ProfileHandler struct{}

func NewProfileHandler() *ProfileHandler { return &ProfileHandler{} }

// overrides 当前配置中的平台覆盖项
func overrides(name string) console.Overrides {
	if cfg := config.Get(); cfg != nil {
		return cfg.Console.OverridesFor(name)
	}
	return console.Overrides{}
}

// ListProfiles 列出全部已注册平台（已套用配置覆盖）
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	infos, err := interact.DescribeAll(overrides)
	if err != nil {
		fail(c, http.StatusInternalServerError, "PROFILE_INVALID", err.Error())
		return
	}
	succeed(c, "获取平台列表成功", infos)
}

// GetProfile 查询单个平台
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	name := strings.ToLower(strings.TrimSpace(c.Param("platform")))
	if _, ok := interact.Get(name); !ok {
		fail(c, http.StatusNotFound, "PROFILE_NOT_FOUND", "unknown platform: " + name)
		return
	}
	info, err := interact.Describe(name, overrides(name))
	if err != nil {
		fail(c, http.StatusInternalServerError, "PROFILE_INVALID", err.Error())
		return
	}
	succeed(c, "获取平台成功", info)
}
