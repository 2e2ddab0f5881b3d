package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/consolepilot/internal/service"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Code: code, Message: message})
}

func succeed(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Code: "SUCCESS", Message: message, Data: data})
}

// bindTargets 解析请求体并校验每台设备的地址与平台
// 校验失败时已写出 400 响应，返回 false
func bindTargets(c *gin.Context, req interface{}, targets func() []service.DeviceTarget) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	devices := targets()
	if len(devices) == 0 {
		fail(c, http.StatusBadRequest, "INVALID_PARAMS", "devices are required")
		return false
	}
	for i, d := range devices {
		if d.DeviceIP == "" || d.DevicePlatform == "" {
			fail(c, http.StatusBadRequest, "INVALID_PARAMS", fmt.Sprintf("devices[%d]: device_ip and device_platform are required", i))
			return false
		}
	}
	return true
}
