package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/consolepilot/internal/service"
)

type DeployHandler struct {
	svc *service.DeployService
}

func NewDeployHandler(svc *service.DeployService) *DeployHandler {
	return &DeployHandler{svc: svc}
}

// Deploy 处理 api/v1/deploy
// commit 缺省为 false，即演练后放弃修改
func (h *DeployHandler) Deploy(c *gin.Context) {
	var req service.DeployRequest
	targets := func() []service.DeviceTarget {
		out := make([]service.DeviceTarget, len(req.Devices))
		for i, d := range req.Devices {
			out[i] = d.DeviceTarget
		}
		return out
	}
	if !bindTargets(c, &req, targets) {
		return
	}
	resp, err := h.svc.Execute(c.Request.Context(), &req)
	if err != nil {
		fail(c, http.StatusInternalServerError, "DEPLOY_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}
