package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/consolepilot/api/handler"
	"github.com/sshcollectorpro/consolepilot/internal/service"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// Version 服务版本
const Version = "1.0.0"

// Services 路由依赖的服务
type Services struct {
	Backup *service.BackupService
	Deploy *service.DeployService
	Tasks  *service.TaskStore
}

// SetupRouter 设置路由
func SetupRouter(mode string, svc Services) *gin.Engine {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	healthHandler := handler.NewHealthHandler(Version)
	profileHandler := handler.NewProfileHandler()
	backupHandler := handler.NewBackupHandler(svc.Backup)
	deployHandler := handler.NewDeployHandler(svc.Deploy)
	taskHandler := handler.NewTaskHandler(svc.Tasks)
	logsHandler := handler.NewLogsHandler()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "ConsolePilot",
			"version": Version,
			"status":  "running",
		})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		// 平台描述
		v1.GET("/profiles", profileHandler.ListProfiles)
		v1.GET("/profiles/:platform", profileHandler.GetProfile)

		v1.POST("/backup/batch", backupHandler.BatchBackup)
		v1.POST("/deploy", deployHandler.Deploy)

		// 任务记录
		v1.GET("/tasks/:task_id", taskHandler.GetTask)
		v1.GET("/batches/:batch_id", taskHandler.GetBatch)

		v1.GET("/logs/tail", logsHandler.TailLogs)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"duration":   time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		})
		if status >= 400 {
			entry.Warn("HTTP Error")
			return
		}
		entry.Info("HTTP Request")
	}
}
