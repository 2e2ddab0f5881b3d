package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sshcollectorpro/consolepilot/addone/interact"
	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/internal/model"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// DeployService 在配置模式下下发命令块
type DeployService struct {
	cfg     *config.Config
	runner  *Runner
	store   *TaskStore
	mu      sync.RWMutex
	running bool
}

// NewDeployService 创建下发服务
func NewDeployService(cfg *config.Config, runner *Runner, store *TaskStore) *DeployService {
	if runner == nil {
		runner = NewRunner(cfg)
	}
	return &DeployService{cfg: cfg, runner: runner, store: store}
}

func (s *DeployService) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	logger.Info("Deploy service started")
	return nil
}

func (s *DeployService) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	logger.Info("Deploy service stopped")
	return nil
}

// DeployRequest 下发请求
type DeployRequest struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name,omitempty"`
	// Commit 为 false 时放弃修改退出（演练）
	Commit bool `json:"commit"`
	// Save 提交后写入启动配置
	Save bool `json:"save"`
	// FetchAfter 下发后取回配置，Format 为空时取 plain
	FetchAfter bool           `json:"fetch_after"`
	Format     string         `json:"format,omitempty"`
	RetryFlag  *int           `json:"retry_flag,omitempty"`
	Timeout    *int           `json:"timeout,omitempty"`
	Devices    []DeployDevice `json:"devices"`
}

// DeployDevice 设备与其命令块
type DeployDevice struct {
	DeviceTarget
	Commands []string `json:"commands,omitempty"`
	// ConfigDeploy 多行文本形式的命令块，与 Commands 合并
	ConfigDeploy string `json:"config_deploy,omitempty"`
}

// DeployDeviceResult 单台设备下发结果
type DeployDeviceResult struct {
	DeviceIP       string   `json:"device_ip"`
	DeviceName     string   `json:"device_name,omitempty"`
	DevicePlatform string   `json:"device_platform"`
	DeviceTaskID   string   `json:"device_task_id"`
	Success        bool     `json:"success"`
	Commands       []string `json:"commands"`
	Committed      bool     `json:"committed"`
	Saved          bool     `json:"saved"`
	Configuration  string   `json:"configuration,omitempty"`
	Error          string   `json:"error,omitempty"`
	ErrorKind      string   `json:"error_kind,omitempty"`
	FinalMode      string   `json:"final_mode"`
	DurationMS     int64    `json:"duration_ms"`
}

// DeployResponse 批量下发响应
type DeployResponse struct {
	Code     string               `json:"code"`
	Message  string               `json:"message"`
	TaskID   string               `json:"task_id"`
	Results  []DeployDeviceResult `json:"results"`
	Total    int                  `json:"total"`
	Duration string               `json:"duration"`
}

// Execute 并发下发到请求中的全部设备
func (s *DeployService) Execute(ctx context.Context, req *DeployRequest) (*DeployResponse, error) {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return nil, fmt.Errorf("deploy service is not running")
	}
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if len(req.Devices) == 0 {
		return nil, fmt.Errorf("devices is empty")
	}
	format := console.FormatPlain
	if req.FetchAfter && strings.TrimSpace(req.Format) != "" {
		fs, err := parseFormats([]string{req.Format})
		if err != nil {
			return nil, err
		}
		format = fs[0]
	}
	if strings.TrimSpace(req.TaskID) == "" {
		req.TaskID = uuid.NewString()
	}

	start := time.Now()
	out := make([]DeployDeviceResult, len(req.Devices))
	var g errgroup.Group
	g.SetLimit(s.runner.concurrency())
	for i := range req.Devices {
		i := i
		g.Go(func() error {
			out[i] = s.deployDevice(ctx, req, req.Devices[i], format)
			return nil
		})
	}
	_ = g.Wait()

	resp := &DeployResponse{
		Code:     "SUCCESS",
		Message:  "deploy executed",
		TaskID:   req.TaskID,
		Results:  out,
		Total:    len(out),
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	failed := 0
	for _, r := range out {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		resp.Code = "PARTIAL_SUCCESS"
		resp.Message = fmt.Sprintf("%d of %d devices failed", failed, len(out))
	}
	return resp, nil
}

// commandsFor 合并命令来源并交给平台插件整理
func commandsFor(dev DeployDevice) []string {
	cmds := append([]string{}, dev.Commands...)
	if dev.ConfigDeploy != "" {
		cmds = append(cmds, strings.Split(strings.ReplaceAll(dev.ConfigDeploy, "\r\n", "\n"), "\n")...)
	}
	plugin, ok := interact.Get(strings.ToLower(strings.TrimSpace(dev.DevicePlatform)))
	if !ok {
		return interact.StripCommands(cmds, "")
	}
	return plugin.TransformCommands(interact.CommandTransformInput{
		Commands: cmds,
		Metadata: map[string]interface{}{
			"device_ip":   dev.DeviceIP,
			"device_name": dev.DeviceName,
			"platform":    dev.DevicePlatform,
		},
	}).Commands
}

func (s *DeployService) deployDevice(ctx context.Context, req *DeployRequest, dev DeployDevice, format console.Format) DeployDeviceResult {
	start := time.Now()
	cmds := commandsFor(dev)
	res := DeployDeviceResult{
		DeviceIP:       dev.DeviceIP,
		DeviceName:     dev.DeviceName,
		DevicePlatform: dev.DevicePlatform,
		DeviceTaskID:   uuid.NewString(),
		Commands:       cmds,
		FinalMode:      console.ModeUnknown.String(),
	}
	task := &model.Task{
		ID:         res.DeviceTaskID,
		BatchID:    req.TaskID,
		Type:       model.TaskTypeDeploy,
		Platform:   strings.ToLower(dev.DevicePlatform),
		DeviceName: dev.DeviceName,
		DeviceIP:   dev.DeviceIP,
		DevicePort: s.runner.port(dev.DeviceTarget),
		Protocol:   s.runner.protocol(dev.DeviceTarget),
		Username:   dev.UserName,
		Commands:   strings.Join(cmds, "\n"),
	}
	s.store.Start(task)

	mode := console.ModeUnknown
	var err error
	if len(cmds) == 0 {
		err = fmt.Errorf("no commands to deploy")
	} else {
		timeout, retries := s.runner.deviceSettings(dev.DevicePlatform, req.Timeout, req.RetryFlag)
		dctx, cancel := context.WithTimeout(ctx, timeout)
		err = s.runner.Run(dctx, dev.DeviceTarget, task.ID, retries, func(sess *console.Session) error {
			defer func() { mode = sess.Mode() }()
			if err := sess.Login(dev.UserName, dev.Password); err != nil {
				return err
			}
			if err := sess.Configure(strings.Join(cmds, "\n"), req.Commit, req.Save); err != nil {
				return err
			}
			res.Committed = req.Commit
			res.Saved = req.Commit && req.Save
			if req.FetchAfter {
				cfgText, err := sess.GetConfiguration(format)
				if err != nil {
					return err
				}
				res.Configuration = cfgText
				task.Result = cfgText
			}
			return sess.Logout()
		})
		cancel()
	}

	s.store.Finish(task, err, mode)
	res.FinalMode = mode.String()
	res.DurationMS = time.Since(start).Milliseconds()
	res.Success = err == nil
	if err != nil {
		res.Error = err.Error()
		res.ErrorKind = console.KindName(err)
		if res.ErrorKind == "" {
			res.ErrorKind = task.Status
		}
		logger.WithField("task_id", task.ID).Warnf("deploy to %s failed: %v", dev.DeviceIP, err)
	}
	return res
}
