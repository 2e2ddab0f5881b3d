package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/internal/model"
	"github.com/sshcollectorpro/consolepilot/pkg/console"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// formatFiles 各配置格式的归档文件名与类型
var formatFiles = map[console.Format]struct {
	name        string
	contentType string
}{
	console.FormatPlain:    {"config_plain.txt", "text/plain; charset=utf-8"},
	console.FormatCommands: {"config_commands.txt", "text/plain; charset=utf-8"},
	console.FormatJSON:     {"config.json", "application/json"},
}

// BackupService 批量取回设备配置并归档
type BackupService struct {
	config  *config.Config
	runner  *Runner
	writer  StorageWriter
	store   *TaskStore
	mu      sync.RWMutex
	running bool
}

// NewBackupService 创建备份服务
func NewBackupService(cfg *config.Config, runner *Runner, writer StorageWriter, store *TaskStore) *BackupService {
	if runner == nil {
		runner = NewRunner(cfg)
	}
	if writer == nil {
		writer = NewStorageWriter(cfg)
	}
	return &BackupService{config: cfg, runner: runner, writer: writer, store: store}
}

// Start 启动服务
func (s *BackupService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	logger.Info("Backup service started")
	return nil
}

// Stop 停止服务
func (s *BackupService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	logger.Info("Backup service stopped")
	return nil
}

func (s *BackupService) isRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ExecuteBatch 并发备份请求中的全部设备
// 单台设备失败不影响其他设备，结果顺序与请求一致
func (s *BackupService) ExecuteBatch(ctx context.Context, req *BackupBatchRequest) (*BackupBatchResponse, error) {
	if !s.isRunning() {
		return nil, fmt.Errorf("backup service is not running")
	}
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if len(req.Devices) == 0 {
		return nil, fmt.Errorf("devices is empty")
	}
	if strings.TrimSpace(req.TaskID) == "" {
		req.TaskID = uuid.NewString()
	}
	formats, err := parseFormats(req.Formats)
	if err != nil {
		return nil, err
	}

	out := make([]DeviceBackupResponse, len(req.Devices))
	var g errgroup.Group
	g.SetLimit(s.runner.concurrency())
	for i := range req.Devices {
		i := i
		g.Go(func() error {
			out[i] = s.backupDevice(ctx, req, req.Devices[i], formats)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range out {
		if !r.Success {
			failed++
		}
	}
	resp := &BackupBatchResponse{
		Code:    "SUCCESS",
		Message: "batch backup executed",
		Data:    out,
		Total:   len(out),
	}
	if failed > 0 {
		resp.Code = "PARTIAL_SUCCESS"
		resp.Message = fmt.Sprintf("%d of %d devices failed", failed, len(out))
	}
	return resp, nil
}

// parseFormats 校验格式名称，默认只取 plain
func parseFormats(names []string) ([]console.Format, error) {
	if len(names) == 0 {
		return []console.Format{console.FormatPlain}, nil
	}
	seen := map[console.Format]bool{}
	var out []console.Format
	for _, n := range names {
		f := console.Format(strings.ToLower(strings.TrimSpace(n)))
		if _, ok := formatFiles[f]; !ok {
			return nil, fmt.Errorf("unknown format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *BackupService) backend(req *BackupBatchRequest) string {
	backend := strings.ToLower(strings.TrimSpace(req.StorageBackend))
	if backend == "" {
		backend = strings.ToLower(strings.TrimSpace(s.config.Backup.StorageBackend))
	}
	if backend == "" {
		backend = "local"
	}
	return backend
}

func (s *BackupService) backupDevice(ctx context.Context, req *BackupBatchRequest, dev DeviceTarget, formats []console.Format) DeviceBackupResponse {
	start := time.Now()
	resp := DeviceBackupResponse{
		DeviceIP:       dev.DeviceIP,
		Port:           s.runner.port(dev),
		DeviceName:     dev.DeviceName,
		DevicePlatform: dev.DevicePlatform,
		TaskID:         req.TaskID,
		DeviceTaskID:   uuid.NewString(),
		Results:        []FormatBackupResult{},
		FinalMode:      console.ModeUnknown.String(),
		Timestamp:      start,
	}
	task := &model.Task{
		ID:         resp.DeviceTaskID,
		BatchID:    req.TaskID,
		Type:       model.TaskTypeBackup,
		Platform:   strings.ToLower(dev.DevicePlatform),
		DeviceName: dev.DeviceName,
		DeviceIP:   dev.DeviceIP,
		DevicePort: resp.Port,
		Protocol:   s.runner.protocol(dev),
		Username:   dev.UserName,
	}
	s.store.Start(task)

	timeout, retries := s.runner.deviceSettings(dev.DevicePlatform, req.Timeout, req.RetryFlag)
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backend := s.backend(req)
	meta := StorageMeta{
		SaveDir:      req.SaveDir,
		DateYYYYMMDD: start.Format("20060102"),
		TimeHHMMSS:   start.Format("150405"),
		TaskID:       req.TaskID,
		DeviceName:   dev.DeviceName,
		DeviceIP:     dev.DeviceIP,
		Backend:      backend,
	}

	mode := console.ModeUnknown
	var transcript string
	err := s.runner.Run(dctx, dev, task.ID, retries, func(sess *console.Session) error {
		defer func() {
			mode = sess.Mode()
			transcript = sess.Transcript().String()
		}()
		if err := sess.Login(dev.UserName, dev.Password); err != nil {
			return err
		}
		profile := sess.Profile()
		for _, f := range formats {
			r := FormatBackupResult{Format: string(f), StoredObjects: []StoredObject{}}
			if _, ok := profile.DisplayCommand(f); !ok {
				r.Error = fmt.Sprintf("format %s not supported by %s", f, profile.Name)
				resp.Results = append(resp.Results, r)
				continue
			}
			content, err := sess.GetConfiguration(f)
			if err != nil {
				return err
			}
			r.Content = content
			if content != "" {
				r.Lines = strings.Count(content, "\n") + 1
			}
			s.archive(dctx, meta, task, dev, f, &r)
			resp.Results = append(resp.Results, r)
		}
		return sess.Logout()
	})
	if err != nil && dctx.Err() != nil && ctx.Err() == nil {
		err = fmt.Errorf("device timeout after %s: %w", timeout, err)
	}

	if transcript != "" && s.config.Backup.KeepTranscript {
		m := meta
		m.FileName = "session.log"
		obj, werr := s.writer.Write(context.WithoutCancel(ctx), m, transcript, "text/plain; charset=utf-8")
		if obj.URI != "" {
			resp.Transcript = &obj
		}
		if werr != nil {
			s.store.Log(task.ID, "warn", "transcript: "+werr.Error())
		}
	}

	s.store.Finish(task, err, mode)
	resp.FinalMode = mode.String()
	resp.DurationMS = time.Since(start).Milliseconds()
	resp.Success = err == nil
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = console.KindName(err)
		if resp.ErrorKind == "" {
			resp.ErrorKind = task.Status
		}
		logger.WithField("task_id", task.ID).Warnf("backup of %s failed: %v", dev.DeviceIP, err)
	}
	return resp
}

// archive 写入单个格式的配置并记录快照
func (s *BackupService) archive(ctx context.Context, meta StorageMeta, task *model.Task, dev DeviceTarget, f console.Format, r *FormatBackupResult) {
	file := formatFiles[f]
	meta.FileName = file.name
	obj, err := s.writer.Write(ctx, meta, r.Content, file.contentType)
	if obj.URI != "" {
		r.StoredObjects = append(r.StoredObjects, obj)
		s.store.AddSnapshot(&model.ConfigSnapshot{
			TaskID:     task.ID,
			DeviceName: dev.DeviceName,
			DeviceIP:   dev.DeviceIP,
			Platform:   task.Platform,
			Format:     string(f),
			Backend:    backendOf(obj.URI),
			Location:   obj.URI,
			Lines:      r.Lines,
			Size:       obj.Size,
			SHA256:     strings.TrimPrefix(obj.Checksum, "sha256:"),
		})
	}
	if err != nil {
		r.Error = err.Error()
		s.store.Log(task.ID, "warn", fmt.Sprintf("store %s: %v", f, err))
	}
}

func backendOf(uri string) string {
	if strings.HasPrefix(uri, "minio://") {
		return "minio"
	}
	return "local"
}
