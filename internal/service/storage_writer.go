package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
)

// StorageWriter 抽象存储写入器
type StorageWriter interface {
	Write(ctx context.Context, meta StorageMeta, content string, contentType string) (StoredObject, error)
}

// StorageMeta 写入元数据
type StorageMeta struct {
	SaveDir      string
	DateYYYYMMDD string
	// TimeHHMMSS 设备任务开始时间（统一目录时间戳），格式为 HHMMSS
	TimeHHMMSS string
	TaskID     string
	DeviceName string
	DeviceIP   string
	// FileName 文件名，不带扩展名时追加 .txt
	FileName string
	Backend  string // local|minio
}

// objectParts 目录层级：prefix / local.prefix / save_dir / device / date_time / task
func objectParts(cfg *config.Config, meta StorageMeta) []string {
	var parts []string
	if p := strings.TrimSpace(cfg.Backup.Prefix); p != "" {
		parts = append(parts, p)
	}
	if p := strings.TrimSpace(cfg.Backup.Local.Prefix); p != "" {
		parts = append(parts, p)
	}
	if sd := strings.TrimSpace(meta.SaveDir); sd != "" {
		parts = append(parts, sd)
	}
	deviceLabel := strings.TrimSpace(meta.DeviceName)
	if deviceLabel == "" {
		deviceLabel = strings.TrimSpace(meta.DeviceIP)
	}
	parts = append(parts, slug(deviceLabel))

	datePart := strings.TrimSpace(meta.DateYYYYMMDD)
	if datePart == "" {
		datePart = time.Now().Format("20060102")
	}
	timePart := strings.TrimSpace(meta.TimeHHMMSS)
	if timePart == "" {
		timePart = time.Now().Format("150405")
	}
	parts = append(parts, fmt.Sprintf("%s_%s", datePart, timePart))
	if tid := strings.TrimSpace(meta.TaskID); tid != "" {
		parts = append(parts, tid)
	}
	return parts
}

func fileName(meta StorageMeta) string {
	base := slug(meta.FileName)
	if !strings.Contains(base, ".") {
		return base + ".txt"
	}
	return base
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// NewStorageWriter 根据配置创建写入器（委派到本地或 MinIO）
func NewStorageWriter(cfg *config.Config) StorageWriter {
	dw := &DelegatingStorageWriter{cfg: cfg, local: &LocalStorageWriter{cfg: cfg}}
	if strings.EqualFold(cfg.Backup.StorageBackend, "minio") || strings.TrimSpace(cfg.Storage.Minio.Host) != "" {
		dw.minio = initMinioWriter(cfg)
	}
	return dw
}

// DelegatingStorageWriter 按后端路由写入；MinIO 不可用时回落本地并返回预警错误
type DelegatingStorageWriter struct {
	cfg   *config.Config
	local *LocalStorageWriter
	minio *MinioStorageWriter
}

func (w *DelegatingStorageWriter) Write(ctx context.Context, meta StorageMeta, content string, contentType string) (StoredObject, error) {
	if !strings.EqualFold(strings.TrimSpace(meta.Backend), "minio") {
		return w.local.Write(ctx, meta, content, contentType)
	}

	cause := errors.New("minio client not initialized")
	if w.minio != nil {
		obj, err := w.minio.Write(ctx, meta, content, contentType)
		if err == nil {
			return obj, nil
		}
		cause = err
	}
	logger.WithField("task_id", meta.TaskID).Warnf("minio unavailable, archiving locally: %v", cause)
	obj, err := w.local.Write(ctx, meta, content, contentType)
	if err != nil {
		return StoredObject{}, fmt.Errorf("%v; local fallback failed: %w", cause, err)
	}
	// 对象有效，错误仅供上层记录
	return obj, fmt.Errorf("%w; archived locally instead", cause)
}

// LocalStorageWriter 本地文件写入
type LocalStorageWriter struct {
	cfg *config.Config
}

func (w *LocalStorageWriter) Write(_ context.Context, meta StorageMeta, content string, contentType string) (StoredObject, error) {
	base := strings.TrimSpace(w.cfg.Backup.Local.BaseDir)
	if base == "" {
		base = "./data/backups"
	}
	dir := filepath.Join(append([]string{base}, objectParts(w.cfg, meta)...)...)
	if w.cfg.Backup.Local.MkdirIfMissing {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return StoredObject{}, fmt.Errorf("create archive dir: %w", err)
		}
	}

	full := filepath.Join(dir, fileName(meta))
	data := []byte(content)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return StoredObject{}, fmt.Errorf("write archive: %w", err)
	}
	return storedObject("file://"+full, data, contentType), nil
}

func storedObject(uri string, data []byte, contentType string) StoredObject {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	return StoredObject{URI: uri, Size: int64(len(data)), Checksum: checksum(data), ContentType: contentType}
}

// MinioStorageWriter MinIO 对象存储写入，并发安全
type MinioStorageWriter struct {
	cfg      *config.Config
	client   *minio.Client
	endpoint string

	mu     sync.Mutex
	bucket bool // bucket 已确认存在
}

// initMinioWriter 初始化 MinIO 写入器，bucket 在首次写入时确认
func initMinioWriter(cfg *config.Config) *MinioStorageWriter {
	mc := cfg.Storage.Minio
	if strings.TrimSpace(mc.Host) == "" || mc.Port <= 0 {
		logger.Warnf("MinIO configuration incomplete; host/port missing")
		return nil
	}
	endpoint := net.JoinHostPort(strings.TrimSpace(mc.Host), strconv.Itoa(mc.Port))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
		Secure: mc.Secure,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   16,
		},
	})
	if err != nil {
		logger.Errorf("MinIO client initialization failed: %v", err)
		return nil
	}
	return &MinioStorageWriter{cfg: cfg, client: client, endpoint: endpoint}
}

// ObjectName 对象路径，与本地目录层级一致
func (w *MinioStorageWriter) ObjectName(meta StorageMeta) string {
	return path.Join(append(objectParts(w.cfg, meta), fileName(meta))...)
}

// Write 将内容写入 MinIO，失败按 2s/4s/8s 退避重试
func (w *MinioStorageWriter) Write(ctx context.Context, meta StorageMeta, content string, contentType string) (StoredObject, error) {
	if w == nil || w.client == nil {
		return StoredObject{}, errors.New("minio client not initialized")
	}
	bucket := strings.TrimSpace(w.cfg.Storage.Minio.Bucket)
	if bucket == "" {
		return StoredObject{}, errors.New("minio bucket not configured")
	}

	// 端口不通时快速失败，避免 SDK 内部长时间重试
	probe, err := (&net.Dialer{Timeout: 3 * time.Second}).DialContext(ctx, "tcp", w.endpoint)
	if err != nil {
		return StoredObject{}, fmt.Errorf("minio %s unreachable: %w", w.endpoint, err)
	}
	_ = probe.Close()

	if err := w.ensureBucket(ctx, bucket); err != nil {
		return StoredObject{}, fmt.Errorf("minio ensure bucket %s: %w", bucket, err)
	}

	name := w.ObjectName(meta)
	data := []byte(content)
	obj := storedObject("minio://"+path.Join(bucket, name), data, contentType)
	err = backoff(ctx, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, func(actx context.Context) error {
		_, err := w.client.PutObject(actx, bucket, name, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: obj.ContentType})
		return err
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("minio put %s: %w", name, err)
	}
	return obj, nil
}

// ensureBucket 首次写入时确认 bucket，不存在则创建
func (w *MinioStorageWriter) ensureBucket(ctx context.Context, bucket string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.bucket {
		return nil
	}
	err := backoff(ctx, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, func(actx context.Context) error {
		exists, err := w.client.BucketExists(actx, bucket)
		if err != nil || exists {
			return err
		}
		return w.client.MakeBucket(actx, bucket, minio.MakeBucketOptions{})
	})
	w.bucket = err == nil
	return err
}

// backoff 每次尝试使用限时上下文（不超出父上下文剩余时间），失败后等待下一档间隔
func backoff(ctx context.Context, waits []time.Duration, fn func(context.Context) error) error {
	var err error
	for i, wait := range waits {
		actx, cancel := attemptContext(ctx, 10*time.Second)
		err = fn(actx)
		cancel()
		if err == nil || i == len(waits)-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

// attemptContext 构造限时上下文，父上下文剩余不足时预留 1s 给收尾
func attemptContext(parent context.Context, prefer time.Duration) (context.Context, context.CancelFunc) {
	deadline, ok := parent.Deadline()
	if !ok {
		return context.WithTimeout(parent, prefer)
	}
	remain := time.Until(deadline) - time.Second
	switch {
	case remain < time.Second:
		return context.WithTimeout(parent, time.Second)
	case remain < prefer:
		return context.WithTimeout(parent, remain)
	default:
		return context.WithTimeout(parent, prefer)
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9._-]+`)

var slugSeparators = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// slug 路径片段只保留小写字母数字与 ._-
func slug(s string) string {
	s = slugSeparators.Replace(strings.ToLower(strings.TrimSpace(s)))
	if s = slugRe.ReplaceAllString(s, ""); s == "" {
		return "unknown"
	}
	return s
}
