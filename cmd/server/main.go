package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/consolepilot/api/router"
	"github.com/sshcollectorpro/consolepilot/internal/config"
	"github.com/sshcollectorpro/consolepilot/internal/database"
	"github.com/sshcollectorpro/consolepilot/internal/service"
	"github.com/sshcollectorpro/consolepilot/pkg/logger"
	"github.com/sshcollectorpro/consolepilot/simulate"
)

const configPath = "configs/config.yaml"

func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
}

// simulator 可随配置启停的模拟设备
type simulator struct {
	mu  sync.Mutex
	mgr *simulate.Manager
}

func (s *simulator) start(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mgr != nil {
		return
	}
	sc, err := simulate.LoadConfig(path)
	if err != nil {
		logger.Warnf("Simulate: failed to load %s: %v", path, err)
		return
	}
	mgr, err := simulate.Start(sc)
	if err != nil {
		logger.Warnf("Simulate: failed to start: %v", err)
		return
	}
	s.mgr = mgr
	ports := make([]string, 0, len(sc.Namespace))
	for _, ns := range mgr.Namespaces() {
		addr, _ := mgr.Addr(ns)
		ports = append(ports, fmt.Sprintf("%s=%s", ns, addr))
	}
	logger.Infof("Simulate: started namespaces %s", strings.Join(ports, ", "))
}

func (s *simulator) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mgr != nil {
		s.mgr.Stop()
		s.mgr = nil
		logger.Info("Simulate: stopped")
	}
}

// watch 监听文件变化，防抖后回调
func watch(path string, onChange func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("watch %s init failed: %v", path, err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		logger.Warnf("watch %s add failed: %v", path, err)
		return
	}
	var debounce *time.Timer
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, onChange)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("watch %s error: %v", path, err)
		}
	}
}

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := initLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"version":    router.Version,
		"concurrent": cfg.Console.Concurrent,
		"profile":    cfg.Console.ConcurrencyProfile,
		"protocol":   cfg.Console.DefaultProtocol,
	}).Info("Starting ConsolePilot server")

	if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	runner := service.NewRunner(cfg)
	store := service.NewTaskStore()

	backupService := service.NewBackupService(cfg, runner, service.NewStorageWriter(cfg), store)
	if err := backupService.Start(ctx); err != nil {
		logger.Fatalf("Failed to start backup service: %v", err)
	}
	defer backupService.Stop()

	deployService := service.NewDeployService(cfg, runner, store)
	if err := deployService.Start(ctx); err != nil {
		logger.Fatalf("Failed to start deploy service: %v", err)
	}
	defer deployService.Stop()

	sim := &simulator{}
	if cfg.Server.SimulateEnable {
		sim.start(cfg.Server.SimulateConfig)
	}
	defer sim.stop()

	r := router.SetupRouter(cfg.Server.Mode, router.Services{Backup: backupService, Deploy: deployService, Tasks: store})
	server := &http.Server{
		Addr:           cfg.GetServerAddr(),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("Server listening on %s (mode %s)", server.Addr, cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 配置热更新：原地覆盖，服务持有的指针不变
	go watch(configPath, func() {
		newCfg, err := config.Load(configPath)
		if err != nil {
			logger.Warnf("Config reload failed: %v", err)
			return
		}
		*cfg = *newCfg
		_ = initLogger(cfg)
		logger.Info("Config reloaded")
		if cfg.Server.SimulateEnable {
			sim.start(cfg.Server.SimulateConfig)
		} else {
			sim.stop()
		}
	})

	// 模拟设备定义变化时重启模拟服务
	if _, err := os.Stat(cfg.Server.SimulateConfig); err == nil {
		simPath := cfg.Server.SimulateConfig
		go watch(simPath, func() {
			if !cfg.Server.SimulateEnable {
				return
			}
			sim.stop()
			sim.start(simPath)
		})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Info("Server shutdown complete")
	}
}
