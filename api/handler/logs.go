package handler

import (
	"bufio"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/consolepilot/internal/config"
)

// LogsHandler 日志查询处理器
type LogsHandler struct{}

func NewLogsHandler() *LogsHandler { return &LogsHandler{} }

// TailLogs 返回日志文件末尾 N 行，可按关键字、级别或 task_id 过滤
func (h *LogsHandler) TailLogs(c *gin.Context) {
	cfg := config.Get()
	if cfg == nil {
		fail(c, http.StatusInternalServerError, "CONFIG_MISSING", "配置未初始化")
		return
	}
	path := strings.TrimSpace(cfg.Log.FilePath)
	if path == "" || cfg.Log.Output == "console" {
		fail(c, http.StatusBadRequest, "LOG_PATH_EMPTY", "日志未输出到文件")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	var filters []string
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filters = append(filters, strings.ToLower(q))
	}
	if lvl := strings.TrimSpace(c.Query("level")); lvl != "" {
		filters = append(filters, "level="+strings.ToLower(lvl))
	}
	if tid := strings.TrimSpace(c.Query("task_id")); tid != "" {
		filters = append(filters, tid)
	}

	lines, err := tailLines(path, limit, filters)
	if err != nil {
		fail(c, http.StatusInternalServerError, "READ_FAILED", "读取日志失败: " + err.Error())
		return
	}
	succeed(c, "获取日志成功", gin.H{"path": path, "count": len(lines), "lines": lines})
}

// matches 判断一行是否满足全部过滤条件
// level=xxx 同时匹配文本格式与 JSON 格式（"level":"xxx"）
func matches(line string, filters []string) bool {
	lc := strings.ToLower(line)
	for _, f := range filters {
		if lvl, ok := strings.CutPrefix(f, "level="); ok {
			if !strings.Contains(lc, "level="+lvl) && !strings.Contains(lc, `"level":"`+lvl+`"`) {
				return false
			}
			continue
		}
		if !strings.Contains(lc, strings.ToLower(f)) {
			return false
		}
	}
	return true
}

// tailLines 流式读取文件，只保留最后 limit 条匹配行
func tailLines(path string, limit int, filters []string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, limit)
	next := 0
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for s.Scan() {
		line := s.Text()
		if !matches(line, filters) {
			continue
		}
		if len(ring) < limit {
			ring = append(ring, line)
			continue
		}
		ring[next] = line
		next = (next + 1) % limit
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ring))
	out = append(out, ring[next:]...)
	return append(out, ring[:next]...), nil
}
