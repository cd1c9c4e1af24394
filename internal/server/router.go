package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/auth"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/chat"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/config"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/metrics"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/mw"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、聊天 REST 接口与 WebSocket 端点。
func SetupRouter(cfg config.Config, gdb *gorm.DB, gw *chat.Gateway, store chat.ChatStore) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，避免教学环境被刷爆。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(service.NewCourseService(gdb), store, gw, cfg.ChatHistoryLimit)

	api := r.Group("/api/v1")
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, gdb))
	authed.GET("/courses/:id/chat", h.ChatHistory)

	r.GET("/ws", gw.HandleConnection())

	// 前端构建产物存在时兜底到 SPA，否则退回静态目录。
	distDir := filepath.Join(".", "client", "dist")
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}
		rel := strings.TrimPrefix(filepath.Clean(c.Request.URL.Path), "/")
		if strings.HasPrefix(rel, "api/") || rel == "metrics" || rel == "healthz" || strings.HasPrefix(rel, "ws") {
			c.Status(http.StatusNotFound)
			return
		}
		target := filepath.Join(distDir, rel)
		if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
			c.File(target)
			return
		}
		if index := filepath.Join(distDir, "index.html"); fileExists(index) && !strings.Contains(rel, ".") {
			c.File(index)
			return
		}
		c.Status(http.StatusNotFound)
	})
	return r
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
