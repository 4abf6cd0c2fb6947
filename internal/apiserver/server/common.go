// Package server 路由配置与核心基础设施
//
// 本包组装 HTTP 入口：GraphQL 端点、REST 只读接口、健康检查与指标，
// 并提供请求 ID、访问日志、CORS 与指标中间件。
//
// 文件组织：
//   - common.go: Handler 定义与通用工具函数
//   - handler.go: 路由
//   - middleware.go: 请求 ID、访问日志、CORS
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"blog-graphql/internal/apiserver/graphql"
	"blog-graphql/internal/apiserver/loader"
	"blog-graphql/internal/shared/storage"
	"blog-graphql/pkg/dataloader"
	"blog-graphql/pkg/logging"
)

// Options Handler 选项
type Options struct {
	// AllowedOrigin 允许跨域访问的来源（通常为服务对外 URL），为空时允许任意来源且不携带凭证
	AllowedOrigin string
	GraphQL       graphql.Config
	Loader        dataloader.Config
	Logger        *logging.Logger
	// Metrics 为空时创建独立注册表的实例
	Metrics *Metrics
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，持有存储层与 GraphQL 执行器。
// 请求级状态（加载器）由中间件在每个请求内创建，Handler 本身可并发复用。
type Handler struct {
	store         storage.PersistentStore
	gql           *graphql.Handler
	loaderOpts    loader.Options
	metrics       *Metrics
	logger        *logging.Logger
	allowedOrigin string
}

// NewHandler 创建 Handler 实例
func NewHandler(store storage.PersistentStore, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics("blog")
	}

	loaderOpts := loader.Options{
		Config:   opts.Loader,
		Logger:   logger,
		Observer: metrics.RecordBatch,
	}
	gql := graphql.NewHandler(store, opts.GraphQL, loaderOpts, logger)
	gql.OnComplete(metrics.RecordLoaderStats)

	return &Handler{
		store:         store,
		gql:           gql,
		loaderOpts:    loaderOpts,
		metrics:       metrics,
		logger:        logger,
		allowedOrigin: opts.AllowedOrigin,
	}
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 将错误信息以 JSON 格式写入 HTTP 响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health 健康检查接口
//
// 路由: GET / 与 GET /health
//
// 数据库可达时返回 {"status": "ok"}；否则返回 503。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  storage.AsError(err).UserMessage(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
