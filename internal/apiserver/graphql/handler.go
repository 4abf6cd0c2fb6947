package graphql

import (
	"context"
	"encoding/json"
	"net/http"

	"blog-graphql/internal/apiserver/loader"
	"blog-graphql/internal/shared/storage"
	"blog-graphql/pkg/dataloader"
	"blog-graphql/pkg/logging"

	graphql "github.com/graph-gophers/graphql-go"
)

// Config GraphQL 执行配置
type Config struct {
	// MaxParallelism 单个请求内并发解析的字段数上限
	MaxParallelism int `yaml:"max_parallelism"`
	// MaxDepth 查询最大嵌套深度，0 表示不限制
	MaxDepth int `yaml:"max_depth"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{MaxParallelism: 100, MaxDepth: 10}
}

// Handler GraphQL HTTP 处理器
type Handler struct {
	schema     *graphql.Schema
	store      storage.PersistentStore
	loaderOpts loader.Options
	logger     *logging.Logger
	onComplete func(map[string]dataloader.Stats)
}

// NewHandler 解析 Schema 并创建处理器；Schema 与解析器不匹配时 panic
func NewHandler(store storage.PersistentStore, cfg Config, loaderOpts loader.Options, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	if loaderOpts.Logger == nil {
		loaderOpts.Logger = logger
	}

	opts := []graphql.SchemaOpt{
		graphql.Logger(&panicLogger{logger: logger}),
	}
	if cfg.MaxParallelism > 0 {
		opts = append(opts, graphql.MaxParallelism(cfg.MaxParallelism))
	}
	if cfg.MaxDepth > 0 {
		opts = append(opts, graphql.MaxDepth(cfg.MaxDepth))
	}

	return &Handler{
		schema:     graphql.MustParseSchema(Schema, NewResolver(store, loaderOpts), opts...),
		store:      store,
		loaderOpts: loaderOpts,
		logger:     logger,
	}
}

// OnComplete 设置请求结束回调，参数为本请求加载器的统计
func (h *Handler) OnComplete(fn func(map[string]dataloader.Stats)) {
	h.onComplete = fn
}

// Request GraphQL 请求体
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// ServeHTTP 处理 POST /graphql
//
// 每个请求创建独立的加载器并注入 context，请求结束后丢弃。
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	loaders := loader.FromContext(r.Context())
	ctx := r.Context()
	if loaders == nil {
		loaders = loader.New(h.store, h.loaderOpts)
		ctx = loader.WithLoaders(ctx, loaders)
	}
	if req.OperationName != "" {
		ctx = logging.ContextWithOperation(ctx, req.OperationName)
	}

	resp := h.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)
	if len(resp.Errors) > 0 {
		h.logger.WithContext(ctx).Debug("graphql request completed with errors",
			"operation", req.OperationName, "errors", len(resp.Errors))
	}
	if h.onComplete != nil {
		h.onComplete(loaders.Stats())
	}

	writeJSON(w, http.StatusOK, resp)
}

// panicLogger 将解析器 panic 写入结构化日志
type panicLogger struct {
	logger *logging.Logger
}

func (l *panicLogger) LogPanic(ctx context.Context, value interface{}) {
	l.logger.WithContext(ctx).Error("graphql resolver panic", "panic", value)
}

// writeJSON 写入 JSON 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 写入错误响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
