package server

import (
	"net/http"

	"blog-graphql/internal/apiserver/graphql"
	"blog-graphql/internal/apiserver/loader"
	"blog-graphql/internal/apiserver/post"
	"blog-graphql/internal/apiserver/user"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /              - 服务健康检查
//   - GET /health        - 服务健康检查
//
// GraphQL:
//   - POST /graphql      - 执行查询（每个请求独立的加载器）
//   - GET  /graphiql     - GraphiQL 调试页面
//
// 用户 (User):
//   - GET  /api/v1/users            - 列出用户
//   - POST /api/v1/users            - 创建用户
//   - GET  /api/v1/users/{id}       - 获取用户
//   - GET  /api/v1/users/{id}/posts - 获取用户的文章
//
// 文章 (Post):
//   - GET  /api/v1/posts      - 列出文章
//   - POST /api/v1/posts      - 创建文章
//   - GET  /api/v1/posts/{id} - 获取文章
//
// 指标:
//   - GET /metrics
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /{$}", h.Health)
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", h.metrics.Handler())

	// GraphQL
	mux.Handle("POST /graphql", loader.Middleware(h.store, h.loaderOpts)(h.gql))
	mux.Handle("GET /graphiql", graphql.GraphiQL("/graphql"))

	// REST 接口
	user.NewHandler(h.store).RegisterRoutes(mux)
	post.NewHandler(h.store).RegisterRoutes(mux)

	var handler http.Handler = h.metrics.MetricsMiddleware(mux)
	handler = loggingMiddleware(h.logger)(handler)
	handler = requestIDMiddleware(handler)
	return corsMiddleware(h.allowedOrigin)(handler)
}
