// Package user 用户领域 - HTTP 处理
package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"blog-graphql/internal/shared/model"
	"blog-graphql/internal/shared/storage"

	"github.com/google/uuid"
)

// Store 用户处理器依赖的存储接口
type Store interface {
	storage.UserStore
	ListPostsByAuthorIDs(ctx context.Context, authorIDs []uuid.UUID) (map[uuid.UUID][]*model.Post, error)
}

// Handler 用户领域 HTTP 处理器
type Handler struct {
	store Store
}

// NewHandler 创建用户处理器
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册用户相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/users", h.List)
	mux.HandleFunc("POST /api/v1/users", h.Create)
	mux.HandleFunc("GET /api/v1/users/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/users/{id}/posts", h.ListPosts)
}

// List 获取用户列表
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// Get 获取单个用户
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Create 创建用户
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	u, err := h.store.CreateUser(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// ListPosts 获取用户的文章，用户不存在时返回 404
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.store.GetUser(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	byAuthor, err := h.store.ListPostsByAuthorIDs(r.Context(), []uuid.UUID{id})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	posts := byAuthor[id]
	if posts == nil {
		posts = []*model.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// pathID 解析路径中的 {id}，失败时写入 400
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
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

// writeDomainError 按领域错误类别写入状态码与用户消息
func writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *storage.Error
	if !errors.As(err, &domainErr) {
		domainErr = storage.AsError(err)
	}
	writeError(w, domainErr.StatusCode(), domainErr.UserMessage())
}
