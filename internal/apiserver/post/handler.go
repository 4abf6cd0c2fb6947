// Package post 文章领域 - HTTP 处理
package post

import (
	"encoding/json"
	"errors"
	"net/http"

	"blog-graphql/internal/shared/model"
	"blog-graphql/internal/shared/storage"

	"github.com/google/uuid"
)

// Handler 文章领域 HTTP 处理器
type Handler struct {
	store storage.PostStore
}

// NewHandler 创建文章处理器
func NewHandler(store storage.PostStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册文章相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/posts", h.List)
	mux.HandleFunc("POST /api/v1/posts", h.Create)
	mux.HandleFunc("GET /api/v1/posts/{id}", h.Get)
}

// List 获取文章列表
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// Get 获取单篇文章
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.store.GetPost(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create 创建文章
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePost
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AuthorID == uuid.Nil || req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "author_id, title and body are required")
		return
	}

	p, err := h.store.CreatePost(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var domainErr *storage.Error
	if !errors.As(err, &domainErr) {
		domainErr = storage.AsError(err)
	}
	writeError(w, domainErr.StatusCode(), domainErr.UserMessage())
}
