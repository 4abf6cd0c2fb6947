package model

import (
	"time"

	"github.com/google/uuid"
)

// Post 文章
type Post struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AuthorID    uuid.UUID `json:"author_id" db:"author_id"`
	Slug        string    `json:"slug" db:"slug"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Body        string    `json:"body" db:"body"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CreatePost 创建文章的输入
type CreatePost struct {
	AuthorID    uuid.UUID `json:"author_id"`
	Slug        *string   `json:"slug,omitempty"` // 为空时自动生成 UUID
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
}

// SlugOrDefault 返回指定的 slug；未指定时生成新的 UUID 字符串
func (c CreatePost) SlugOrDefault() string {
	if c.Slug != nil && *c.Slug != "" {
		return *c.Slug
	}
	return uuid.NewString()
}
