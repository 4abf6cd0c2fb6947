// Package model 定义核心数据模型
//
// user.go 包含用户相关的数据模型定义：
//   - User：博客作者
//   - CreateUser：创建用户的输入
package model

import (
	"time"

	"github.com/google/uuid"
)

// User 用户
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"` // never expose in JSON
	Bio          *string   `json:"bio,omitempty" db:"bio"`
	Image        *string   `json:"image,omitempty" db:"image"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CreateUser 创建用户的输入
//
// Password 为明文，由调用方哈希后写入 User.PasswordHash
type CreateUser struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Bio      *string `json:"bio,omitempty"`
	Image    *string `json:"image,omitempty"`
}
