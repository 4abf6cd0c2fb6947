// Package auth 用户密码哈希
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Config 哈希配置
type Config struct {
	Cost int `yaml:"cost"`
}

// DefaultConfig 返回默认哈希配置
func DefaultConfig() Config {
	return Config{Cost: 12}
}

// Hasher bcrypt 密码哈希，实现 storage.PasswordHasher
type Hasher struct {
	cost int
}

// NewHasher 创建哈希器，cost 超出 bcrypt 允许范围时回退到默认值
func NewHasher(cfg Config) *Hasher {
	cost := cfg.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultConfig().Cost
	}
	return &Hasher{cost: cost}
}

// HashPassword 使用 bcrypt 哈希密码
func (h *Hasher) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
