package storage

import (
	"context"

	"blog-graphql/internal/shared/model"

	"github.com/google/uuid"
)

// ============================================================================
// 持久化存储接口（由 repository.Store 实现）
//
// 所有方法返回的错误均为 *Error，驱动错误不会越过这一层。
// ============================================================================

// UserStore 用户存储接口
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	CreateUser(ctx context.Context, input model.CreateUser) (*model.User, error)
}

// PostStore 文章存储接口
type PostStore interface {
	GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error)
	ListPosts(ctx context.Context) ([]*model.Post, error)
	CreatePost(ctx context.Context, input model.CreatePost) (*model.Post, error)
}

// BatchStore 批量查询接口，供请求级 Loader 使用
//
// 每次调用只发出一条查询；返回结果中缺失的键表示无匹配行。
// 查询或解码失败时返回单个错误，由 Loader 扇出给该批次的所有等待者。
type BatchStore interface {
	ListPostsByAuthorIDs(ctx context.Context, authorIDs []uuid.UUID) (map[uuid.UUID][]*model.Post, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error)
}

// PasswordHasher 密码哈希
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	UserStore
	PostStore
	BatchStore
	Ping(ctx context.Context) error
	Close() error
}
