// Package loader 请求级数据加载器
//
// 每个 HTTP 请求创建一组 Loaders，GraphQL 字段解析器通过 context 取用：
//   - Posts：按作者 ID 批量加载文章（User.posts），无文章的作者得到空列表
//   - Users：按 ID 批量加载用户（Post.author），不存在的 ID 得到 NotFound
//
// Loaders 随请求结束丢弃，缓存不跨请求共享。
package loader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"blog-graphql/internal/shared/model"
	"blog-graphql/internal/shared/storage"
	"blog-graphql/pkg/dataloader"
	"blog-graphql/pkg/logging"

	"github.com/google/uuid"
)

type contextKey string

const ctxKeyLoaders contextKey = "loaders"

// 加载器名称，用于日志与指标
const (
	NamePosts = "posts_by_author"
	NameUsers = "users_by_id"
)

// BatchObserver 批量查询回调（用于指标采集）
type BatchObserver func(loader string, keys int, duration time.Duration, err error)

// Options 加载器选项
type Options struct {
	Config   dataloader.Config
	Logger   *logging.Logger
	Observer BatchObserver
}

// Loaders 单个请求使用的全部加载器
type Loaders struct {
	Posts *dataloader.Loader[uuid.UUID, []*model.Post]
	Users *dataloader.Loader[uuid.UUID, *model.User]
}

// New 创建一组新的加载器
func New(store storage.BatchStore, opts Options) *Loaders {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	// 请求内没有调用方执行 Flush，只能依赖去抖窗口提交
	if opts.Config.Wait < 0 {
		opts.Config.Wait = 0
	}
	return &Loaders{
		Posts: dataloader.New(instrument(NamePosts, PostsByAuthor(store), opts), opts.Config).
			WithMissing(func(uuid.UUID) []*model.Post { return []*model.Post{} }),
		Users: dataloader.New(instrument(NameUsers, UsersByID(store), opts), opts.Config),
	}
}

// Stats 返回各加载器的统计快照
func (l *Loaders) Stats() map[string]dataloader.Stats {
	return map[string]dataloader.Stats{
		NamePosts: l.Posts.Stats(),
		NameUsers: l.Users.Stats(),
	}
}

// PostsByAuthor 按作者批量查询文章
//
// 只返回有文章的作者；缺失的作者由 Loader 补为空列表。
func PostsByAuthor(store storage.BatchStore) dataloader.BatchFunc[uuid.UUID, []*model.Post] {
	return func(ctx context.Context, keys []uuid.UUID) (map[uuid.UUID]dataloader.Result[[]*model.Post], error) {
		posts, err := store.ListPostsByAuthorIDs(ctx, keys)
		if err != nil {
			return nil, err
		}
		results := make(map[uuid.UUID]dataloader.Result[[]*model.Post], len(posts))
		for authorID, list := range posts {
			results[authorID] = dataloader.Result[[]*model.Post]{Value: list}
		}
		return results, nil
	}
}

// UsersByID 按 ID 批量查询用户，不存在的 ID 返回 NotFound
func UsersByID(store storage.BatchStore) dataloader.BatchFunc[uuid.UUID, *model.User] {
	return func(ctx context.Context, keys []uuid.UUID) (map[uuid.UUID]dataloader.Result[*model.User], error) {
		users, err := store.GetUsersByIDs(ctx, keys)
		if err != nil {
			return nil, err
		}
		results := make(map[uuid.UUID]dataloader.Result[*model.User], len(keys))
		for _, id := range keys {
			if u, ok := users[id]; ok {
				results[id] = dataloader.Result[*model.User]{Value: u}
			} else {
				results[id] = dataloader.Result[*model.User]{Err: storage.NewNotFound("User", id)}
			}
		}
		return results, nil
	}
}

// instrument 为批量函数添加日志与指标
//
// 批量函数 panic 时转换为 dataloader.ErrBatchPanic，同样记录日志与指标。
func instrument[V any](name string, fetch dataloader.BatchFunc[uuid.UUID, V], opts Options) dataloader.BatchFunc[uuid.UUID, V] {
	return func(ctx context.Context, keys []uuid.UUID) (results map[uuid.UUID]dataloader.Result[V], err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				results, err = nil, fmt.Errorf("%w: %v", dataloader.ErrBatchPanic, r)
			}
			d := time.Since(start)
			opts.Logger.WithContext(ctx).BatchLog(name, len(keys), d, err)
			if opts.Observer != nil {
				opts.Observer(name, len(keys), d, err)
			}
		}()
		return fetch(ctx, keys)
	}
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithLoaders 将加载器注入 context
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, ctxKeyLoaders, l)
}

// FromContext 从 context 获取加载器，未注入时返回 nil
func FromContext(ctx context.Context) *Loaders {
	l, _ := ctx.Value(ctxKeyLoaders).(*Loaders)
	return l
}

// Middleware 为每个请求创建独立的加载器
func Middleware(store storage.BatchStore, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), New(store, opts))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
