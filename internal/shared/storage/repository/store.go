// Package repository 数据库无关的业务逻辑存储层
//
// 通过 dbutil.Dialect 接口屏蔽不同数据库的 SQL 差异，
// 所有 SQL 以 PostgreSQL 风格编写，运行时由 Dialect.Rebind() 转换。
//
// 驱动错误在本层转换为 storage.Error 并记录日志，不会返回给上层。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blog-graphql/internal/shared/storage"
	"blog-graphql/internal/shared/storage/dbutil"
	"blog-graphql/pkg/logging"

	"github.com/google/uuid"
)

// QueryObserver 查询耗时回调（用于指标采集）
type QueryObserver func(operation, table string, duration time.Duration, err error)

// Store 通用存储实现
// 实现了 storage.PersistentStore 接口
type Store struct {
	db       *sql.DB
	dialect  dbutil.Dialect
	hasher   storage.PasswordHasher
	logger   *logging.Logger
	observer QueryObserver
}

var _ storage.PersistentStore = (*Store)(nil)

// NewStore 创建通用存储
//
// Store 不持有请求级状态，可在请求间复用；连接池由 db 管理。
func NewStore(db *sql.DB, dialect dbutil.Dialect, hasher storage.PasswordHasher, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{db: db, dialect: dialect, hasher: hasher, logger: logger}
}

// SetQueryObserver 设置查询耗时回调
func (s *Store) SetQueryObserver(observer QueryObserver) {
	s.observer = observer
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.fail(ctx, "ping", err, nil)
	}
	return nil
}

// DB 返回底层数据库连接（仅用于测试）
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *Store) Dialect() dbutil.Dialect {
	return s.dialect
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// now 返回写入用的时间戳
//
// 截断到微秒，与 PostgreSQL TIMESTAMPTZ 和 MySQL DATETIME(6) 的精度一致。
func (s *Store) now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// observe 记录查询日志与指标
func (s *Store) observe(ctx context.Context, operation, table string, start time.Time, err error) {
	d := time.Since(start)
	s.logger.WithContext(ctx).DBQueryLog(operation, table, d, err)
	if s.observer != nil {
		s.observer(operation, table, d, err)
	}
}

// fail 将驱动错误转换为领域错误，并连同内部原因与操作名写入日志
func (s *Store) fail(ctx context.Context, operation string, err error, messages storage.ConstraintMessages) error {
	domainErr := storage.FromDriver(err, s.dialect, messages)
	s.logger.WithContext(ctx).ErrorMapLog(mapLevel(domainErr.Kind), operation, domainErr.Kind.String(), domainErr.UserMessage(), domainErr.Cause)
	return domainErr
}

// mapLevel 错误映射的日志级别：NotFound 为 Info，InvalidField 为 Warn，其余为 Error
func mapLevel(kind storage.Kind) slog.Level {
	switch kind {
	case storage.KindNotFound:
		return slog.LevelInfo
	case storage.KindInvalidField:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// notFound 单实体查询无结果
func (s *Store) notFound(ctx context.Context, operation, entity string, id uuid.UUID) error {
	return s.fail(ctx, operation, storage.NewNotFound(entity, id), nil)
}

// rowScanner *sql.Row 与 *sql.Rows 的公共接口
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// insertReturning 插入一行并返回插入后的完整记录
//
// 支持 RETURNING 的方言在同一条语句中取回；否则插入后按主键回查。
// 未取回任何行时返回 sql.ErrNoRows，由调用方映射为创建失败。
func insertReturning[T any](ctx context.Context, s *Store, insert, table, columns string, id uuid.UUID,
	args []interface{}, scan func(rowScanner) (T, error)) (T, error) {
	if s.dialect.SupportsReturning() {
		row := s.db.QueryRowContext(ctx, s.rebind(insert+" RETURNING "+columns), args...)
		return scan(row)
	}

	var zero T
	if _, err := s.db.ExecContext(ctx, s.rebind(insert), args...); err != nil {
		return zero, err
	}
	query := s.rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columns, table))
	return scan(s.db.QueryRowContext(ctx, query, id))
}

// timestamp 兼容不同驱动返回的时间列
//
// pgx 与开启 parseTime 的 MySQL 返回 time.Time；
// SQLite 在缺少列声明类型时（如 RETURNING）返回字符串。
type timestamp struct {
	t *time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func (ts timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*ts.t = time.Time{}
		return nil
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (ts timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

// nullString 将可空列转换为 *string
func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// isNoRows 判断查询是否无结果
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
