// Package infra 基础设施初始化
//
// 按驱动类型打开数据库连接池、执行自动建表并创建存储层：
//   - postgres：pgx（database/sql 适配）
//   - sqlite：modernc.org/sqlite（纯 Go，开发与测试）
//   - mysql：go-sql-driver/mysql
package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blog-graphql/internal/shared/storage"
	"blog-graphql/internal/shared/storage/dbutil"
	mysqldriver "blog-graphql/internal/shared/storage/driver/mysql"
	pgdriver "blog-graphql/internal/shared/storage/driver/postgres"
	sqlitedriver "blog-graphql/internal/shared/storage/driver/sqlite"
	"blog-graphql/internal/shared/storage/repository"
	"blog-graphql/pkg/logging"
)

// DatabaseOptions 数据库初始化参数
type DatabaseOptions struct {
	Driver      dbutil.DriverType
	DSN         string
	Pool        dbutil.Pool
	AutoMigrate bool
}

// Infrastructure 基础设施聚合结构
type Infrastructure struct {
	// Store 持久化存储（跨请求复用，连接池由其持有）
	Store *repository.Store
}

// New 创建基础设施
func New(ctx context.Context, opts DatabaseOptions, hasher storage.PasswordHasher, logger *logging.Logger) (*Infrastructure, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	db, dialect, err := openDatabase(opts)
	if err != nil {
		return nil, err
	}

	if opts.AutoMigrate {
		if err := dialect.AutoMigrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s auto-migrate failed: %w", opts.Driver, err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.Driver, err)
	}

	logger.Info("database connected", "driver", string(opts.Driver))

	return &Infrastructure{
		Store: repository.NewStore(db, dialect, hasher, logger),
	}, nil
}

// openDatabase 按驱动类型打开连接
func openDatabase(opts DatabaseOptions) (*sql.DB, dbutil.Dialect, error) {
	switch opts.Driver {
	case dbutil.DriverPostgres:
		db, err := pgdriver.Open(opts.DSN, opts.Pool)
		return db, pgdriver.NewDialect(), err
	case dbutil.DriverSQLite:
		db, err := sqlitedriver.Open(opts.DSN)
		return db, sqlitedriver.NewDialect(), err
	case dbutil.DriverMySQL:
		db, err := mysqldriver.Open(opts.DSN, opts.Pool)
		return db, mysqldriver.NewDialect(), err
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

// Close 关闭所有基础设施连接
func (i *Infrastructure) Close() error {
	if i.Store != nil {
		return i.Store.Close()
	}
	return nil
}
