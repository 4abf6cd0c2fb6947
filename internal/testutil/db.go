// Package testutil 提供测试共享基础设施
//
// NewStore 默认使用 SQLite 内存库；设置 TEST_DB_DRIVER 后可在真实数据库上运行同一组测试：
//
//	TEST_DB_DRIVER=postgres TEST_DATABASE_URL=postgres://... go test ./...
//	TEST_DB_DRIVER=mysql    TEST_DATABASE_URL=user:pass@tcp(localhost:3306)/blog ./...
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"blog-graphql/internal/shared/infra"
	"blog-graphql/internal/shared/storage/dbutil"
	"blog-graphql/internal/shared/storage/repository"

	"github.com/stretchr/testify/require"
)

// PlainHasher 测试用哈希器，不做任何计算
type PlainHasher struct{}

// HashPassword 返回带前缀的明文
func (PlainHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

// NewStore 返回已建表的空存储，测试结束时关闭
//
// 外部数据库不可用（未设置 TEST_DATABASE_URL）时跳过测试。
func NewStore(t *testing.T) *repository.Store {
	t.Helper()

	driver := dbutil.DriverType(os.Getenv("TEST_DB_DRIVER"))
	if driver == "" {
		driver = dbutil.DriverSQLite
	}
	dsn := ":memory:"
	if driver != dbutil.DriverSQLite {
		dsn = os.Getenv("TEST_DATABASE_URL")
		if dsn == "" {
			t.Skipf("TEST_DATABASE_URL not set for driver %s", driver)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	inf, err := infra.New(ctx, infra.DatabaseOptions{
		Driver:      driver,
		DSN:         dsn,
		Pool:        dbutil.DefaultPool(),
		AutoMigrate: true,
	}, PlainHasher{}, nil)
	require.NoError(t, err, "无法连接测试数据库 (%s)", driver)

	store := inf.Store
	if driver != dbutil.DriverSQLite {
		CleanupTables(t, store.DB(), "posts", "users")
	}
	t.Cleanup(func() {
		if driver != dbutil.DriverSQLite {
			CleanupTables(t, store.DB(), "posts", "users")
		}
		inf.Close()
	})
	return store
}

// CleanupTables 按给定顺序清空表数据（有外键时先传子表）
func CleanupTables(t *testing.T, db *sql.DB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("警告: 清空表 %s 失败: %v", table, err)
		}
	}
}
