// Package mysql MySQL 数据库驱动
//
// 提供 MySQL 连接管理和方言实现。
// MySQL 不支持 INSERT ... RETURNING，repository 在插入后按主键回查。
package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blog-graphql/internal/shared/storage/dbutil"

	"github.com/go-sql-driver/mysql"
)

// MySQL 约束冲突错误号
const (
	errDupEntry            = 1062 // ER_DUP_ENTRY
	errNoReferencedRow     = 1216 // ER_NO_REFERENCED_ROW
	errNoReferencedRow2    = 1452 // ER_NO_REFERENCED_ROW_2
	errDupEntryWithKeyName = 1586 // ER_DUP_ENTRY_WITH_KEY_NAME
)

// Dialect MySQL 方言实现
type Dialect struct{}

var _ dbutil.Dialect = (*Dialect)(nil)

func (d *Dialect) DriverType() dbutil.DriverType {
	return dbutil.DriverMySQL
}

func (d *Dialect) Rebind(query string) string {
	return dbutil.StripPgCasts(dbutil.RebindToQuestion(query))
}

func (d *Dialect) SupportsReturning() bool {
	return false
}

func (d *Dialect) Constraint(err error) dbutil.ConstraintKind {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return dbutil.ConstraintNone
	}
	switch myErr.Number {
	case errDupEntry, errDupEntryWithKeyName:
		return dbutil.ConstraintUnique
	case errNoReferencedRow, errNoReferencedRow2:
		return dbutil.ConstraintForeignKey
	default:
		return dbutil.ConstraintNone
	}
}

// AutoMigrate 逐条执行建表语句（驱动默认不允许多语句）
func (d *Dialect) AutoMigrate(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("mysql auto-migrate failed: %w", err)
		}
	}
	return nil
}

// Open 创建 MySQL 数据库连接
//
// 强制开启 parseTime，使 DATETIME 列扫描为 time.Time
func Open(dsn string, pool dbutil.Pool) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	pool.Apply(db)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return db, nil
}

// NewDialect 创建 MySQL 方言
func NewDialect() *Dialect {
	return &Dialect{}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id CHAR(36) PRIMARY KEY,
    username VARCHAR(100) NOT NULL UNIQUE,
    email VARCHAR(255) NOT NULL UNIQUE,
    password VARCHAR(255) NOT NULL,
    bio TEXT,
    image TEXT,
    created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
);

CREATE TABLE IF NOT EXISTS posts (
    id CHAR(36) PRIMARY KEY,
    author_id CHAR(36) NOT NULL,
    slug VARCHAR(255) NOT NULL UNIQUE,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    INDEX idx_posts_author_id (author_id),
    CONSTRAINT fk_posts_author FOREIGN KEY (author_id) REFERENCES users (id) ON DELETE CASCADE
);
`
