package repository

import (
	"context"
	"database/sql"
	"time"

	"blog-graphql/internal/shared/model"
	"blog-graphql/internal/shared/storage"
	"blog-graphql/internal/shared/storage/dbutil"

	"github.com/google/uuid"
)

const userColumns = `id, username, email, password, bio, image, created_at, updated_at`

var userConstraintMessages = storage.ConstraintMessages{
	dbutil.ConstraintUnique: storage.UserConflictMessage,
}

// GetUser 获取用户，不存在时返回 NotFound
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const op = "get_user"
	start := time.Now()
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = $1`)
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		s.observe(ctx, op, "users", start, nil)
		return nil, s.notFound(ctx, op, "User", id)
	}
	s.observe(ctx, op, "users", start, err)
	if err != nil {
		return nil, s.fail(ctx, op, err, nil)
	}
	return user, nil
}

// ListUsers 列出所有用户
func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	const op = "list_users"
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		s.observe(ctx, op, "users", start, err)
		return nil, s.fail(ctx, op, err, nil)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	s.observe(ctx, op, "users", start, err)
	if err != nil {
		return nil, s.fail(ctx, op, err, nil)
	}
	return users, nil
}

// CreateUser 创建用户
//
// 密码经哈希后写入；用户名或邮箱重复时返回 InvalidField。
func (s *Store) CreateUser(ctx context.Context, input model.CreateUser) (*model.User, error) {
	const op = "create_user"
	if s.hasher == nil {
		return nil, s.fail(ctx, op, storage.NewDBErrorMessage("Error creating User."), nil)
	}
	hash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, s.fail(ctx, op, err, nil)
	}

	start := time.Now()
	id := uuid.New()
	now := s.now()
	insert := `INSERT INTO users (id, username, email, password, bio, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	user, err := insertReturning(ctx, s, insert, "users", userColumns, id,
		[]interface{}{id, input.Username, input.Email, hash, input.Bio, input.Image, now, now},
		scanUser)
	s.observe(ctx, op, "users", start, err)
	if isNoRows(err) {
		return nil, s.fail(ctx, op, storage.NewDBErrorMessage("Error creating User."), nil)
	}
	if err != nil {
		return nil, s.fail(ctx, op, err, userConstraintMessages)
	}
	return user, nil
}

// GetUsersByIDs 按 ID 批量获取用户，一次查询
//
// 返回结果只包含存在的用户；调用方决定缺失键的语义。
func (s *Store) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error) {
	const op = "get_users_by_ids"
	result := make(map[uuid.UUID]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	start := time.Now()
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE id IN (` + dbutil.PlaceholderList(1, len(ids)) + `)`)
	rows, err := s.db.QueryContext(ctx, query, dbutil.Args(ids)...)
	if err != nil {
		s.observe(ctx, op, "users", start, err)
		return nil, s.fail(ctx, op, err, nil)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	s.observe(ctx, op, "users", start, err)
	if err != nil {
		return nil, s.fail(ctx, op, err, nil)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var bio, image sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &bio, &image,
		timestamp{&u.CreatedAt}, timestamp{&u.UpdatedAt}); err != nil {
		return nil, err
	}
	u.Bio = nullString(bio)
	u.Image = nullString(image)
	return u, nil
}

// scanUsers 任意一行解码失败即整体失败
func scanUsers(rows *sql.Rows) ([]*model.User, error) {
	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
