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

const postColumns = `id, author_id, slug, title, description, body, created_at, updated_at`

// GetPost 获取文章，不存在时返回 NotFound
func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	const op = "get_post"
	start := time.Now()
	query := s.rebind(`SELECT ` + postColumns + ` FROM posts WHERE id = $1`)
	post, err := scanPost(s.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		s.observe(ctx, op, "posts", start, nil)
		return nil, s.notFound(ctx, op, "Post", id)
	}
	s.observe(ctx, op, "posts", start, err)
	if err != nil {
		return nil, s.fail(ctx, op, err, nil)
	}
	return post, nil
}

// ListPosts 列出所有文章
func (s *Store) ListPosts(ctx context.Context) ([]*model.Post, error) {
	const op = "list_posts"
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at`)
	if err != nil {
		s.observe(ctx, op, "posts", start, err)
		return nil, s.fail(ctx, op, err, nil)
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	s.observe(ctx, op, "posts", start, err)
	if err != nil {
		return nil, s.fail(ctx, op, err, nil)
	}
	return posts, nil
}

// CreatePost 创建文章
//
// 未指定 slug 时生成 UUID；slug 重复或作者不存在时返回 InvalidField。
func (s *Store) CreatePost(ctx context.Context, input model.CreatePost) (*model.Post, error) {
	const op = "create_post"
	start := time.Now()
	id := uuid.New()
	slug := input.SlugOrDefault()
	now := s.now()
	insert := `INSERT INTO posts (id, author_id, slug, title, description, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	post, err := insertReturning(ctx, s, insert, "posts", postColumns, id,
		[]interface{}{id, input.AuthorID, slug, input.Title, input.Description, input.Body, now, now},
		scanPost)
	s.observe(ctx, op, "posts", start, err)
	if isNoRows(err) {
		return nil, s.fail(ctx, op, storage.NewDBErrorMessage("Error creating Post."), nil)
	}
	if err != nil {
		return nil, s.fail(ctx, op, err, storage.ConstraintMessages{
			dbutil.ConstraintUnique:     storage.SlugExistsMessage(slug),
			dbutil.ConstraintForeignKey: storage.AuthorMissingMessage(input.AuthorID),
		})
	}
	return post, nil
}

// ListPostsByAuthorIDs 按作者批量获取文章，一次查询
//
// 结果按作者分组，组内保持数据库返回顺序；没有文章的作者不出现在结果中。
// 查询或任意一行解码失败时返回单个错误。
func (s *Store) ListPostsByAuthorIDs(ctx context.Context, authorIDs []uuid.UUID) (map[uuid.UUID][]*model.Post, error) {
	const op = "list_posts_by_author_ids"
	result := make(map[uuid.UUID][]*model.Post, len(authorIDs))
	if len(authorIDs) == 0 {
		return result, nil
	}

	start := time.Now()
	query := s.rebind(`SELECT ` + postColumns + ` FROM posts WHERE author_id IN (` +
		dbutil.PlaceholderList(1, len(authorIDs)) + `) ORDER BY created_at`)
	rows, err := s.db.QueryContext(ctx, query, dbutil.Args(authorIDs)...)
	if err != nil {
		s.observe(ctx, op, "posts", start, err)
		return nil, s.fail(ctx, op, err, nil)
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	s.observe(ctx, op, "posts", start, err)
	if err != nil {
		return nil, s.fail(ctx, op, err, nil)
	}
	for _, p := range posts {
		result[p.AuthorID] = append(result[p.AuthorID], p)
	}
	return result, nil
}

func scanPost(row rowScanner) (*model.Post, error) {
	p := &model.Post{}
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Slug, &p.Title, &p.Description, &p.Body,
		timestamp{&p.CreatedAt}, timestamp{&p.UpdatedAt}); err != nil {
		return nil, err
	}
	return p, nil
}

// scanPosts 任意一行解码失败即整体失败
func scanPosts(rows *sql.Rows) ([]*model.Post, error) {
	posts := []*model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
