package graphql

import (
	"context"
	"fmt"

	"blog-graphql/internal/apiserver/loader"
	"blog-graphql/internal/shared/model"
	"blog-graphql/internal/shared/storage"

	"github.com/google/uuid"
	graphql "github.com/graph-gophers/graphql-go"
)

// APIVersion 接口版本
const APIVersion = "1.0"

// Resolver 根解析器，同时处理 Query 与 Mutation
type Resolver struct {
	store      storage.PersistentStore
	loaderOpts loader.Options
}

// NewResolver 创建根解析器
func NewResolver(store storage.PersistentStore, loaderOpts loader.Options) *Resolver {
	return &Resolver{store: store, loaderOpts: loaderOpts}
}

// loaders 返回请求级加载器；未经 HTTP 处理器注入时（如直接执行查询）按调用创建
func (r *Resolver) loaders(ctx context.Context) *loader.Loaders {
	if l := loader.FromContext(ctx); l != nil {
		return l
	}
	return loader.New(r.store, r.loaderOpts)
}

func parseID(id graphql.ID) (uuid.UUID, error) {
	v, err := uuid.Parse(string(id))
	if err != nil {
		return uuid.Nil, storage.NewInvalidField(fmt.Sprintf("Invalid id %s", id), err)
	}
	return v, nil
}

// ============================================================================
// Query
// ============================================================================

func (r *Resolver) APIVersion() string {
	return APIVersion
}

func (r *Resolver) Users(ctx context.Context) ([]*userResolver, error) {
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return nil, storage.AsError(err)
	}
	out := make([]*userResolver, len(users))
	for i, u := range users {
		out[i] = &userResolver{root: r, user: u}
	}
	return out, nil
}

func (r *Resolver) User(ctx context.Context, args struct{ ID graphql.ID }) (*userResolver, error) {
	id, err := parseID(args.ID)
	if err != nil {
		return nil, err
	}
	u, err := r.store.GetUser(ctx, id)
	if err != nil {
		return nil, storage.AsError(err)
	}
	r.loaders(ctx).Users.Prime(u.ID, u)
	return &userResolver{root: r, user: u}, nil
}

func (r *Resolver) Posts(ctx context.Context) ([]*postResolver, error) {
	posts, err := r.store.ListPosts(ctx)
	if err != nil {
		return nil, storage.AsError(err)
	}
	return r.postResolvers(posts), nil
}

func (r *Resolver) Post(ctx context.Context, args struct{ ID graphql.ID }) (*postResolver, error) {
	id, err := parseID(args.ID)
	if err != nil {
		return nil, err
	}
	p, err := r.store.GetPost(ctx, id)
	if err != nil {
		return nil, storage.AsError(err)
	}
	return &postResolver{root: r, post: p}, nil
}

// ============================================================================
// Mutation
// ============================================================================

type createUserInput struct {
	Username string
	Email    string
	Password string
	Bio      *string
	Image    *string
}

type createPostInput struct {
	AuthorID    graphql.ID
	Slug        *string
	Title       string
	Description *string
	Body        string
}

func (r *Resolver) CreateUser(ctx context.Context, args struct{ Input createUserInput }) (*userResolver, error) {
	u, err := r.store.CreateUser(ctx, model.CreateUser{
		Username: args.Input.Username,
		Email:    args.Input.Email,
		Password: args.Input.Password,
		Bio:      args.Input.Bio,
		Image:    args.Input.Image,
	})
	if err != nil {
		return nil, storage.AsError(err)
	}
	return &userResolver{root: r, user: u}, nil
}

func (r *Resolver) CreatePost(ctx context.Context, args struct{ Input createPostInput }) (*postResolver, error) {
	authorID, err := parseID(args.Input.AuthorID)
	if err != nil {
		return nil, err
	}
	input := model.CreatePost{
		AuthorID: authorID,
		Slug:     args.Input.Slug,
		Title:    args.Input.Title,
		Body:     args.Input.Body,
	}
	if args.Input.Description != nil {
		input.Description = *args.Input.Description
	}

	p, err := r.store.CreatePost(ctx, input)
	if err != nil {
		return nil, storage.AsError(err)
	}
	// 新文章改变了作者的文章列表
	r.loaders(ctx).Posts.Clear(authorID)
	return &postResolver{root: r, post: p}, nil
}

func (r *Resolver) postResolvers(posts []*model.Post) []*postResolver {
	out := make([]*postResolver, len(posts))
	for i, p := range posts {
		out[i] = &postResolver{root: r, post: p}
	}
	return out
}

// ============================================================================
// User
// ============================================================================

type userResolver struct {
	root *Resolver
	user *model.User
}

func (u *userResolver) ID() graphql.ID          { return graphql.ID(u.user.ID.String()) }
func (u *userResolver) Username() string        { return u.user.Username }
func (u *userResolver) Email() string           { return u.user.Email }
func (u *userResolver) Bio() *string            { return u.user.Bio }
func (u *userResolver) Image() *string          { return u.user.Image }
func (u *userResolver) CreatedAt() graphql.Time { return graphql.Time{Time: u.user.CreatedAt} }
func (u *userResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: u.user.UpdatedAt} }

// Posts 经请求级加载器批量获取，同一请求内多个用户的文章合并为一次查询
func (u *userResolver) Posts(ctx context.Context) ([]*postResolver, error) {
	posts, err := u.root.loaders(ctx).Posts.Load(ctx, u.user.ID)
	if err != nil {
		return nil, storage.AsError(err)
	}
	return u.root.postResolvers(posts), nil
}

// ============================================================================
// Post
// ============================================================================

type postResolver struct {
	root *Resolver
	post *model.Post
}

func (p *postResolver) ID() graphql.ID          { return graphql.ID(p.post.ID.String()) }
func (p *postResolver) AuthorID() graphql.ID    { return graphql.ID(p.post.AuthorID.String()) }
func (p *postResolver) Slug() string            { return p.post.Slug }
func (p *postResolver) Title() string           { return p.post.Title }
func (p *postResolver) Description() string     { return p.post.Description }
func (p *postResolver) Body() string            { return p.post.Body }
func (p *postResolver) CreatedAt() graphql.Time { return graphql.Time{Time: p.post.CreatedAt} }
func (p *postResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: p.post.UpdatedAt} }

func (p *postResolver) Author(ctx context.Context) (*userResolver, error) {
	u, err := p.root.loaders(ctx).Users.Load(ctx, p.post.AuthorID)
	if err != nil {
		return nil, storage.AsError(err)
	}
	return &userResolver{root: p.root, user: u}, nil
}
