// Package storage 定义存储层领域错误与存储接口
//
// 领域错误用于隔离 API 层与底层存储驱动的错误类型：
// repository 与批量查询函数负责把驱动错误（约束冲突、连接失败、行解码失败）
// 转换为 *Error，底层错误不会越过这一边界。
//
// 每个 *Error 包含：
//   - Kind：错误类别（DB / NotFound / InvalidField）
//   - Message：可以返回给客户端的信息（为空时按 Kind 取默认值）
//   - Cause：内部原因（驱动错误信息），只写日志，不返回给客户端
package storage

import (
	"errors"
	"fmt"
	"net/http"

	"blog-graphql/internal/shared/storage/dbutil"
)

// Kind 领域错误类别
type Kind int

const (
	// KindDB 内部错误：连接失败、解码失败、无法识别的存储错误
	KindDB Kind = iota
	// KindNotFound 单实体查询无结果
	KindNotFound
	// KindInvalidField 输入违反数据约束
	KindInvalidField
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalidField:
		return "INVALID_FIELD"
	default:
		return "DB_ERROR"
	}
}

// 默认用户消息
const (
	DefaultDBMessage           = "An unexpected error has occurred"
	DefaultNotFoundMessage     = "The requested item was not found"
	DefaultInvalidFieldMessage = "Invalid value provided"
)

// 约束冲突用户消息
const (
	UserConflictMessage = "Username or email address already in use."
)

// SlugExistsMessage 文章 slug 重复
func SlugExistsMessage(slug string) string {
	return fmt.Sprintf("Slug %s already exists.", slug)
}

// AuthorMissingMessage 文章作者不存在
func AuthorMissingMessage(authorID fmt.Stringer) string {
	return fmt.Sprintf("Author with id %s does not exist.", authorID)
}

// 哨兵错误，用于 errors.Is 按类别判断
var (
	ErrDB           = &Error{Kind: KindDB}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidField = &Error{Kind: KindInvalidField}
)

// Error 领域错误
//
// 创建后不可修改；同一批量查询失败时，该批所有等待者共享同一个 *Error。
type Error struct {
	Kind    Kind
	Message string
	Cause   string
}

// NewDBError 由底层错误创建内部错误，驱动信息只保留在 Cause 中
func NewDBError(cause error) *Error {
	e := &Error{Kind: KindDB}
	if cause != nil {
		e.Cause = cause.Error()
	}
	return e
}

// NewDBErrorMessage 创建带用户消息的内部错误
func NewDBErrorMessage(message string) *Error {
	return &Error{Kind: KindDB, Message: message}
}

// NewNotFound 创建实体不存在错误
func NewNotFound(entity string, id interface{}) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with id %v not found", entity, id),
	}
}

// NewInvalidField 创建输入约束错误
func NewInvalidField(message string, cause error) *Error {
	e := &Error{Kind: KindInvalidField, Message: message}
	if cause != nil {
		e.Cause = cause.Error()
	}
	return e
}

// Error 返回用户消息（与 UserMessage 相同），保证 err.Error() 不泄露内部原因
func (e *Error) Error() string {
	return e.UserMessage()
}

// UserMessage 返回可对外展示的消息：显式消息优先，否则按类别取默认值
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindNotFound:
		return DefaultNotFoundMessage
	case KindInvalidField:
		return DefaultInvalidFieldMessage
	default:
		return DefaultDBMessage
	}
}

// StatusCode 返回对应的 HTTP 状态码
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidField:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Extensions 返回 GraphQL 错误扩展字段
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Kind.String()}
}

// Is 与哨兵错误按类别比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Message == "" && t.Cause == "" && t.Kind == e.Kind
}

// ConstraintMessages 约束冲突类别到用户消息的映射（按操作定义）
type ConstraintMessages map[dbutil.ConstraintKind]string

// FromDriver 将驱动错误转换为领域错误
//
//   - 已是 *Error：原样返回
//   - 约束冲突且 messages 中有对应消息：KindInvalidField
//   - 其他：KindDB，驱动信息只进入 Cause
func FromDriver(err error, dialect dbutil.Dialect, messages ConstraintMessages) *Error {
	if err == nil {
		return nil
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if dialect != nil {
		if msg, ok := messages[dialect.Constraint(err)]; ok {
			return NewInvalidField(msg, err)
		}
	}
	return NewDBError(err)
}

// AsError 将任意错误转换为领域错误，非领域错误视为内部错误
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewDBError(err)
}
