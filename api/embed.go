// Package api 嵌入对外接口定义
//
// 包含：
//   - schema.graphql: GraphQL Schema（解析器在 internal/apiserver/graphql 中按此定义实现）
package api

import (
	_ "embed"
)

// SchemaSDL GraphQL Schema 定义
//
//go:embed schema.graphql
var SchemaSDL string
