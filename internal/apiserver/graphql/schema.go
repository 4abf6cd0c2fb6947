// Package graphql GraphQL 接口：Schema、解析器与 HTTP 处理器
package graphql

import "blog-graphql/api"

// Schema GraphQL Schema 定义，源文件为 api/schema.graphql
var Schema = api.SchemaSDL
