// Package web 提供页面模板的嵌入支持
//
// 目前只有 GraphiQL 调试页面；页面依赖的前端资源从 CDN 加载，不打包进二进制。
package web

import (
	_ "embed"
)

// GraphiQLTemplate GraphiQL 页面模板（html/template 语法，参数 .Endpoint）
//
//go:embed graphiql.html
var GraphiQLTemplate string
