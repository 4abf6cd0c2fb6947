package graphql

import (
	"bytes"
	"html/template"
	"net/http"

	"blog-graphql/web"
)

var graphiqlTmpl = template.Must(template.New("graphiql").Parse(web.GraphiQLTemplate))

// GraphiQL 返回交互式查询页面处理器，endpoint 为 GraphQL 接口地址
func GraphiQL(endpoint string) http.HandlerFunc {
	var buf bytes.Buffer
	if err := graphiqlTmpl.Execute(&buf, struct{ Endpoint string }{endpoint}); err != nil {
		panic(err)
	}
	page := buf.Bytes()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(page)
	}
}
