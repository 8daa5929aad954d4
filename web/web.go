// Package web 内嵌的标注前端页面
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Static 前端静态资源
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Index 首页
func Index() []byte {
	data, err := content.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	return data
}
