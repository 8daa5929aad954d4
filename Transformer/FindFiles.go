package Transformer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindFiles 递归查找指定扩展名的文件，结果按路径排序
func FindFiles(root string, Exc string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err // 如果遇到错误，直接返回
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), "."+strings.ToLower(Exc)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
