package Transformer

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// cpg中常见的代码页写法
var codePageAliases = map[string]string{
	"1252":      "windows-1252",
	"ansi 1252": "windows-1252",
	"936":       "gbk",
	"ansi 936":  "gbk",
	"65001":     "utf-8",
	"utf8":      "utf-8",
	"88591":     "iso-8859-1",
	"gb-18030":  "gb18030",
}

// readCPGEncoding 读取 CPG 文件获取字符编码，读取失败时返回 fallback
func readCPGEncoding(shpfilePath string, fallback string) string {
	base := strings.TrimSuffix(shpfilePath, filepath.Ext(shpfilePath))
	for _, ext := range []string{".cpg", ".CPG"} {
		cpgContent, err := os.ReadFile(base + ext)
		if err == nil {
			if name := strings.TrimSpace(string(cpgContent)); name != "" {
				return name
			}
		}
	}
	return fallback
}

// lookupEncoding 根据名称获取编码，UTF-8或无法识别时返回nil
func lookupEncoding(name string) encoding.Encoding {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := codePageAliases[key]; ok {
		key = alias
	}
	switch key {
	case "", "utf-8":
		return nil
	case "gbk", "gb2312":
		return simplifiedchinese.GBK
	case "gb18030":
		return simplifiedchinese.GB18030
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil
	}
	return enc
}

// newTextDecoder 返回DBF文本解码函数
func newTextDecoder(name string) func(string) string {
	enc := lookupEncoding(name)
	if enc == nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		out, _, err := transform.String(enc.NewDecoder(), s)
		if err != nil {
			// 解码失败时保留原始字符串
			return s
		}
		return out
	}
}

// DecodeText 将文本统一转为UTF-8，非UTF-8内容按检测到的编码解码
// 返回解码后的内容与所用编码名
func DecodeText(data []byte) ([]byte, string) {
	if utf8.Valid(data) {
		return data, "UTF-8"
	}
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return data, ""
	}
	enc := lookupEncoding(result.Charset)
	if enc == nil {
		return data, result.Charset
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return data, result.Charset
	}
	return out, result.Charset
}
