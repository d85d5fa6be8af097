package document

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// Loader 文档加载器接口
// 负责将不同格式的医疗素材文件读取为纯文本，供清洗流水线消费
type Loader interface {
	// Load 加载文档，返回文本内容
	Load(filePath string) (string, error)

	// LoadReader 从Reader加载文档，返回文本内容
	// filename用于确定文档类型
	LoadReader(r io.Reader, filename string) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ErrUnsupportedType 不支持的文档类型错误
var ErrUnsupportedType = errors.New("unsupported document type")

// LoaderFactory 加载器工厂函数，根据文件类型创建对应的加载器
func LoaderFactory(filePath string) (Loader, error) {
	contentType := detectContentType(filePath)

	switch contentType {
	case PDF:
		return NewPDFLoader(), nil
	case Markdown:
		return NewMarkdownLoader(), nil
	case PlainText:
		return NewPlainTextLoader(), nil
	default:
		return nil, ErrUnsupportedType
	}
}

// detectContentType 根据文件扩展名检测内容类型
func detectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt", ".text":
		return PlainText
	default:
		return Unknown
	}
}
