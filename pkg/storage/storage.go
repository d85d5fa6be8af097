package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// 语料库只接收文档加载器能够解析的文件类型
var corpusContentTypes = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".pdf":      "application/pdf",
}

var (
	// ErrCorpusFileNotFound 语料文件不存在
	ErrCorpusFileNotFound = errors.New("corpus file not found")
	// ErrUnsupportedCorpusType 不支持的语料文件类型
	ErrUnsupportedCorpusType = errors.New("unsupported corpus file type")
)

// CorpusInfo 语料文件元数据
type CorpusInfo struct {
	ID          string    // 文件唯一标识符
	Name        string    // 原始文件名
	Size        int64     // 文件大小(字节)
	ContentType string    // 内容类型，由扩展名判定
	Path        string    // 存储路径(实现相关)
	UploadedAt  time.Time // 上传时间
}

// Storage 语料文件存储接口
// 上传的语料可作为批量清洗和流水线的输入来源
type Storage interface {
	// Save 保存语料文件并返回元数据
	// 不支持的文件类型返回ErrUnsupportedCorpusType
	Save(reader io.Reader, filename string) (CorpusInfo, error)

	// Get 获取语料文件内容
	Get(id string) (io.ReadCloser, error)

	// Delete 删除语料文件
	Delete(id string) error

	// List 列出全部语料文件
	List() ([]CorpusInfo, error)

	// Exists 检查语料文件是否存在
	Exists(id string) (bool, error)
}

// SupportedCorpusType 判断文件名是否为受支持的语料类型
func SupportedCorpusType(filename string) bool {
	_, ok := corpusContentTypes[normalizeExt(filename)]
	return ok
}

// corpusContentType 按扩展名返回语料内容类型
func corpusContentType(filename string) string {
	if ct, ok := corpusContentTypes[normalizeExt(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
