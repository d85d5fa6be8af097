package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage 本地文件系统的语料存储
// 文件以 <id>_<原始文件名> 平铺存放，原始文件名得以保留，
// 存储路径可直接交给文档加载器做批量清洗
type LocalStorage struct {
	basePath string // 语料根目录
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 语料存储路径
}

// NewLocalStorage 创建本地语料存储
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve corpus path: %v", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create corpus directory: %v", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// Save 保存语料文件
func (s *LocalStorage) Save(reader io.Reader, filename string) (CorpusInfo, error) {
	if !SupportedCorpusType(filename) {
		return CorpusInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedCorpusType, filename)
	}

	id := uuid.New().String()
	name := filepath.Base(filename)
	// uuid不含下划线，首个下划线之前的部分即为ID
	storedName := id + "_" + name
	filePath := filepath.Join(s.basePath, storedName)

	file, err := os.Create(filePath)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("failed to create corpus file: %v", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("failed to write corpus file: %v", err)
	}

	return CorpusInfo{
		ID:          id,
		Name:        name,
		Size:        size,
		ContentType: corpusContentType(name),
		Path:        filePath,
		UploadedAt:  time.Now(),
	}, nil
}

// Get 获取语料文件内容
func (s *LocalStorage) Get(id string) (io.ReadCloser, error) {
	filePath, err := s.findByID(id)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %v", err)
	}
	return file, nil
}

// Delete 删除语料文件
func (s *LocalStorage) Delete(id string) error {
	filePath, err := s.findByID(id)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete corpus file: %v", err)
	}
	return nil
}

// List 列出全部语料文件
func (s *LocalStorage) List() ([]CorpusInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus files: %v", err)
	}

	var files []CorpusInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, name, ok := splitStoredName(entry.Name())
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		files = append(files, CorpusInfo{
			ID:          id,
			Name:        name,
			Size:        info.Size(),
			ContentType: corpusContentType(name),
			Path:        filepath.Join(s.basePath, entry.Name()),
			UploadedAt:  info.ModTime(),
		})
	}

	return files, nil
}

// Exists 检查语料文件是否存在
func (s *LocalStorage) Exists(id string) (bool, error) {
	_, err := s.findByID(id)
	if err != nil {
		if errors.Is(err, ErrCorpusFileNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// findByID 根据ID定位语料文件
func (s *LocalStorage) findByID(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, id+"_*"))
	if err != nil {
		return "", fmt.Errorf("failed to search corpus file: %v", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrCorpusFileNotFound, id)
	}
	return matches[0], nil
}

// splitStoredName 从存储文件名中还原ID和原始文件名
func splitStoredName(storedName string) (id, name string, ok bool) {
	parts := strings.SplitN(storedName, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
