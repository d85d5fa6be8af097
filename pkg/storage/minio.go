package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// 语料对象统一存放在corpus/前缀下，与桶内其他数据隔离
const corpusObjectPrefix = "corpus/"

// 原始文件名保存在对象的用户元数据中
const metaOriginalName = "Original-Name"

// MinioStorage MinIO语料存储
type MinioStorage struct {
	client     *minio.Client
	bucketName string
}

// MinioConfig MinIO存储配置
type MinioConfig struct {
	Endpoint  string // MinIO服务端点
	AccessKey string // 访问密钥ID
	SecretKey string // 秘密访问密钥
	UseSSL    bool   // 是否使用SSL
	Bucket    string // 存储桶名称
}

// NewMinioStorage 创建MinIO语料存储
// 存储桶不存在时自动创建
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %v", err)
		}
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Save 保存语料文件到MinIO
func (s *MinioStorage) Save(reader io.Reader, filename string) (CorpusInfo, error) {
	if !SupportedCorpusType(filename) {
		return CorpusInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedCorpusType, filename)
	}

	id := uuid.New().String()
	name := filepath.Base(filename)
	objectName := corpusObjectPrefix + id + normalizeExt(name)

	// 语料文件体积有限，读入内存以获取大小
	content, err := io.ReadAll(reader)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("failed to read corpus content: %v", err)
	}

	size := int64(len(content))
	contentType := corpusContentType(name)

	_, err = s.client.PutObject(
		context.Background(),
		s.bucketName,
		objectName,
		bytes.NewReader(content),
		size,
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: map[string]string{metaOriginalName: name},
		},
	)
	if err != nil {
		return CorpusInfo{}, fmt.Errorf("failed to upload corpus file: %v", err)
	}

	return CorpusInfo{
		ID:          id,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Path:        objectName,
		UploadedAt:  time.Now(),
	}, nil
}

// Get 获取语料文件内容
func (s *MinioStorage) Get(id string) (io.ReadCloser, error) {
	objectName, err := s.findByID(id)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(
		context.Background(),
		s.bucketName,
		objectName,
		minio.GetObjectOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get corpus object: %v", err)
	}
	return obj, nil
}

// Delete 删除语料文件
func (s *MinioStorage) Delete(id string) error {
	objectName, err := s.findByID(id)
	if err != nil {
		return err
	}

	err = s.client.RemoveObject(
		context.Background(),
		s.bucketName,
		objectName,
		minio.RemoveObjectOptions{},
	)
	if err != nil {
		return fmt.Errorf("failed to delete corpus object: %v", err)
	}
	return nil
}

// List 列出corpus/前缀下的全部语料文件
func (s *MinioStorage) List() ([]CorpusInfo, error) {
	ctx := context.Background()
	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    corpusObjectPrefix,
		Recursive: true,
	})

	var files []CorpusInfo
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing corpus objects: %v", object.Err)
		}

		baseName := filepath.Base(object.Key)
		id := strings.TrimSuffix(baseName, filepath.Ext(baseName))

		// 原始文件名需要单独Stat读取用户元数据
		name := baseName
		if stat, err := s.client.StatObject(ctx, s.bucketName, object.Key, minio.StatObjectOptions{}); err == nil {
			if original := stat.UserMetadata[metaOriginalName]; original != "" {
				name = original
			}
		}

		files = append(files, CorpusInfo{
			ID:          id,
			Name:        name,
			Size:        object.Size,
			ContentType: corpusContentType(baseName),
			Path:        object.Key,
			UploadedAt:  object.LastModified,
		})
	}

	return files, nil
}

// Exists 检查语料文件是否存在
func (s *MinioStorage) Exists(id string) (bool, error) {
	_, err := s.findByID(id)
	if err != nil {
		if errors.Is(err, ErrCorpusFileNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// findByID 根据ID定位语料对象
func (s *MinioStorage) findByID(id string) (string, error) {
	objectCh := s.client.ListObjects(context.Background(), s.bucketName, minio.ListObjectsOptions{
		Prefix:    corpusObjectPrefix + id,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return "", fmt.Errorf("error searching corpus object: %v", object.Err)
		}
		return object.Key, nil
	}
	return "", fmt.Errorf("%w: %s", ErrCorpusFileNotFound, id)
}
