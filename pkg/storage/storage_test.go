package storage

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCorpus = "肺癌是起源于支气管黏膜的恶性肿瘤，诊断依靠病理检查。"

func newTestLocalStorage(t *testing.T) *LocalStorage {
	s, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	return s
}

// TestSupportedCorpusType 测试语料类型白名单
func TestSupportedCorpusType(t *testing.T) {
	assert.True(t, SupportedCorpusType("肺癌报告.txt"))
	assert.True(t, SupportedCorpusType("notes.md"))
	assert.True(t, SupportedCorpusType("notes.MARKDOWN"))
	assert.True(t, SupportedCorpusType("病理学.pdf"))

	assert.False(t, SupportedCorpusType("archive.zip"))
	assert.False(t, SupportedCorpusType("image.png"))
	assert.False(t, SupportedCorpusType("noextension"))
}

// TestLocalStorage 测试本地语料存储
func TestLocalStorage(t *testing.T) {
	s := newTestLocalStorage(t)

	t.Run("Save", func(t *testing.T) {
		info, err := s.Save(strings.NewReader(sampleCorpus), "肺癌报告.txt")
		require.NoError(t, err)

		assert.NotEmpty(t, info.ID)
		assert.Equal(t, "肺癌报告.txt", info.Name)
		assert.Equal(t, int64(len(sampleCorpus)), info.Size)
		assert.Equal(t, "text/plain", info.ContentType)
		assert.False(t, info.UploadedAt.IsZero())

		// 存储路径可直接用于文档加载
		data, err := os.ReadFile(info.Path)
		require.NoError(t, err)
		assert.Equal(t, sampleCorpus, string(data))
	})

	t.Run("SaveRejectsUnsupportedType", func(t *testing.T) {
		_, err := s.Save(strings.NewReader("binary"), "malware.exe")
		assert.ErrorIs(t, err, ErrUnsupportedCorpusType)
	})

	t.Run("Get", func(t *testing.T) {
		info, err := s.Save(strings.NewReader(sampleCorpus), "get-test.md")
		require.NoError(t, err)

		reader, err := s.Get(info.ID)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, sampleCorpus, string(data))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get("no-such-id")
		assert.ErrorIs(t, err, ErrCorpusFileNotFound)
	})

	t.Run("ListPreservesOriginalName", func(t *testing.T) {
		fresh := newTestLocalStorage(t)
		info, err := fresh.Save(strings.NewReader(sampleCorpus), "乳腺癌_病理.txt")
		require.NoError(t, err)

		files, err := fresh.List()
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, info.ID, files[0].ID)
		assert.Equal(t, "乳腺癌_病理.txt", files[0].Name, "原始文件名中的下划线应保留")
		assert.Equal(t, "text/plain", files[0].ContentType)
	})

	t.Run("Exists", func(t *testing.T) {
		info, err := s.Save(strings.NewReader(sampleCorpus), "exists.txt")
		require.NoError(t, err)

		found, err := s.Exists(info.ID)
		assert.NoError(t, err)
		assert.True(t, found)

		found, err = s.Exists("missing-id")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Delete", func(t *testing.T) {
		info, err := s.Save(strings.NewReader(sampleCorpus), "delete-me.txt")
		require.NoError(t, err)

		require.NoError(t, s.Delete(info.ID))

		found, err := s.Exists(info.ID)
		assert.NoError(t, err)
		assert.False(t, found)

		assert.ErrorIs(t, s.Delete(info.ID), ErrCorpusFileNotFound)
	})
}

// TestMinioStorage 测试MinIO语料存储
// 需要本地运行MinIO服务，默认跳过
func TestMinioStorage(t *testing.T) {
	if os.Getenv("MINIO_TEST_ENDPOINT") == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set, skipping MinIO tests")
	}

	s, err := NewMinioStorage(MinioConfig{
		Endpoint:  os.Getenv("MINIO_TEST_ENDPOINT"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		UseSSL:    false,
		Bucket:    "medkb-test",
	})
	require.NoError(t, err)

	t.Run("SaveAndGet", func(t *testing.T) {
		info, err := s.Save(strings.NewReader(sampleCorpus), "肺癌报告.txt")
		require.NoError(t, err)
		defer s.Delete(info.ID)

		assert.NotEmpty(t, info.ID)
		assert.Equal(t, "肺癌报告.txt", info.Name)
		assert.True(t, strings.HasPrefix(info.Path, "corpus/"), "对象应存放在corpus/前缀下")

		reader, err := s.Get(info.ID)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, sampleCorpus, string(data))
	})

	t.Run("SaveRejectsUnsupportedType", func(t *testing.T) {
		_, err := s.Save(strings.NewReader("binary"), "archive.zip")
		assert.ErrorIs(t, err, ErrUnsupportedCorpusType)
	})

	t.Run("ListRestoresOriginalName", func(t *testing.T) {
		info, err := s.Save(strings.NewReader(sampleCorpus), "病理切片说明.md")
		require.NoError(t, err)
		defer s.Delete(info.ID)

		files, err := s.List()
		require.NoError(t, err)

		found := false
		for _, f := range files {
			if f.ID == info.ID {
				found = true
				assert.Equal(t, "病理切片说明.md", f.Name)
			}
		}
		assert.True(t, found, "列表中应包含刚上传的语料")
	})
}
